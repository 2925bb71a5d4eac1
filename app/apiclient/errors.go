package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"demo-engine/app/model"
)

// 默认错误文案，服务端没有给出 message 时使用
const (
	DefaultClientMessage = "请求失败，请检查输入后重试"
	DefaultServerMessage = "服务出错了，请稍后重试"
)

// ValidationError 本地前置校验失败，不会发出请求
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransientError 网络或超时错误
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: 网络请求失败: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ClientError 4xx 响应
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError 5xx 响应
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// NotFoundError 请求的资源在服务端不存在
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s 不存在", e.Resource, e.ID)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsClient(err error) bool {
	var target *ClientError
	return errors.As(err, &target)
}

func IsServer(err error) bool {
	var target *ServerError
	return errors.As(err, &target)
}

// Message 返回适合直接展示给用户的文案
func Message(err error) string {
	if err == nil {
		return ""
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return "网络连接失败，请检查网络后重试"
	}
	return err.Error()
}

// classify 按状态码把错误响应归类
func classify(status int, body string, notFound *NotFoundError) error {
	message := payloadMessage(body)

	switch {
	case status == 404 && notFound != nil:
		notFound.Message = message
		return notFound
	case status >= 500:
		if message == "" {
			message = DefaultServerMessage
		}
		return &ServerError{Status: status, Message: message}
	default:
		if message == "" {
			message = DefaultClientMessage
		}
		return &ClientError{Status: status, Message: message}
	}
}

// payloadMessage 从错误响应中取出 message，其次是字符串形式的 detail
func payloadMessage(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	var payload model.ErrorPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if detail, ok := payload.Detail.(string); ok {
		return detail
	}
	return ""
}
