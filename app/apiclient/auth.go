package apiclient

import (
	"context"
	"net/http"
	"strings"

	"demo-engine/app/model"
)

// Register 注册账号
func (c *Client) Register(ctx context.Context, email, password, name string) (*model.AuthResponse, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}

	var out model.AuthResponse
	r := c.request(ctx).
		SetBody(map[string]string{
			"email":    strings.TrimSpace(email),
			"password": password,
			"name":     strings.TrimSpace(name),
		}).
		SetResult(&out)
	if err := c.execute(r, http.MethodPost, "/auth/register", "注册", nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login 登录，返回的凭证由调用方写入存储
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	if err := requireCredentials(email, password); err != nil {
		return nil, err
	}

	var out model.AuthResponse
	r := c.request(ctx).
		SetBody(map[string]string{
			"email":    strings.TrimSpace(email),
			"password": password,
		}).
		SetResult(&out)
	if err := c.execute(r, http.MethodPost, "/auth/login", "登录", nil); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &ServerError{Status: http.StatusOK, Message: "登录: 响应缺少 access_token"}
	}
	return &out, nil
}

// Me 获取当前用户
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	r := c.request(ctx).SetResult(&out)
	if err := c.execute(r, http.MethodGet, "/auth/me", "获取当前用户", nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordReset 发送重置密码邮件
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewValidationError("email", "请输入邮箱地址")
	}

	r := c.request(ctx).SetBody(map[string]string{"email": email})
	return c.execute(r, http.MethodPost, "/auth/password-reset/request", "发送重置邮件", nil)
}

// ValidateResetToken 校验重置链接中的令牌
func (c *Client) ValidateResetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return NewValidationError("token", "重置令牌无效或缺失")
	}

	r := c.request(ctx).SetBody(map[string]string{"token": token})
	return c.execute(r, http.MethodPost, "/auth/password-reset/validate-token", "校验重置令牌", nil)
}

// ResetPassword 使用令牌设置新密码
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return NewValidationError("token", "重置令牌无效或缺失")
	}
	if newPassword == "" {
		return NewValidationError("password", "请输入新密码")
	}

	r := c.request(ctx).SetBody(map[string]string{
		"token":        token,
		"new_password": newPassword,
	})
	return c.execute(r, http.MethodPost, "/auth/password-reset/reset", "重置密码", nil)
}

func requireCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return NewValidationError("email", "请输入邮箱地址")
	}
	if password == "" {
		return NewValidationError("password", "请输入密码")
	}
	return nil
}
