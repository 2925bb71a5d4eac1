package service

import (
	"context"
	"fmt"

	"demo-engine/app/apiclient"
	"demo-engine/app/logger"
	"demo-engine/app/model"
	"demo-engine/app/session"
)

// MinPasswordLength 新密码最短长度
const MinPasswordLength = 8

// AuthAPI 账号相关接口
type AuthAPI interface {
	Register(ctx context.Context, email, password, name string) (*model.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*model.AuthResponse, error)
	Me(ctx context.Context) (*model.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthService 登录登出流程，是凭证存储唯一的写入方
type AuthService struct {
	api    AuthAPI
	tokens session.TokenStore
	logger *logger.Logger
}

func NewAuthService(api AuthAPI, tokens session.TokenStore, log *logger.Logger) *AuthService {
	return &AuthService{
		api:    api,
		tokens: tokens,
		logger: log,
	}
}

// Login 登录成功后保存凭证
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Set(resp.Credential()); err != nil {
		return nil, err
	}
	s.logger.Infof("登录成功: %s", email)
	return resp.User, nil
}

// Register 注册，服务端直接返回令牌时一并保存
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	resp, err := s.api.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken != "" {
		if err := s.tokens.Set(resp.Credential()); err != nil {
			return nil, err
		}
	}
	s.logger.Infof("注册成功: %s", email)
	return resp.User, nil
}

// Logout 清除本地凭证
func (s *AuthService) Logout() error {
	if err := s.tokens.Clear(); err != nil {
		return err
	}
	s.logger.Info("已退出登录")
	return nil
}

// LoggedIn 是否持有凭证
func (s *AuthService) LoggedIn() bool {
	_, ok := s.tokens.Get()
	return ok
}

// Me 获取当前用户
func (s *AuthService) Me(ctx context.Context) (*model.User, error) {
	return s.api.Me(ctx)
}

// TokenInfo 解析当前访问令牌
func (s *AuthService) TokenInfo() (*session.TokenInfo, error) {
	cred, ok := s.tokens.Get()
	if !ok {
		return nil, apiclient.NewValidationError("token", "尚未登录")
	}
	return session.InspectToken(cred.AccessToken)
}

// RequestPasswordReset 发送重置邮件
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.api.RequestPasswordReset(ctx, email)
}

// ValidateResetToken 校验重置令牌
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) error {
	return s.api.ValidateResetToken(ctx, token)
}

// ResetPassword 校验两次输入一致且长度足够后提交新密码
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if password == "" || confirm == "" {
		return apiclient.NewValidationError("password", "请填写两次密码")
	}
	if len(password) < MinPasswordLength {
		return apiclient.NewValidationError("password", fmt.Sprintf("密码至少需要 %d 位", MinPasswordLength))
	}
	if password != confirm {
		return apiclient.NewValidationError("password", "两次输入的密码不一致")
	}
	return s.api.ResetPassword(ctx, token, password)
}
