package model

import "time"

// User 当前登录用户
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential 登录凭证
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AuthResponse 登录/注册响应
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"user,omitempty"`
}

// Credential 提取凭证
func (r *AuthResponse) Credential() Credential {
	return Credential{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
}

// ErrorPayload 服务端错误响应
type ErrorPayload struct {
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}
