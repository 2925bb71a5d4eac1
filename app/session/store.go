// Package session 保存登录凭证和用户偏好。
//
// 凭证是进程内唯一的一份：登录时写入，每次请求只读，登出时清空。
// 不做后台刷新，也不在客户端判断过期。
package session

import (
	"sync"

	"demo-engine/app/model"
)

// TokenStore 凭证存储能力
type TokenStore interface {
	// Get 返回当前凭证，没有登录时 ok 为 false
	Get() (cred model.Credential, ok bool)
	Set(cred model.Credential) error
	Clear() error
}

// MemoryStore 仅保存在内存中的凭证，测试和一次性运行使用
type MemoryStore struct {
	mu   sync.RWMutex
	cred *model.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (model.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil || s.cred.AccessToken == "" {
		return model.Credential{}, false
	}
	return *s.cred, true
}

func (s *MemoryStore) Set(cred model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
