package session

import (
	"errors"
	"fmt"
	"sync"

	"demo-engine/app/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore 把凭证持久化到本地 sqlite，跨会话保留直到登出
type DBStore struct {
	db   *gorm.DB
	mu   sync.RWMutex
	cred model.Credential
}

// NewDBStore 创建凭证存储并载入已保存的凭证
func NewDBStore(db *gorm.DB) (*DBStore, error) {
	s := &DBStore{db: db}

	access, err := getSetting(db, model.KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("读取访问令牌失败: %w", err)
	}
	refresh, err := getSetting(db, model.KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("读取刷新令牌失败: %w", err)
	}
	s.cred = model.Credential{AccessToken: access, RefreshToken: refresh}
	return s, nil
}

func (s *DBStore) Get() (model.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, s.cred.AccessToken != ""
}

func (s *DBStore) Set(cred model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := putSetting(tx, model.KeyAccessToken, cred.AccessToken, model.TypeString); err != nil {
			return err
		}
		if cred.RefreshToken == "" {
			return deleteSetting(tx, model.KeyRefreshToken)
		}
		return putSetting(tx, model.KeyRefreshToken, cred.RefreshToken, model.TypeString)
	})
	if err != nil {
		return fmt.Errorf("保存凭证失败: %w", err)
	}

	s.cred = cred
	return nil
}

func (s *DBStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteSetting(tx, model.KeyAccessToken); err != nil {
			return err
		}
		return deleteSetting(tx, model.KeyRefreshToken)
	})
	if err != nil {
		return fmt.Errorf("清除凭证失败: %w", err)
	}

	s.cred = model.Credential{}
	return nil
}

// getSetting 读取键值，不存在时返回空串
func getSetting(db *gorm.DB, key string) (string, error) {
	var setting model.Setting
	err := db.Where("setting_key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func putSetting(db *gorm.DB, key, value, valueType string) error {
	setting := model.Setting{Key: key, Value: value, ValueType: valueType}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "value_type", "updated_at"}),
	}).Create(&setting).Error
}

func deleteSetting(db *gorm.DB, key string) error {
	return db.Where("setting_key = ?", key).Delete(&model.Setting{}).Error
}
