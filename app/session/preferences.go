package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"demo-engine/app/model"

	"gorm.io/gorm"
)

// MaxRecentQueries 最多保留的最近查询条数
const MaxRecentQueries = 10

// Preferences 用户偏好
type Preferences struct {
	Options model.GenerateOptions `json:"options"`
}

// PreferenceStore 用户偏好与最近查询
type PreferenceStore struct {
	db *gorm.DB
}

func NewPreferenceStore(db *gorm.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Load 读取偏好，未保存过时返回默认选项
func (s *PreferenceStore) Load() (Preferences, error) {
	var prefs Preferences
	raw, err := getSetting(s.db, model.KeyUserPreferences)
	if err != nil {
		return prefs, fmt.Errorf("读取偏好失败: %w", err)
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			return prefs, fmt.Errorf("解析偏好失败: %w", err)
		}
	}
	prefs.Options = prefs.Options.WithDefaults()
	return prefs, nil
}

// Save 保存偏好
func (s *PreferenceStore) Save(prefs Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := putSetting(s.db, model.KeyUserPreferences, string(data), model.TypeJSON); err != nil {
		return fmt.Errorf("保存偏好失败: %w", err)
	}
	return nil
}

// RecentQueries 最近提交的查询，最新的在前
func (s *PreferenceStore) RecentQueries() ([]string, error) {
	raw, err := getSetting(s.db, model.KeyRecentQueries)
	if err != nil {
		return nil, fmt.Errorf("读取最近查询失败: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var queries []string
	if err := json.Unmarshal([]byte(raw), &queries); err != nil {
		return nil, fmt.Errorf("解析最近查询失败: %w", err)
	}
	return queries, nil
}

// AddRecentQuery 记录一条查询，重复的查询移到最前
func (s *PreferenceStore) AddRecentQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	queries, err := s.RecentQueries()
	if err != nil {
		return err
	}

	updated := make([]string, 0, len(queries)+1)
	updated = append(updated, query)
	for _, q := range queries {
		if q != query {
			updated = append(updated, q)
		}
	}
	if len(updated) > MaxRecentQueries {
		updated = updated[:MaxRecentQueries]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	return putSetting(s.db, model.KeyRecentQueries, string(data), model.TypeJSON)
}
