package model

import (
	"time"
)

// Setting 本地持久化的键值项（凭证、偏好、最近查询）
type Setting struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Key       string    `gorm:"column:setting_key;uniqueIndex;not null;size:100;comment:存储键" json:"key"`
	Value     string    `gorm:"column:setting_value;type:text;comment:存储值" json:"value"`
	ValueType string    `gorm:"size:20;default:string;comment:值类型(string,json)" json:"value_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}

// 固定的存储键
const (
	KeyAccessToken     = "access_token"
	KeyRefreshToken    = "refresh_token"
	KeyUserPreferences = "user_preferences"
	KeyRecentQueries   = "recent_queries"
)

// 值类型常量
const (
	TypeString = "string"
	TypeJSON   = "json"
)
