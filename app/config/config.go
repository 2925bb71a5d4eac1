package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Poll    PollConfig    `mapstructure:"poll"`
	History HistoryConfig `mapstructure:"history"`
	Storage StorageConfig `mapstructure:"storage"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Log     LogConfig     `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`     // 0 表示不设置超时
	ShareCacheMinutes int    `mapstructure:"share_cache_minutes"` // 分享链接缓存时间
}

type PollConfig struct {
	IntervalMs     int `mapstructure:"interval_ms"`
	MaxWaitSeconds int `mapstructure:"max_wait_seconds"` // 由调用方控制的总等待上限
}

type HistoryConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type QuotaConfig struct {
	DefaultRemaining int `mapstructure:"default_remaining"` // 免费版每月 3 个
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	Dir        string `mapstructure:"dir"`         // 日志目录
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

// PollInterval 轮询间隔
func (c PollConfig) PollInterval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// MaxWait 轮询总等待上限，0 表示不限制
func (c PollConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

// Timeout 请求超时
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShareCacheTTL 分享链接缓存时间
func (c APIConfig) ShareCacheTTL() time.Duration {
	return time.Duration(c.ShareCacheMinutes) * time.Minute
}

// Load 从全局 viper 读取配置，出错直接退出
func Load() *Config {
	SetDefaults(viper.GetViper())

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	cfg, err := FromViper(viper.GetViper())
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

// FromViper 解码并校验配置
func FromViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解码配置: %w", err)
	}

	config.API.BaseURL = strings.TrimRight(config.API.BaseURL, "/")

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return &config, nil
}

// SetDefaults 设置默认配置
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout_seconds", 0)
	v.SetDefault("api.share_cache_minutes", 10)

	// 轮询默认配置
	v.SetDefault("poll.interval_ms", 3000)
	v.SetDefault("poll.max_wait_seconds", 600) // 10分钟

	v.SetDefault("history.page_size", 10)
	v.SetDefault("storage.db_path", "data/demo-engine.db")
	v.SetDefault("quota.default_remaining", 3)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.dir", "data/logs")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.API.BaseURL == "" {
		return fmt.Errorf("API 地址未设置")
	}
	u, err := url.Parse(config.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API 地址无效: %s", config.API.BaseURL)
	}
	if config.Poll.IntervalMs <= 0 {
		return fmt.Errorf("轮询间隔必须大于 0")
	}
	if config.History.PageSize <= 0 {
		return fmt.Errorf("分页大小必须大于 0")
	}
	if config.Storage.DBPath == "" {
		return fmt.Errorf("本地数据库路径未设置")
	}
	return nil
}
