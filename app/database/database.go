package database

import (
	"demo-engine/app/config"
	"demo-engine/app/logger"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 全局数据库实例
var DB *gorm.DB

// Init 初始化本地数据库连接
func Init(cfg *config.Config, log *logger.Logger) error {
	db, err := Open(cfg.Storage.DBPath)
	if err != nil {
		log.Errorf("打开本地数据库失败: %v", err)
		return err
	}

	DB = db
	log.Debugf("本地数据库已打开: %s", cfg.Storage.DBPath)
	return nil
}

// Open 打开指定路径的 sqlite 数据库并迁移表结构
func Open(dbPath string) (*gorm.DB, error) {
	if err := ensureDir(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Close 关闭数据库连接
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}

// ensureDir 确保目录存在
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
