package downloader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config 保存配置
type Config struct {
	UseTemp       bool  // 先写入 .part 临时文件，完成后再改名
	OverwriteFile bool  // 是否覆盖已存在的文件
	ExpectedSize  int64 // 期望大小，0 表示不校验
}

// DefaultConfig 默认保存配置
func DefaultConfig() *Config {
	return &Config{
		UseTemp:       true,
		OverwriteFile: false,
	}
}

// Result 下载结果
type Result struct {
	Size     int64         // 写入的字节数
	Duration time.Duration // 下载耗时
	Speed    float64       // 下载速度 (MB/s)
	Path     string        // 保存的文件路径
}

// FetchFunc 把内容写入 w，返回写入的字节数
type FetchFunc func(w io.Writer) (int64, error)

// SaveToFile 调用 fetch 把内容保存到 savePath，失败时不留下不完整的文件
func SaveToFile(savePath string, config *Config, fetch FetchFunc) (result *Result, err error) {
	if config == nil {
		config = DefaultConfig()
	}

	// 检查文件是否已存在
	if !config.OverwriteFile {
		if _, err := os.Stat(savePath); err == nil {
			return nil, fmt.Errorf("文件已存在: %s", savePath)
		}
	}

	// 确保保存目录存在
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return nil, fmt.Errorf("创建保存目录失败: %w", err)
	}

	targetPath := savePath
	if config.UseTemp {
		targetPath = savePath + ".part"
	}

	file, err := os.Create(targetPath)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			file.Close()
		}
		// 失败时删除未完成的文件
		if err != nil {
			os.Remove(targetPath)
		}
	}()

	startTime := time.Now()

	written, err := fetch(file)
	if err != nil {
		return nil, err
	}

	// 强制刷新数据到磁盘
	if err = file.Sync(); err != nil {
		return nil, fmt.Errorf("刷新文件到磁盘失败: %w", err)
	}
	closed = true
	if err = file.Close(); err != nil {
		return nil, fmt.Errorf("关闭文件失败: %w", err)
	}

	if config.ExpectedSize > 0 && written != config.ExpectedSize {
		err = fmt.Errorf("下载不完整: 期望 %d bytes, 实际 %d bytes", config.ExpectedSize, written)
		return nil, err
	}

	if config.UseTemp {
		if err = os.Rename(targetPath, savePath); err != nil {
			return nil, fmt.Errorf("重命名文件失败: %w", err)
		}
	}

	duration := time.Since(startTime)
	speed := 0.0
	if duration > 0 {
		speed = float64(written) / duration.Seconds() / 1024 / 1024 // MB/s
	}

	return &Result{
		Size:     written,
		Duration: duration,
		Speed:    speed,
		Path:     savePath,
	}, nil
}
