package pathhelper

import (
	"path/filepath"
	"regexp"
	"strings"
)

// 文件名中不允许出现的字符
var unsafeNamePattern = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// SanitizeFileName 替换文件名中的非法字符，结果为空时返回 fallback
func SanitizeFileName(name, fallback string) string {
	name = strings.TrimSpace(unsafeNamePattern.ReplaceAllString(name, "_"))
	name = strings.Trim(name, ". ")
	if name == "" {
		return fallback
	}
	return name
}

// EnsureExt 确保路径以 ext 结尾（不区分大小写）
func EnsureExt(path, ext string) string {
	if ext == "" {
		return path
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return path + ext
}

// OutputPath 计算保存路径：output 为空时用 name 命名，output 是目录时放到该目录下
func OutputPath(output, name, ext string, isDir func(string) bool) string {
	fileName := EnsureExt(SanitizeFileName(name, "demo"), ext)
	switch {
	case output == "":
		return fileName
	case strings.HasSuffix(output, "/") || strings.HasSuffix(output, "\\") || (isDir != nil && isDir(output)):
		return filepath.Join(output, fileName)
	}
	return output
}
