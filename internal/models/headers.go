package models

import (
	"fmt"
	"net/http"
	"strings"
)

// CliHeaders 命令行 -H 传入的头部, 每项格式为 "Name: Value"
type CliHeaders []string

// Parse 解析为 http.Header, 同名头部后者覆盖前者
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, err := parseHeaderString(s)
		if err != nil {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: %w", i+1, err)
		}
		result.Set(name, value)
	}
	return result, nil
}

func parseHeaderString(s string) (name, value string, err error) {
	name, value, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("缺少冒号分隔符,应为 'Name: Value'")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("头部名称不能为空")
	}
	return name, strings.TrimSpace(value), nil
}

// HeaderProvider 提供每个标签页导航时附加的HTTP头部
type HeaderProvider interface {
	// GetHeaders 返回按优先级合并后的头部(默认 < 配置 < 命令行)
	GetHeaders() (http.Header, error)
}

// ValidationError 头部验证错误
type ValidationError struct {
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
type ConfigError struct {
	FilePath string
	Cause    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Is/As
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
