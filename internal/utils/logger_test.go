package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogConfig(t *testing.T, level string) LogConfig {
	t.Helper()
	return LogConfig{
		Level:      level,
		LogDir:     t.TempDir(),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
		NoColor:    true,
	}
}

func TestInitLogger(t *testing.T) {
	config := newTestLogConfig(t, "debug")

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("测试信息日志")
	Warn("测试警告日志")
	Debug("测试调试日志")

	time.Sleep(100 * time.Millisecond)

	mainLogPath := filepath.Join(config.LogDir, "webshot.log")
	if _, err := os.Stat(mainLogPath); os.IsNotExist(err) {
		t.Errorf("主日志文件未创建: %s", mainLogPath)
	}
}

func TestLogLevels(t *testing.T) {
	config := newTestLogConfig(t, "info")

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Infof("格式化信息日志: %s", "可见")
	Debugf("格式化调试日志: %s", "不可见")

	time.Sleep(100 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(config.LogDir, "webshot.log"))
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}

	if !strings.Contains(string(content), "可见") {
		t.Error("信息日志未写入")
	}
	if strings.Contains(string(content), "不可见") {
		t.Error("info级别下不应写入调试日志")
	}
}

func TestErrorLogFileOnlyErrors(t *testing.T) {
	config := newTestLogConfig(t, "info")

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Warn("仅主日志的警告")
	Errorf("写入错误日志: %d", 42)

	time.Sleep(100 * time.Millisecond)

	content, err := os.ReadFile(filepath.Join(config.LogDir, "webshot_error.log"))
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}

	if !strings.Contains(string(content), "写入错误日志: 42") {
		t.Error("错误日志未写入错误级别消息")
	}
	if strings.Contains(string(content), "仅主日志的警告") {
		t.Error("错误日志不应包含警告级别消息")
	}
}

func TestFilteredWriter(t *testing.T) {
	var sb strings.Builder
	w := &FilteredWriter{Writer: &sb, MinLevel: zerolog.ErrorLevel}

	if _, err := w.WriteLevel(zerolog.WarnLevel, []byte("warn")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteLevel(zerolog.ErrorLevel, []byte("error")); err != nil {
		t.Fatal(err)
	}

	if sb.String() != "error" {
		t.Errorf("FilteredWriter写入内容 = %q, want %q", sb.String(), "error")
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转配置错误: %+v", config)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}
