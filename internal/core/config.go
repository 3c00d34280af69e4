package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/RecoveryAshes/webshot/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Browser  BrowserConfig     `mapstructure:"browser"`
	Dispatch DispatchConfig    `mapstructure:"dispatch"`
	Output   OutputConfig      `mapstructure:"output"`
	Resource ResourceConfig    `mapstructure:"resource"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Headers  map[string]string `mapstructure:"headers"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Family  string        `mapstructure:"family"`
	Chrome  EngineConfig  `mapstructure:"chrome"`
	Firefox FirefoxConfig `mapstructure:"firefox"`
}

// EngineConfig 单个浏览器家族的启动配置
type EngineConfig struct {
	Endpoint string   `mapstructure:"endpoint"`
	Headless bool     `mapstructure:"headless"`
	Args     []string `mapstructure:"args"`
}

// FirefoxConfig Firefox额外支持自动安装驱动
type FirefoxConfig struct {
	EngineConfig  `mapstructure:",squash"`
	InstallDriver bool `mapstructure:"install_driver"`
}

// DispatchConfig 调度配置
type DispatchConfig struct {
	Threads  int `mapstructure:"threads"`
	WaitTime int `mapstructure:"wait_time"` // 导航完成后等待的秒数
}

// OutputConfig 输出配置
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Report bool   `mapstructure:"report"`
}

// ResourceConfig 资源自适应配置
type ResourceConfig struct {
	Adaptive            bool  `mapstructure:"adaptive"`
	MaxTabsLimit        int   `mapstructure:"max_tabs_limit"`
	SafetyReserveMemory int64 `mapstructure:"safety_reserve_memory"`
	SafetyThreshold     int64 `mapstructure:"safety_threshold"`
	CPULoadThreshold    int   `mapstructure:"cpu_load_threshold"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// LoadConfig 加载配置文件, configPath为空时搜索默认位置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".webshot"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
		// 配置文件不存在,使用默认值
	} else {
		utils.Debugf("已加载配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("解析配置文件失败: %w", err),
		}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("browser.family", string(browser.Chrome))
	v.SetDefault("browser.chrome.endpoint", browser.ChromeControlURL)
	v.SetDefault("browser.chrome.headless", true)
	v.SetDefault("browser.chrome.args", []string{})
	v.SetDefault("browser.firefox.endpoint", browser.FirefoxControlURL)
	v.SetDefault("browser.firefox.headless", true)
	v.SetDefault("browser.firefox.args", []string{})
	v.SetDefault("browser.firefox.install_driver", false)

	v.SetDefault("dispatch.threads", models.DefaultThreads)
	v.SetDefault("dispatch.wait_time", 0)

	v.SetDefault("output.dir", "screenshots")
	v.SetDefault("output.report", true)

	v.SetDefault("resource.adaptive", false)
	v.SetDefault("resource.max_tabs_limit", 16)
	v.SetDefault("resource.safety_reserve_memory", 512*1024*1024)
	v.SetDefault("resource.safety_threshold", 256*1024*1024)
	v.SetDefault("resource.cpu_load_threshold", 80)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// LogConfig 转换为日志模块的配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// Family 当前选择的浏览器家族
func (c *Config) Family() (browser.Family, error) {
	return browser.ParseFamily(c.Browser.Family)
}

// Engine 返回指定家族的启动配置
func (c *Config) Engine(family browser.Family) EngineConfig {
	if family == browser.Firefox {
		return c.Browser.Firefox.EngineConfig
	}
	return c.Browser.Chrome
}

// Capabilities 根据配置构建新会话的能力配置
func (c *Config) Capabilities(family browser.Family) (*browser.Capabilities, error) {
	caps, err := browser.NewCapabilities(family)
	if err != nil {
		return nil, err
	}

	engine := c.Engine(family)
	if engine.Endpoint != "" {
		caps.Endpoint = engine.Endpoint
	}
	caps.SetHeadless(engine.Headless)
	caps.AddArgs(engine.Args)
	if family == browser.Firefox {
		caps.InstallDriver = c.Browser.Firefox.InstallDriver
	}
	return caps, nil
}

// ResourceMonitorConfig 转换为资源监控器配置
func (c *Config) ResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveMemory: c.Resource.SafetyReserveMemory,
		SafetyThreshold:     c.Resource.SafetyThreshold,
		CPULoadThreshold:    c.Resource.CPULoadThreshold,
		MaxTabsLimit:        c.Resource.MaxTabsLimit,
	}
}
