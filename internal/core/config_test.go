package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/models"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// 切换到空目录, 避免读到仓库里的配置文件
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Browser.Family != "chrome" {
		t.Errorf("browser.family = %q, want chrome", cfg.Browser.Family)
	}
	if cfg.Browser.Chrome.Endpoint != browser.ChromeControlURL {
		t.Errorf("chrome.endpoint = %q", cfg.Browser.Chrome.Endpoint)
	}
	if cfg.Browser.Firefox.Endpoint != browser.FirefoxControlURL {
		t.Errorf("firefox.endpoint = %q", cfg.Browser.Firefox.Endpoint)
	}
	if !cfg.Browser.Chrome.Headless || !cfg.Browser.Firefox.Headless {
		t.Error("默认应为无头模式")
	}
	if cfg.Dispatch.Threads != models.DefaultThreads {
		t.Errorf("dispatch.threads = %d, want %d", cfg.Dispatch.Threads, models.DefaultThreads)
	}
	if cfg.Output.Dir != "screenshots" || !cfg.Output.Report {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Resource.Adaptive {
		t.Error("资源自适应默认关闭")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Rotation.MaxSize != 10 {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webshot.yaml")
	content := `
browser:
  family: firefox
  firefox:
    endpoint: local
    headless: false
    args: ["-width=1280", "-height=720"]
    install_driver: true
dispatch:
  threads: 12
  wait_time: 2
output:
  dir: out
headers:
  X-Team: qa
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	family, err := cfg.Family()
	if err != nil || family != browser.Firefox {
		t.Fatalf("Family() = %q, %v", family, err)
	}
	if cfg.Dispatch.Threads != 12 || cfg.Dispatch.WaitTime != 2 {
		t.Errorf("dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Output.Dir != "out" {
		t.Errorf("output.dir = %q", cfg.Output.Dir)
	}
	// 未在文件中出现的键仍取默认值
	if cfg.Browser.Chrome.Endpoint != browser.ChromeControlURL {
		t.Errorf("chrome.endpoint = %q", cfg.Browser.Chrome.Endpoint)
	}
	if cfg.Headers["x-team"] != "qa" {
		t.Errorf("headers = %v", cfg.Headers)
	}

	caps, err := cfg.Capabilities(family)
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if caps.Endpoint != browser.LocalEndpoint || caps.Headless || !caps.InstallDriver {
		t.Errorf("caps = %+v", caps)
	}
	if !reflect.DeepEqual(caps.Args, []string{"-width=1280", "-height=720"}) {
		t.Errorf("caps.Args = %v", caps.Args)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		var configErr *models.ConfigError
		if !errors.As(err, &configErr) {
			t.Errorf("期望ConfigError, 实际: %v", err)
		}
	})

	t.Run("YAML格式错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("browser: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("期望YAML解析错误")
		}
	})
}

func TestConfig_CapabilitiesKeepsArgsVerbatim(t *testing.T) {
	cfg := &Config{}
	args := []string{"--disable-gpu", " ", "--lang=zh-CN"}
	cfg.Browser.Chrome = EngineConfig{Headless: true, Args: args}

	caps, err := cfg.Capabilities(browser.Chrome)
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if !reflect.DeepEqual(caps.Args, args) {
		t.Errorf("caps.Args = %q, want %q", caps.Args, args)
	}
}
