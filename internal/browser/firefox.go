package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"
)

const (
	// playwright run-server 从该头部读取启动参数
	launchOptionsHeader = "x-playwright-launch-options"
	browserNameHeader   = "x-playwright-browser"
)

// firefoxLaunchOptions 通过头部传给 run-server 的启动参数
type firefoxLaunchOptions struct {
	Headless bool     `json:"headless"`
	Args     []string `json:"args,omitempty"`
}

// FirefoxSession 基于playwright-go的Firefox会话
type FirefoxSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	headers map[string]string

	quitOnce sync.Once
	quitErr  error
}

func startFirefox(ctx context.Context, caps *Capabilities) (*FirefoxSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runOpts := &playwright.RunOptions{
		Browsers:            []string{string(Firefox)},
		SkipInstallBrowsers: caps.Endpoint != LocalEndpoint,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}

	if caps.InstallDriver {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("安装playwright驱动失败: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("启动playwright驱动失败: %w", err)
	}

	browser, err := launchFirefox(pw, caps)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	return &FirefoxSession{
		pw:      pw,
		browser: browser,
		headers: caps.headerMap(),
	}, nil
}

func launchFirefox(pw *playwright.Playwright, caps *Capabilities) (playwright.Browser, error) {
	if caps.Endpoint == LocalEndpoint {
		browser, err := pw.Firefox.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(caps.Headless),
			Args:     caps.launchArgs(),
		})
		if err != nil {
			return nil, fmt.Errorf("启动Firefox失败: %w", err)
		}
		return browser, nil
	}

	headers, err := firefoxConnectHeaders(caps)
	if err != nil {
		return nil, err
	}
	browser, err := pw.Firefox.Connect(caps.Endpoint, playwright.BrowserTypeConnectOptions{
		Headers: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("连接playwright服务失败 [%s]: %w", caps.Endpoint, err)
	}
	return browser, nil
}

// firefoxConnectHeaders 远程模式下启动参数只能随连接头部下发
func firefoxConnectHeaders(caps *Capabilities) (map[string]string, error) {
	opts, err := json.Marshal(firefoxLaunchOptions{
		Headless: caps.Headless,
		Args:     caps.launchArgs(),
	})
	if err != nil {
		return nil, fmt.Errorf("序列化启动参数失败: %w", err)
	}
	return map[string]string{
		launchOptionsHeader: string(opts),
		browserNameHeader:   string(Firefox),
	}, nil
}

// Family 实现Session
func (s *FirefoxSession) Family() Family {
	return Firefox
}

// NewTab 打开新页面
func (s *FirefoxSession) NewTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	if len(s.headers) > 0 {
		if err := page.SetExtraHTTPHeaders(s.headers); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("设置HTTP头部失败: %w", err)
		}
	}
	return &firefoxTab{page: page}, nil
}

// Quit 关闭浏览器并停止playwright驱动
func (s *FirefoxSession) Quit() error {
	s.quitOnce.Do(func() {
		var errs []error
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭浏览器失败: %w", err))
		}
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("停止playwright驱动失败: %w", err))
		}
		s.quitErr = errors.Join(errs...)
	})
	return s.quitErr
}

type firefoxTab struct {
	page playwright.Page
}

func (t *firefoxTab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	return nil
}

func (t *firefoxTab) Capture(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建截图目录失败: %w", err)
		}
	}
	if _, err := t.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
		Type: playwright.ScreenshotTypePng,
	}); err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}
	return nil
}

func (t *firefoxTab) Close() error {
	return t.page.Close()
}
