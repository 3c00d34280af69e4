package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	rodutils "github.com/go-rod/rod/lib/utils"
	"github.com/rs/zerolog/log"
)

// ChromeSession 基于go-rod的Chrome会话
type ChromeSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher // 仅本机启动时非nil
	pool     *PagePool

	quitOnce sync.Once
	quitErr  error
}

// startChrome 连接launcher manager或本机启动Chrome
func startChrome(ctx context.Context, caps *Capabilities) (*ChromeSession, error) {
	l, err := newChromeLauncher(caps)
	if err != nil {
		return nil, err
	}

	session := &ChromeSession{}

	if caps.Endpoint == LocalEndpoint {
		controlURL, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器失败: %w", err)
		}
		session.launcher = l
		session.browser = rod.New().ControlURL(controlURL)
		log.Debug().Msgf("本机浏览器已启动: %s", controlURL)
	} else {
		client, err := l.Client()
		if err != nil {
			return nil, fmt.Errorf("连接launcher服务失败 [%s]: %w", caps.Endpoint, err)
		}
		session.browser = rod.New().Client(client)
	}

	if err := session.browser.Connect(); err != nil {
		if session.launcher != nil {
			session.launcher.Kill()
		}
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	session.pool = NewPagePool(session.browser, DefaultMaxIdlePages, chromePageSetup(caps))
	return session, nil
}

// newChromeLauncher 按能力配置构建launcher, 参数按顺序应用
func newChromeLauncher(caps *Capabilities) (*launcher.Launcher, error) {
	var l *launcher.Launcher
	if caps.Endpoint == LocalEndpoint {
		l = launcher.New()
	} else {
		managed, err := launcher.NewManaged(caps.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("连接launcher服务失败 [%s]: %w", caps.Endpoint, err)
		}
		l = managed
	}

	l = l.Headless(caps.Headless)
	for _, arg := range caps.launchArgs() {
		name, value, err := parseChromeArg(arg)
		if err != nil {
			return nil, err
		}
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}
	return l, nil
}

// parseChromeArg "--window-size=1280,720" -> ("window-size", "1280,720")
// 只规范化参数名, 值原样保留
func parseChromeArg(arg string) (name, value string, err error) {
	name, value, _ = strings.Cut(arg, "=")
	name = strings.TrimLeft(strings.TrimSpace(name), "-")
	if name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidArg, arg)
	}
	return name, value, nil
}

// chromePageSetup 新标签页的初始化: 注入额外HTTP头部
func chromePageSetup(caps *Capabilities) func(*rod.Page) error {
	headers := caps.headerMap()
	if len(headers) == 0 {
		return nil
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	dict := make([]string, 0, len(headers)*2)
	for _, name := range names {
		dict = append(dict, name, headers[name])
	}

	return func(page *rod.Page) error {
		_, err := page.SetExtraHeaders(dict)
		return err
	}
}

// Family 实现Session
func (s *ChromeSession) Family() Family {
	return Chrome
}

// NewTab 从标签页池获取标签页
func (s *ChromeSession) NewTab(ctx context.Context) (Tab, error) {
	page, err := s.pool.AcquirePage(ctx)
	if err != nil {
		return nil, err
	}
	return &chromeTab{pool: s.pool, page: page}, nil
}

// Quit 关闭标签页池和浏览器, 重复调用返回第一次的结果
func (s *ChromeSession) Quit() error {
	s.quitOnce.Do(func() {
		var errs []error
		if err := s.pool.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭浏览器失败: %w", err))
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.quitErr = errors.Join(errs...)
	})
	return s.quitErr
}

type chromeTab struct {
	pool *PagePool
	page *rod.Page
}

func (t *chromeTab) Navigate(ctx context.Context, url string) error {
	page := t.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}
	return nil
}

func (t *chromeTab) Capture(ctx context.Context, path string) error {
	data, err := t.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}
	// OutputFile 会创建父目录并覆盖已有文件
	if err := rodutils.OutputFile(path, data); err != nil {
		return fmt.Errorf("写入截图失败: %w", err)
	}
	return nil
}

// Close 归还标签页到池中
func (t *chromeTab) Close() error {
	t.pool.ReleasePage(t.page)
	return nil
}
