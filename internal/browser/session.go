package browser

import (
	"context"
	"errors"
	"fmt"
)

// Family 浏览器家族
type Family string

const (
	Chrome  Family = "chrome"
	Firefox Family = "firefox"
)

// 各浏览器家族的默认控制端点
const (
	// ChromeControlURL rod launcher manager 服务地址 (docker: ghcr.io/go-rod/rod)
	ChromeControlURL = "ws://127.0.0.1:7317"

	// FirefoxControlURL playwright run-server 服务地址
	FirefoxControlURL = "ws://127.0.0.1:4444/"

	// LocalEndpoint 不连接外部服务, 直接在本机启动浏览器进程
	LocalEndpoint = "local"
)

var (
	ErrSessionStart      = errors.New("浏览器会话启动失败")
	ErrUnsupportedFamily = errors.New("不支持的浏览器类型")
	ErrInvalidArg        = errors.New("无效的浏览器启动参数")
)

// Session 一个正在运行、可远程控制的浏览器实例
// 同一个Session被所有并发截图任务共享, 每个任务通过NewTab获得独立的标签页
type Session interface {
	Family() Family
	NewTab(ctx context.Context) (Tab, error)
	Quit() error
}

// Tab 单个标签页, 只被一个截图任务使用
type Tab interface {
	Navigate(ctx context.Context, url string) error
	Capture(ctx context.Context, path string) error
	Close() error
}

// ParseFamily 解析浏览器家族名称
func ParseFamily(name string) (Family, error) {
	switch Family(name) {
	case Chrome, Firefox:
		return Family(name), nil
	case "chromium":
		return Chrome, nil
	}
	return "", fmt.Errorf("%w: %s (有效值: chrome, firefox)", ErrUnsupportedFamily, name)
}

// Start 按能力配置启动新会话, 失败立即返回, 不重试
func Start(ctx context.Context, caps *Capabilities) (Session, error) {
	if err := caps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStart, err)
	}

	switch caps.Family {
	case Chrome:
		session, err := startChrome(ctx, caps)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionStart, err)
		}
		return session, nil
	case Firefox:
		session, err := startFirefox(ctx, caps)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionStart, err)
		}
		return session, nil
	}
	return nil, fmt.Errorf("%w: %w: %s", ErrSessionStart, ErrUnsupportedFamily, caps.Family)
}
