package core

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/webshot/internal/browser"
)

// startSession 启动新会话, 测试中替换为假会话
var startSession = browser.Start

// InitSession 准备可用的浏览器会话
// 调用方提供了会话则原样使用(caps被忽略), 否则按caps启动新会话, 失败立即返回
func InitSession(ctx context.Context, session browser.Session, caps *browser.Capabilities) (browser.Session, error) {
	if session != nil {
		return session, nil
	}
	if caps == nil {
		return nil, fmt.Errorf("%w: 缺少能力配置", browser.ErrSessionStart)
	}
	return startSession(ctx, caps)
}

// buildCapabilities 默认无头模式, 按顺序追加启动参数
func buildCapabilities(family browser.Family, args []string) (*browser.Capabilities, error) {
	caps, err := browser.NewCapabilities(family)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", browser.ErrSessionStart, err)
	}
	caps.AddArgs(args)
	return caps, nil
}
