package core

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/RecoveryAshes/webshot/internal/utils"
)

// ErrNoTargets 没有任何截图目标
var ErrNoTargets = errors.New("没有截图目标")

// RunOptions 一次批量截图的完整参数
type RunOptions struct {
	// Caps 新会话的能力配置, 调用方提供会话时忽略
	Caps *browser.Capabilities

	Threads   int
	OutputDir string
	WaitTime  time.Duration
	Observer  Observer
	Monitor   *ResourceMonitor

	// OnStart 收到实际使用的并发上限(默认值和资源监控下调之后)
	OnStart StartHook

	// AlwaysQuit 调用方提供的会话也在批次结束后退出
	AlwaysQuit bool
}

// Run 准备会话并调度一批截图
// 本次创建的会话在批次结束后退出, 调用方提供的会话只在AlwaysQuit时退出; 退出失败只记录日志
func Run(ctx context.Context, session browser.Session, targets models.TargetSet, opts RunOptions) error {
	created := session == nil

	session, err := InitSession(ctx, session, opts.Caps)
	if err != nil {
		return err
	}

	NewDispatcher(session,
		WithThreads(opts.Threads),
		WithOutputDir(opts.OutputDir),
		WithWaitTime(opts.WaitTime),
		WithObserver(opts.Observer),
		WithStartHook(opts.OnStart),
		WithResourceMonitor(opts.Monitor),
	).Dispatch(ctx, targets)

	if created || opts.AlwaysQuit {
		quitSession(session)
	}
	return nil
}

// quitSession 退出会话, 失败只记录日志
func quitSession(session browser.Session) {
	if err := session.Quit(); err != nil {
		utils.Warnf("关闭%s会话失败: %v", session.Family(), err)
	}
}

// TakeChromeScreenshots 使用Chrome会话批量截图
// session为nil时以无头模式启动新会话, chromeArgs按顺序作为启动参数; threads<=0时并发上限为5
func TakeChromeScreenshots(ctx context.Context, session browser.Session, chromeArgs []string, targets models.TargetSet, threads int) error {
	return takeScreenshots(ctx, browser.Chrome, session, chromeArgs, targets, threads)
}

// TakeFirefoxScreenshots 使用Firefox会话批量截图, 结束后总是退出会话
func TakeFirefoxScreenshots(ctx context.Context, session browser.Session, firefoxArgs []string, targets models.TargetSet, threads int) error {
	return takeScreenshots(ctx, browser.Firefox, session, firefoxArgs, targets, threads)
}

func takeScreenshots(ctx context.Context, family browser.Family, session browser.Session, args []string, targets models.TargetSet, threads int) error {
	opts := RunOptions{
		Threads:    threads,
		AlwaysQuit: family == browser.Firefox,
	}

	// 启动参数只作用于新建的会话
	if session == nil {
		caps, err := buildCapabilities(family, args)
		if err != nil {
			return err
		}
		opts.Caps = caps
	}
	return Run(ctx, session, targets, opts)
}
