package core

import (
	"context"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/RecoveryAshes/webshot/internal/utils"
	"github.com/sourcegraph/conc/pool"
)

// Observer 接收每个截图任务的结果, 会被多个goroutine并发调用
type Observer func(result models.ShotResult)

// StartHook 在调度开始前收到本批次实际使用的并发上限
type StartHook func(limit int)

// Dispatcher 有界并发截图调度器
// 所有任务共享同一个会话, 同时执行的任务数不超过并发上限
type Dispatcher struct {
	session   browser.Session
	threads   int
	outputDir string
	waitTime  time.Duration
	observer  Observer
	onStart   StartHook
	monitor   *ResourceMonitor
}

// Option 调度器选项
type Option func(*Dispatcher)

// WithThreads 并发上限, <=0 使用默认值
func WithThreads(threads int) Option {
	return func(d *Dispatcher) {
		d.threads = threads
	}
}

// WithOutputDir 由URL生成的文件名放在该目录下, 显式指定的目标路径不受影响
func WithOutputDir(dir string) Option {
	return func(d *Dispatcher) {
		d.outputDir = dir
	}
}

// WithWaitTime 导航完成后截图前的等待时间
func WithWaitTime(wait time.Duration) Option {
	return func(d *Dispatcher) {
		d.waitTime = wait
	}
}

// WithObserver 设置结果观察者
func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// WithStartHook 设置调度开始回调
func WithStartHook(hook StartHook) Option {
	return func(d *Dispatcher) {
		d.onStart = hook
	}
}

// WithResourceMonitor 根据系统资源下调并发上限
func WithResourceMonitor(monitor *ResourceMonitor) Option {
	return func(d *Dispatcher) {
		d.monitor = monitor
	}
}

// NewDispatcher 创建调度器
func NewDispatcher(session browser.Session, opts ...Option) *Dispatcher {
	d := &Dispatcher{session: session}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Limit 有效并发上限
func (d *Dispatcher) Limit() int {
	limit := d.threads
	if limit <= 0 {
		limit = models.DefaultThreads
	}
	if d.monitor != nil {
		limit = d.monitor.MaxConcurrency(limit)
	}
	return limit
}

// outputPath 计算目标的输出路径
func (d *Dispatcher) outputPath(target models.Target) string {
	path := target.OutputPath()
	if target.Destination == "" && d.outputDir != "" {
		path = filepath.Join(d.outputDir, path)
	}
	return path
}

// Dispatch 为每个目标调度一个截图任务, 等待全部完成后返回
// 单个任务的失败只记录日志, 不会返回给调用方
func (d *Dispatcher) Dispatch(ctx context.Context, targets models.TargetSet) {
	limit := d.Limit()
	utils.Infof("📸 开始截图: %d 个目标, 并发上限 %d", len(targets), limit)
	if d.onStart != nil {
		d.onStart(limit)
	}

	if len(targets) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(limit)
	for _, target := range targets.Targets() {
		url := target.URL
		path := d.outputPath(target)
		p.Go(func() {
			result := runUnit(ctx, d.session, url, path, d.waitTime)
			if d.observer != nil {
				d.observer(result)
			}
		})
	}
	p.Wait()
}

// TakeScreenshots 以默认选项调度一批截图, threads<=0 时并发上限为5
func TakeScreenshots(ctx context.Context, targets models.TargetSet, session browser.Session, threads int) {
	NewDispatcher(session, WithThreads(threads)).Dispatch(ctx, targets)
}
