package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxIdlePages 池中最多保留的空闲标签页数
	DefaultMaxIdlePages = 16

	// maxCleanFailures 清理失败达到此次数的标签页被销毁
	maxCleanFailures = 2

	// cleanTimeout 归还时清理单个标签页的时限, 超时的标签页直接销毁
	cleanTimeout = 5 * time.Second

	blankURL = "about:blank"
)

// PageHealthStatus 标签页健康状态
type PageHealthStatus struct {
	CleanFailureCount int       // 连续清理失败次数
	LastSuccessTime   time.Time // 最后一次成功归还时间
}

// PagePool 标签页池
// 并发上限由调度器控制, 池只负责复用空闲标签页: 归还时清理状态, 清理失败过多则销毁
type PagePool struct {
	browser *rod.Browser
	setup   func(*rod.Page) error

	idle   chan *rod.Page
	health map[*rod.Page]*PageHealthStatus
	mu     sync.Mutex
	closed bool
}

// NewPagePool 创建标签页池, setup在每个新标签页创建后调用(可为nil)
func NewPagePool(browser *rod.Browser, maxIdle int, setup func(*rod.Page) error) *PagePool {
	if maxIdle < 1 {
		maxIdle = 1
	}
	return &PagePool{
		browser: browser,
		setup:   setup,
		idle:    make(chan *rod.Page, maxIdle),
		health:  make(map[*rod.Page]*PageHealthStatus),
	}
}

// AcquirePage 优先复用空闲标签页, 否则创建新标签页
func (pp *PagePool) AcquirePage(ctx context.Context) (*rod.Page, error) {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil, fmt.Errorf("标签页池已关闭")
	}
	pp.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case page := <-pp.idle:
		return page, nil
	default:
	}

	page, err := pp.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: blankURL})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败(浏览器可能已崩溃): %w", err)
	}
	// 去掉创建时的ctx, 标签页的生命周期由池管理
	page = page.Context(context.Background())

	if pp.setup != nil {
		if err := pp.setup(page); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("初始化标签页失败: %w", err)
		}
	}

	pp.mu.Lock()
	pp.health[page] = &PageHealthStatus{LastSuccessTime: time.Now()}
	size := len(pp.health)
	pp.mu.Unlock()

	log.Debug().Msgf("创建新标签页,当前标签页数: %d", size)
	return page, nil
}

// ReleasePage 清理并归还标签页
func (pp *PagePool) ReleasePage(page *rod.Page) {
	if page == nil {
		return
	}

	pp.mu.Lock()
	health, exists := pp.health[page]
	closed := pp.closed
	pp.mu.Unlock()

	if !exists || closed {
		pp.destroyPage(page)
		return
	}

	if err := pp.cleanPage(page); err != nil {
		pp.mu.Lock()
		health.CleanFailureCount++
		failures := health.CleanFailureCount
		pp.mu.Unlock()

		if shouldDestroy(err, failures) {
			log.Warn().Err(err).Msgf("清理标签页失败%d次,销毁该标签页", failures)
			pp.destroyPage(page)
			return
		}
		log.Warn().Err(err).Msgf("清理标签页失败 (第%d次)", failures)
	} else {
		pp.mu.Lock()
		health.CleanFailureCount = 0
		health.LastSuccessTime = time.Now()
		pp.mu.Unlock()
	}

	select {
	case pp.idle <- page:
	default:
		// 空闲池已满
		pp.destroyPage(page)
	}
}

// shouldDestroy 清理超时或连续失败过多的标签页不再复用
func shouldDestroy(err error, failures int) bool {
	return errors.Is(err, context.DeadlineExceeded) || failures >= maxCleanFailures
}

// cleanPage 清理存储并回到空白页, 整个过程不超过cleanTimeout
func (pp *PagePool) cleanPage(page *rod.Page) error {
	page = page.Timeout(cleanTimeout)
	defer page.CancelTimeout()

	_, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			try { if (window.localStorage) localStorage.clear(); } catch (e) {}
			try { if (window.sessionStorage) sessionStorage.clear(); } catch (e) {}
			return true;
		}`,
	})
	if err != nil {
		return fmt.Errorf("清理标签页状态失败: %w", err)
	}
	if err := page.Navigate(blankURL); err != nil {
		return fmt.Errorf("标签页回到空白页失败: %w", err)
	}
	return nil
}

// destroyPage 关闭并移除标签页
func (pp *PagePool) destroyPage(page *rod.Page) {
	pp.mu.Lock()
	delete(pp.health, page)
	size := len(pp.health)
	pp.mu.Unlock()

	if err := page.Close(); err != nil {
		log.Warn().Err(err).Msg("关闭标签页失败")
	}
	log.Debug().Msgf("销毁标签页,当前标签页数: %d", size)
}

// CurrentSize 当前存活的标签页数
func (pp *PagePool) CurrentSize() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.health)
}

// Close 关闭所有标签页, 之后的AcquirePage返回错误
func (pp *PagePool) Close() error {
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil
	}
	pp.closed = true
	pages := make([]*rod.Page, 0, len(pp.health))
	for page := range pp.health {
		pages = append(pages, page)
	}
	pp.health = make(map[*rod.Page]*PageHealthStatus)
	pp.mu.Unlock()

	for len(pp.idle) > 0 {
		<-pp.idle
	}

	for _, page := range pages {
		if err := page.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭标签页失败")
		}
	}

	log.Debug().Msg("标签页池已关闭")
	return nil
}
