package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
)

// fakeSession 记录并发数的假会话
type fakeSession struct {
	family   browser.Family
	delay    time.Duration
	failURLs map[string]bool // 导航失败的URL
	panicURL string
	quitErr  error

	inFlight  atomic.Int32
	peak      atomic.Int32
	tabs      atomic.Int32
	quitCalls atomic.Int32

	mu       sync.Mutex
	captured []string
}

func newFakeSession(family browser.Family) *fakeSession {
	return &fakeSession{family: family, failURLs: make(map[string]bool)}
}

func (s *fakeSession) Family() browser.Family { return s.family }

func (s *fakeSession) NewTab(ctx context.Context) (browser.Tab, error) {
	s.tabs.Add(1)
	n := s.inFlight.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return &fakeTab{session: s}, nil
}

func (s *fakeSession) Quit() error {
	s.quitCalls.Add(1)
	return s.quitErr
}

func (s *fakeSession) capturedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.captured...)
}

type fakeTab struct {
	session *fakeSession
	url     string
}

func (t *fakeTab) Navigate(ctx context.Context, url string) error {
	t.url = url
	if t.session.delay > 0 {
		time.Sleep(t.session.delay)
	}
	if url == t.session.panicURL {
		panic("模拟驱动崩溃")
	}
	if t.session.failURLs[url] {
		return errors.New("模拟导航失败")
	}
	return nil
}

func (t *fakeTab) Capture(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte("png:"+t.url), 0644); err != nil {
		return err
	}
	t.session.mu.Lock()
	t.session.captured = append(t.session.captured, path)
	t.session.mu.Unlock()
	return nil
}

func (t *fakeTab) Close() error {
	t.session.inFlight.Add(-1)
	return nil
}
