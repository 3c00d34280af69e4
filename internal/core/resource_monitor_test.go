package core

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/models"
)

const gb = 1024 * 1024 * 1024

func newTestMonitor(config ResourceMonitorConfig, available uint64, cpuUsage float64) *ResourceMonitor {
	if config.TabMemoryUsage == 0 {
		config.TabMemoryUsage = defaultTabMemoryUsage
	}
	if config.CPULoadThreshold == 0 {
		config.CPULoadThreshold = cpuThresholdDisabled
	}
	rm := &ResourceMonitor{
		config:          config,
		availableMemory: func() (uint64, error) { return available, nil },
		cpuPercent:      func() (float64, error) { return cpuUsage, nil },
	}
	rm.sample()
	return rm
}

func minInt(values ...int) int {
	result := values[0]
	for _, v := range values[1:] {
		if v < result {
			result = v
		}
	}
	return result
}

func TestResourceMonitor_MaxConcurrency(t *testing.T) {
	tests := []struct {
		name      string
		config    ResourceMonitorConfig
		available uint64
		cpuUsage  float64
		limit     int
		want      int
	}{
		{
			name:      "内存充足不超过调用方上限",
			config:    ResourceMonitorConfig{MaxTabsLimit: 64},
			available: 64 * gb,
			limit:     1,
			want:      1,
		},
		{
			name:      "受MaxTabsLimit限制",
			config:    ResourceMonitorConfig{MaxTabsLimit: 2},
			available: 64 * gb,
			limit:     50,
			want:      minInt(2, runtime.NumCPU()),
		},
		{
			name:      "内存不足降到1",
			config:    ResourceMonitorConfig{MaxTabsLimit: 16, SafetyReserveMemory: 512 * 1024 * 1024},
			available: 256 * 1024 * 1024,
			limit:     8,
			want:      1,
		},
		{
			name:      "内存只够3个标签页",
			config:    ResourceMonitorConfig{MaxTabsLimit: 16},
			available: 3*defaultTabMemoryUsage + 1,
			limit:     8,
			want:      minInt(3, runtime.NumCPU()),
		},
		{
			name:      "CPU负载过高减半",
			config:    ResourceMonitorConfig{MaxTabsLimit: 16, CPULoadThreshold: 50},
			available: 64 * gb,
			cpuUsage:  95,
			limit:     2,
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newTestMonitor(tt.config, tt.available, tt.cpuUsage)
			got := rm.MaxConcurrency(tt.limit)
			if got != tt.want {
				t.Errorf("MaxConcurrency(%d) = %d, want %d", tt.limit, got, tt.want)
			}
			if got > tt.limit || got < 1 {
				t.Errorf("结果 %d 超出 [1, %d]", got, tt.limit)
			}
		})
	}
}

func TestResourceMonitor_SampleFailureFallsBack(t *testing.T) {
	rm := &ResourceMonitor{
		config:          ResourceMonitorConfig{MaxTabsLimit: 16, TabMemoryUsage: defaultTabMemoryUsage, CPULoadThreshold: 80},
		availableMemory: func() (uint64, error) { return 0, errors.New("no /proc") },
		cpuPercent:      func() (float64, error) { return 0, errors.New("no /proc") },
	}
	rm.sample()

	if got := rm.MaxConcurrency(1); got != 1 {
		t.Errorf("MaxConcurrency(1) = %d, want 1", got)
	}
}

func TestResourceMonitor_StartStop(t *testing.T) {
	rm := newTestMonitor(ResourceMonitorConfig{MaxTabsLimit: 4}, 8*gb, 0)

	rm.StartMonitoring(10 * time.Millisecond)
	rm.StartMonitoring(10 * time.Millisecond) // 幂等
	time.Sleep(30 * time.Millisecond)
	rm.StopMonitoring()
	rm.StopMonitoring()

	if rm.isRunning {
		t.Error("停止后不应处于运行状态")
	}
}

func TestDispatcher_ResourceMonitorOnlyLowersLimit(t *testing.T) {
	session := newFakeSession("chrome")
	rm := newTestMonitor(ResourceMonitorConfig{MaxTabsLimit: 1}, 64*gb, 0)

	if got := NewDispatcher(session, WithThreads(4), WithResourceMonitor(rm)).Limit(); got != 1 {
		t.Errorf("Limit() = %d, want 1", got)
	}

	rm = newTestMonitor(ResourceMonitorConfig{MaxTabsLimit: 64}, 64*gb, 0)
	if got := NewDispatcher(session, WithThreads(1), WithResourceMonitor(rm)).Limit(); got != 1 {
		t.Errorf("监控器不应提高上限, Limit() = %d", got)
	}
}

func TestDispatch_StartHookReceivesEffectiveLimit(t *testing.T) {
	tests := []struct {
		name    string
		threads int
		monitor *ResourceMonitor
		want    int
	}{
		{"未配置使用默认值", 0, nil, models.DefaultThreads},
		{"显式配置", 3, nil, 3},
		{"资源监控下调", 8, newTestMonitor(ResourceMonitorConfig{MaxTabsLimit: 1}, 64*gb, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession(browser.Chrome)
			got := -1
			err := Run(context.Background(), session, newTargets(t.TempDir(), 2), RunOptions{
				Threads: tt.threads,
				Monitor: tt.monitor,
				OnStart: func(limit int) { got = limit },
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("OnStart收到 %d, want %d", got, tt.want)
			}
		})
	}
}
