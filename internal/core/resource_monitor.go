package core

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/webshot/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// defaultTabMemoryUsage 单个标签页平均内存消耗
	defaultTabMemoryUsage = 100 * 1024 * 1024

	// cpuThresholdDisabled 阈值达到此值时不检查CPU负载
	cpuThresholdDisabled = 200
)

// ResourceMonitor 系统资源监控器
// 根据可用内存和CPU负载下调并发上限, 不会超过调用方给出的上限
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 可用内存采样函数, 测试中可替换
	availableMemory func() (uint64, error)
	cpuPercent      func() (float64, error)

	lastAvailable uint64
	lastCPUUsage  float64
	mu            sync.RWMutex

	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 安全阈值(字节)
	CPULoadThreshold    int   // CPU负载阈值(%)
	MaxTabsLimit        int   // 绝对最大标签页数
	TabMemoryUsage      int64 // 单个标签页平均内存消耗(字节)
}

// NewResourceMonitor 创建资源监控器并立即采样一次
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.TabMemoryUsage <= 0 {
		config.TabMemoryUsage = defaultTabMemoryUsage
	}
	if config.CPULoadThreshold <= 0 {
		config.CPULoadThreshold = cpuThresholdDisabled
	}

	rm := &ResourceMonitor{
		config:          config,
		availableMemory: systemAvailableMemory,
		cpuPercent:      systemCPUPercent,
	}
	rm.sample()

	rm.mu.RLock()
	utils.Debugf("系统可用内存: %.2f GB", float64(rm.lastAvailable)/(1024*1024*1024))
	rm.mu.RUnlock()
	return rm
}

func systemAvailableMemory() (uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmStat.Available, nil
}

func systemCPUPercent() (float64, error) {
	// perCPU=false 返回所有核心的平均使用率
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, nil
	}
	return percentages[0], nil
}

// sample 采样一次内存和CPU
func (rm *ResourceMonitor) sample() {
	available, err := rm.availableMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败: %v", err)
		available = 4 * 1024 * 1024 * 1024 // 默认4GB
	}

	var cpuUsage float64
	if rm.config.CPULoadThreshold < cpuThresholdDisabled {
		cpuUsage, err = rm.cpuPercent()
		if err != nil {
			utils.Warnf("获取CPU使用率失败: %v", err)
			cpuUsage = 0
		}
	}

	rm.mu.Lock()
	rm.lastAvailable = available
	rm.lastCPUUsage = cpuUsage
	rm.mu.Unlock()
}

// StartMonitoring 后台周期性采样, 重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.sample()
		}
	}
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// MaxConcurrency 计算有效并发上限
// 取 limit、内存允许的标签页数、CPU核数、MaxTabsLimit 中的最小值, 至少为1
func (rm *ResourceMonitor) MaxConcurrency(limit int) int {
	rm.mu.RLock()
	available := int64(rm.lastAvailable)
	cpuUsage := rm.lastCPUUsage
	rm.mu.RUnlock()

	result := limit

	usable := available - rm.config.SafetyReserveMemory
	byMemory := 1
	if usable > rm.config.SafetyThreshold {
		byMemory = int((usable - rm.config.SafetyThreshold) / rm.config.TabMemoryUsage)
	}
	if byMemory < result {
		result = byMemory
	}

	if byCPU := runtime.NumCPU(); byCPU < result {
		result = byCPU
	}
	if rm.config.MaxTabsLimit > 0 && rm.config.MaxTabsLimit < result {
		result = rm.config.MaxTabsLimit
	}

	// CPU负载过高时减半
	if rm.config.CPULoadThreshold < cpuThresholdDisabled && cpuUsage > float64(rm.config.CPULoadThreshold) {
		utils.Warnf("CPU负载过高(当前%.1f%%), 并发上限减半", cpuUsage)
		result /= 2
	}

	if result < 1 {
		result = 1
	}
	if result < limit {
		utils.Infof("根据系统资源将并发上限从%d调整为%d (可用内存%dMB)", limit, result, usable/(1024*1024))
	}
	return result
}
