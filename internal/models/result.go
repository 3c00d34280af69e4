package models

import (
	"encoding/json"
	"time"
)

// ShotStatus 单个截图任务状态
type ShotStatus string

const (
	ShotStatusSucceeded ShotStatus = "succeeded" // 截图已写入
	ShotStatusFailed    ShotStatus = "failed"    // 打开标签页/导航/截图失败
)

// ShotResult 单个截图任务结果
// 只提供给观察者(进度条、报告), 不会从调度函数返回
type ShotResult struct {
	URL      string        `json:"url"`
	Path     string        `json:"path"`
	Status   ShotStatus    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded 是否成功
func (r ShotResult) Succeeded() bool {
	return r.Status == ShotStatusSucceeded
}

// BatchReport 批量截图报告
type BatchReport struct {
	ID           string       `json:"id"`         // 批次唯一ID (UUID)
	Browser      string       `json:"browser"`    // chrome | firefox
	Threads      int          `json:"threads"`    // 实际使用的并发上限
	OutputDir    string       `json:"output_dir"` // 输出目录
	StartTime    time.Time    `json:"start_time"`
	EndTime      time.Time    `json:"end_time"`
	Duration     float64      `json:"duration"` // 秒
	TotalTargets int          `json:"total_targets"`
	SuccessCount int          `json:"success_count"`
	FailCount    int          `json:"fail_count"`
	Results      []ShotResult `json:"results"`
}

// NewBatchReport 创建批量截图报告
func NewBatchReport(browser string, threads int, outputDir string, totalTargets int) *BatchReport {
	return &BatchReport{
		ID:           generateID(),
		Browser:      browser,
		Threads:      threads,
		OutputDir:    outputDir,
		StartTime:    time.Now(),
		TotalTargets: totalTargets,
		Results:      make([]ShotResult, 0, totalTargets),
	}
}

// Record 记录单个结果
func (r *BatchReport) Record(result ShotResult) {
	r.Results = append(r.Results, result)
	if result.Succeeded() {
		r.SuccessCount++
	} else {
		r.FailCount++
	}
}

// Finish 标记报告结束
func (r *BatchReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime).Seconds()
}

// ToJSON 序列化为JSON
func (r *BatchReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
