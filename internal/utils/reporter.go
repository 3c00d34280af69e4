package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 汇总截图结果: 推进进度条并在结束时写出JSON报告
// Observe可被多个截图goroutine并发调用
type Reporter struct {
	outputDir string
	report    *models.BatchReport
	bar       *progressbar.ProgressBar
	mu        sync.Mutex
}

// NewReporter 创建报告生成器, showProgress为false时不显示进度条
func NewReporter(report *models.BatchReport, outputDir string, showProgress bool) *Reporter {
	r := &Reporter{
		outputDir: outputDir,
		report:    report,
	}
	if showProgress {
		r.bar = NewProgressBar(report.TotalTargets, "📸 截图中")
	}
	return r
}

// Observe 记录单个截图结果
func (r *Reporter) Observe(result models.ShotResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Record(result)
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// SetThreads 记录调度器实际使用的并发上限
func (r *Reporter) SetThreads(limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Threads = limit
}

// Report 返回报告
func (r *Reporter) Report() *models.BatchReport {
	return r.report
}

// Summarize 结束进度条并打印摘要, 不写报告文件
func (r *Reporter) Summarize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summarizeLocked()
}

func (r *Reporter) summarizeLocked() {
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Println()
	}
	r.report.Finish()
	r.printSummary()
}

// Finish 结束进度条, 打印摘要, 写出JSON报告并返回报告路径
func (r *Reporter) Finish() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summarizeLocked()

	reportsDir := filepath.Join(r.outputDir, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	data, err := r.report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	path := filepath.Join(reportsDir, fmt.Sprintf("batch_%s.json", r.report.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Infof("✅ 报告已生成: %s", path)
	return path, nil
}

func (r *Reporter) printSummary() {
	Info("==================================================")
	Info("📊 批量截图摘要")
	Info("==================================================")
	Infof("浏览器: %s", r.report.Browser)
	Infof("目标数: %d", r.report.TotalTargets)
	Infof("并发上限: %d", r.report.Threads)
	Infof("✅ 成功: %d", r.report.SuccessCount)
	Infof("❌ 失败: %d", r.report.FailCount)
	Infof("⏱️  总耗时: %.2f秒", r.report.Duration)
	Info("==================================================")

	if r.report.FailCount > 0 {
		Warn("失败的URL:")
		for _, result := range r.report.Results {
			if !result.Succeeded() {
				Warnf("  - %s: %s", result.URL, result.Error)
			}
		}
	}
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
