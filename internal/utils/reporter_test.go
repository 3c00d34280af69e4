package utils

import (
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/RecoveryAshes/webshot/internal/models"
)

func TestReporter_ConcurrentObserve(t *testing.T) {
	outputDir := t.TempDir()
	report := models.NewBatchReport("firefox", 4, outputDir, 20)
	reporter := NewReporter(report, outputDir, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.ShotStatusSucceeded
			if i%4 == 0 {
				status = models.ShotStatusFailed
			}
			reporter.Observe(models.ShotResult{URL: "https://example.com", Status: status})
		}(i)
	}
	wg.Wait()

	path, err := reporter.Finish()
	if err != nil {
		t.Fatalf("生成报告失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取报告失败: %v", err)
	}

	var decoded models.BatchReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("报告不是合法JSON: %v", err)
	}

	if decoded.SuccessCount != 15 || decoded.FailCount != 5 {
		t.Errorf("统计错误: 成功=%d 失败=%d", decoded.SuccessCount, decoded.FailCount)
	}
	if len(decoded.Results) != 20 {
		t.Errorf("结果数 = %d, want 20", len(decoded.Results))
	}
}

func TestReporter_SummarizeWritesNoFile(t *testing.T) {
	outputDir := t.TempDir()
	report := models.NewBatchReport("chrome", 5, outputDir, 1)
	reporter := NewReporter(report, outputDir, false)

	reporter.Observe(models.ShotResult{URL: "https://example.com", Status: models.ShotStatusSucceeded})
	reporter.Summarize()

	if report.EndTime.IsZero() {
		t.Error("摘要后报告应记录结束时间")
	}
	if _, err := os.Stat(outputDir + "/reports"); !os.IsNotExist(err) {
		t.Errorf("Summarize不应写出报告目录, err = %v", err)
	}
}

func TestReporter_SetThreadsOverridesConfigured(t *testing.T) {
	outputDir := t.TempDir()
	// 配置里threads为0, 调度器实际使用默认值
	report := models.NewBatchReport("chrome", 0, outputDir, 1)
	reporter := NewReporter(report, outputDir, false)

	reporter.SetThreads(models.DefaultThreads)
	reporter.Observe(models.ShotResult{URL: "https://example.com", Status: models.ShotStatusSucceeded})

	path, err := reporter.Finish()
	if err != nil {
		t.Fatalf("生成报告失败: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取报告失败: %v", err)
	}

	var decoded models.BatchReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("报告不是合法JSON: %v", err)
	}
	if decoded.Threads != models.DefaultThreads {
		t.Errorf("报告中的并发上限 = %d, want %d", decoded.Threads, models.DefaultThreads)
	}
}
