package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/RecoveryAshes/webshot/internal/utils"
)

// Screenshot 打开标签页, 导航到url并把截图写入path
// 任何失败都只记录一条警告, 不重试也不返回错误
func Screenshot(ctx context.Context, session browser.Session, url, path string) {
	runUnit(ctx, session, url, path, 0)
}

// runUnit 执行单个截图任务并返回结果
func runUnit(ctx context.Context, session browser.Session, url, path string, wait time.Duration) models.ShotResult {
	start := time.Now()
	result := models.ShotResult{URL: url, Path: path}

	if err := navigateAndCapture(ctx, session, url, path, wait); err != nil {
		utils.Warnf("截图失败 [%s]: %v", url, err)
		result.Status = models.ShotStatusFailed
		result.Error = err.Error()
	} else {
		utils.Debugf("截图完成 [%s] -> %s", url, path)
		result.Status = models.ShotStatusSucceeded
	}

	result.Duration = time.Since(start)
	return result
}

// navigateAndCapture 导航失败时不会截图, panic转换为错误
func navigateAndCapture(ctx context.Context, session browser.Session, url, path string, wait time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	tab, err := session.NewTab(ctx)
	if err != nil {
		return fmt.Errorf("打开标签页失败: %w", err)
	}
	defer func() {
		if closeErr := tab.Close(); closeErr != nil {
			utils.Debugf("关闭标签页失败 [%s]: %v", url, closeErr)
		}
	}()

	if err := tab.Navigate(ctx, url); err != nil {
		return err
	}

	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return tab.Capture(ctx, path)
}
