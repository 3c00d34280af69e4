package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/webshot/internal/core"
	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/RecoveryAshes/webshot/internal/utils"
)

// ValidateFlags 验证合并后的调度参数
// threads<=0 表示使用默认并发数
func ValidateFlags(threads int, waitTime int, outputDir string) error {
	if threads > 100 {
		return fmt.Errorf("并发数不能超过100,当前值: %d", threads)
	}

	if waitTime < 0 || waitTime > 60 {
		return fmt.Errorf("等待时间必须在0-60秒之间,当前值: %d", waitTime)
	}

	if strings.TrimSpace(outputDir) == "" {
		return fmt.Errorf("输出目录不能为空")
	}

	return nil
}

// NormalizeURL 规范化URL, 没有协议时默认使用https
func NormalizeURL(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// collectTargets 合并 -u 参数和目标文件, 同一URL以 -u 为准
func collectTargets(urls []string, urlFile string) (models.TargetSet, error) {
	targets := make(models.TargetSet)

	if urlFile != "" {
		fromFile, err := utils.ReadTargetsFromFile(urlFile)
		if err != nil {
			return nil, err
		}
		for u, dest := range fromFile {
			targets.Add(u, dest)
		}
	}

	for _, raw := range urls {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}

		normalized, err := NormalizeURL(fields[0])
		if err != nil {
			return nil, fmt.Errorf("无效的目标URL: %w", err)
		}
		fields[0] = normalized

		target, ok, err := models.ParseTargetLine(strings.Join(fields, " "))
		if err != nil {
			return nil, fmt.Errorf("无效的目标 %q: %w", raw, err)
		}
		if ok {
			targets.Add(target.URL, target.Destination)
		}
	}

	if len(targets) == 0 {
		return nil, core.ErrNoTargets
	}
	return targets, nil
}
