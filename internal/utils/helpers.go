package utils

import (
	"bufio"
	"fmt"
	"os"

	"github.com/RecoveryAshes/webshot/internal/models"
)

// ReadTargetsFromFile 从文件中读取截图目标
// 每行格式: "URL [输出路径]", 空行和#注释跳过, 无效行警告后跳过
func ReadTargetsFromFile(filepath string) (models.TargetSet, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开目标文件失败: %w", err)
	}
	defer file.Close()

	targets := make(models.TargetSet)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		target, ok, err := models.ParseTargetLine(scanner.Text())
		if err != nil {
			Warnf("跳过无效目标 (行 %d): %v", lineNum, err)
			continue
		}
		if !ok {
			continue
		}

		if _, dup := targets[target.URL]; dup {
			Debugf("重复URL (行 %d), 以最后一次为准: %s", lineNum, target.URL)
		}
		targets.Add(target.URL, target.Destination)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取目标文件失败: %w", err)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("目标文件中没有有效的URL")
	}

	Infof("从文件加载了 %d 个目标", len(targets))
	return targets, nil
}
