package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

const (
	// ImageExtension 截图文件固定扩展名
	ImageExtension = ".png"

	// DefaultThreads 默认并发截图数
	DefaultThreads = 5

	// maxFileNameLength 由URL派生的文件名最大长度(字节, 不含扩展名)
	maxFileNameLength = 200

	// fallbackFileName URL清洗后为空时使用的文件名
	fallbackFileName = "screenshot"

	// urlHashLength 文件名后缀中URL哈希的十六进制位数
	urlHashLength = 8
)

// Target 截图目标: URL + 可选的输出路径
type Target struct {
	URL         string `json:"url"`
	Destination string `json:"destination,omitempty"` // 为空时由URL派生
}

// OutputPath 返回该目标的截图输出路径
func (t Target) OutputPath() string {
	return OutputPath(t.URL, t.Destination)
}

// TargetSet URL -> 可选输出路径
// 重复URL自然合并, 不做校验
type TargetSet map[string]string

// Add 添加目标, destination可为空
func (ts TargetSet) Add(url, destination string) {
	ts[url] = destination
}

// Targets 返回按URL排序的目标列表
func (ts TargetSet) Targets() []Target {
	targets := make([]Target, 0, len(ts))
	for url, dest := range ts {
		targets = append(targets, Target{URL: url, Destination: dest})
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].URL < targets[j].URL
	})
	return targets
}

// OutputPath 计算截图输出路径
//   - destination非空: 替换扩展名为.png (out.txt -> out.png)
//   - destination为空: 清洗后的URL加上原始URL的哈希, 再追加.png
func OutputPath(url, destination string) string {
	if destination != "" {
		return replaceExtension(destination)
	}
	return URLFileName(url)
}

// URLFileName 由URL派生的文件名: "<清洗后的URL>-<sha256前8位>.png"
// 清洗会丢失协议、大小写和分隔符, 哈希按原始URL计算, 保证不同URL对应不同文件
func URLFileName(rawURL string) string {
	return SanitizeURL(rawURL) + "-" + urlHash(rawURL) + ImageExtension
}

func urlHash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:urlHashLength]
}

// replaceExtension 将路径扩展名替换为ImageExtension
// 以点开头且无其他扩展名的文件名(如 .hidden)视为无扩展名
func replaceExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == filepath.Base(path) {
		ext = ""
	}
	return strings.TrimSuffix(path, ext) + ImageExtension
}

// SanitizeURL 将URL转换为单层、跨平台安全的文件名(不含扩展名)
// 去掉协议, 主机名转为小写ASCII(IDNA), 非[A-Za-z0-9._-]字符替换为下划线
func SanitizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}

	// 主机部分单独做IDNA转换
	host, rest := s, ""
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		host, rest = s[:idx], s[idx:]
	}
	if ascii, err := idna.ToASCII(strings.ToLower(host)); err == nil {
		host = ascii
	} else {
		host = strings.ToLower(host)
	}
	s = host + rest

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if isSafeRune(r) {
			b.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	name := strings.Trim(b.String(), "_.")
	if len(name) > maxFileNameLength {
		name = strings.TrimRight(name[:maxFileNameLength], "_.")
	}
	if name == "" {
		return fallbackFileName
	}
	return name
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

// ParseTargetLine 解析目标文件中的一行: "URL [输出路径]"
// 空行和#注释返回ok=false
func ParseTargetLine(line string) (target Target, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Target{}, false, nil
	}

	fields := strings.Fields(line)
	if len(fields) > 2 {
		return Target{}, false, fmt.Errorf("字段过多: 期望 'URL [输出路径]', 实际%d个字段", len(fields))
	}

	if err := ValidateURL(fields[0]); err != nil {
		return Target{}, false, err
	}

	target.URL = fields[0]
	if len(fields) == 2 {
		target.Destination = fields[1]
	}
	return target, true, nil
}
