package browser

import (
	"fmt"
	"net/http"
	"strings"
)

// Capabilities 新会话的启动配置
// 只对由Start创建的会话生效, 调用方传入的现成会话不受影响
type Capabilities struct {
	Family   Family
	Endpoint string // 控制端点, LocalEndpoint表示本机启动
	Headless bool
	Args     []string    // 额外启动参数, 按添加顺序传给浏览器
	Headers  http.Header // 每个标签页附加的HTTP头部

	// InstallDriver 启动前安装playwright驱动和Firefox (仅Firefox)
	InstallDriver bool
}

// NewChromeCapabilities 默认无头模式的Chrome配置
func NewChromeCapabilities() *Capabilities {
	return &Capabilities{
		Family:   Chrome,
		Endpoint: ChromeControlURL,
		Headless: true,
	}
}

// NewFirefoxCapabilities 默认无头模式的Firefox配置
func NewFirefoxCapabilities() *Capabilities {
	return &Capabilities{
		Family:   Firefox,
		Endpoint: FirefoxControlURL,
		Headless: true,
	}
}

// NewCapabilities 按家族创建默认配置
func NewCapabilities(family Family) (*Capabilities, error) {
	switch family {
	case Chrome:
		return NewChromeCapabilities(), nil
	case Firefox:
		return NewFirefoxCapabilities(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
}

// SetHeadless 设置无头模式
func (c *Capabilities) SetHeadless(headless bool) {
	c.Headless = headless
}

// AddArg 原样追加一个启动参数
// 顺序保留: 同名参数后者覆盖前者
func (c *Capabilities) AddArg(arg string) {
	c.Args = append(c.Args, arg)
}

// AddArgs 依次原样追加启动参数
func (c *Capabilities) AddArgs(args []string) {
	c.Args = append(c.Args, args...)
}

// launchArgs 交给浏览器的参数: 跳过空白参数, 其余原样保留
func (c *Capabilities) launchArgs() []string {
	args := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		if strings.TrimSpace(arg) == "" {
			continue
		}
		args = append(args, arg)
	}
	return args
}

// Validate 检查配置完整性
func (c *Capabilities) Validate() error {
	if c == nil {
		return fmt.Errorf("能力配置为空")
	}
	if _, err := ParseFamily(string(c.Family)); err != nil {
		return err
	}
	if c.Endpoint == "" {
		return fmt.Errorf("控制端点不能为空")
	}
	return nil
}

// headerMap 每个头部只取第一个值
func (c *Capabilities) headerMap() map[string]string {
	if len(c.Headers) == 0 {
		return nil
	}
	result := make(map[string]string, len(c.Headers))
	for name, values := range c.Headers {
		if len(values) > 0 {
			result[name] = values[0]
		}
	}
	return result
}
