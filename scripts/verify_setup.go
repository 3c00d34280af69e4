package main

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  webshot 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	// 至少有一种浏览器可用即可
	browserOK := false

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	fmt.Println()
	fmt.Println("检查Chrome...")
	if checkEndpoint(browser.ChromeControlURL) {
		fmt.Printf("✅ rod launcher服务可用: %s\n", browser.ChromeControlURL)
		browserOK = true
	} else {
		fmt.Printf("⚠️  rod launcher服务不可用: %s\n", browser.ChromeControlURL)
		fmt.Println("   启动方法: docker run -p 7317:7317 ghcr.io/go-rod/rod")
	}
	if path, found := launcher.LookPath(); found {
		fmt.Printf("✅ 本机Chrome: %s (可使用 --endpoint local)\n", path)
		browserOK = true
	} else {
		fmt.Println("⚠️  未找到本机Chrome, --endpoint local 首次运行时会自动下载")
	}

	fmt.Println()
	fmt.Println("检查Firefox...")
	if checkEndpoint(browser.FirefoxControlURL) {
		fmt.Printf("✅ playwright服务可用: %s\n", browser.FirefoxControlURL)
		browserOK = true
	} else {
		fmt.Printf("⚠️  playwright服务不可用: %s\n", browser.FirefoxControlURL)
		fmt.Println("   启动方法: npx playwright run-server --port 4444")
	}
	if checkCommand("npx", "--version") {
		nodeVersion := getCommandOutput("node", "--version")
		fmt.Printf("✅ Node.js已安装: %s\n", strings.TrimSpace(nodeVersion))
	} else {
		fmt.Println("⚠️  Node.js未安装 - 无法启动playwright run-server")
	}

	fmt.Println()
	fmt.Println("==============================================")
	if browserOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build ./cmd/webshot' 构建项目")
		fmt.Println("  2. 运行 './webshot --help' 查看帮助")
		os.Exit(0)
	}
	fmt.Println("❌ 没有可用的浏览器,请解决上述问题。")
	os.Exit(1)
}

// checkEndpoint 检查控制端点的TCP端口是否可连接
func checkEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	conn, err := net.DialTimeout("tcp", u.Host, 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// checkCommand 检查命令是否可用
func checkCommand(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	err := cmd.Run()
	return err == nil
}

// getCommandOutput 获取命令输出
func getCommandOutput(name string, args ...string) string {
	cmd := exec.Command(name, args...)
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(output)
}
