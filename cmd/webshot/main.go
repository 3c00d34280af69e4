package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/webshot/internal/browser"
	"github.com/RecoveryAshes/webshot/internal/core"
	"github.com/RecoveryAshes/webshot/internal/models"
	"github.com/RecoveryAshes/webshot/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string
	validateConfig bool

	// 截图参数
	targetURLs    []string
	urlFile       string
	outputDir     string
	browserName   string
	threads       int
	waitTime      int
	browserArgs   []string
	endpoint      string
	headless      bool
	writeReport   bool
	adaptive      bool
	installDriver bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "webshot",
	Short: "批量网页截图工具",
	Long: `webshot - 有界并发的批量网页截图工具

共享一个浏览器会话, 每个URL使用独立标签页截图, 同时进行的截图数不超过并发上限:
  • Chrome (go-rod launcher服务或本机启动)
  • Firefox (playwright run-server或本机启动)
  • 单个URL失败只记录日志, 不影响整批
  • 自定义HTTP请求头
  • JSON批次报告

示例:
  # 单个URL, 文件名由URL生成
  webshot -u https://example.com

  # 从文件读取目标, 每行 "URL [输出路径]"
  webshot -f targets.txt --threads 8 -o shots

  # 使用Firefox并传入启动参数
  webshot -u https://example.com --browser firefox --arg=-width=1280 --arg=-height=720

  # 本机启动Chrome并附加请求头
  webshot -u https://example.com --endpoint local -H "Authorization: Bearer token"

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = config

		logConfig := config.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd, appConfig); err != nil {
			return err
		}

		headerManager, err := core.NewHeaderManager(appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		if len(targetURLs) == 0 && urlFile == "" {
			return cmd.Help()
		}

		targets, err := collectTargets(targetURLs, urlFile)
		if err != nil {
			return err
		}

		return runScreenshots(cmd.Context(), appConfig, headerManager, targets)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webshot %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// applyFlags 命令行参数覆盖配置文件, 只处理用户显式指定的参数
func applyFlags(cmd *cobra.Command, cfg *core.Config) error {
	flags := cmd.Flags()

	if flags.Changed("browser") {
		cfg.Browser.Family = browserName
	}
	family, err := cfg.Family()
	if err != nil {
		return err
	}

	engine := &cfg.Browser.Chrome
	if family == browser.Firefox {
		engine = &cfg.Browser.Firefox.EngineConfig
	}
	if flags.Changed("endpoint") {
		engine.Endpoint = endpoint
	}
	if flags.Changed("headless") {
		engine.Headless = headless
	}
	if flags.Changed("arg") {
		engine.Args = append(engine.Args, browserArgs...)
	}
	if flags.Changed("install-driver") {
		cfg.Browser.Firefox.InstallDriver = installDriver
	}

	if flags.Changed("threads") {
		cfg.Dispatch.Threads = threads
	}
	if flags.Changed("wait") {
		cfg.Dispatch.WaitTime = waitTime
	}
	if flags.Changed("output") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("report") {
		cfg.Output.Report = writeReport
	}
	if flags.Changed("adaptive") {
		cfg.Resource.Adaptive = adaptive
	}

	return ValidateFlags(cfg.Dispatch.Threads, cfg.Dispatch.WaitTime, cfg.Output.Dir)
}

// runValidateConfig 验证配置并打印当前有效的请求头
func runValidateConfig(headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	family, err := appConfig.Family()
	if err != nil {
		return err
	}
	caps, err := appConfig.Capabilities(family)
	if err != nil {
		return err
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("浏览器: %s @ %s (无头模式: %v)", caps.Family, caps.Endpoint, caps.Headless)
	utils.Infof("启动参数: %v", caps.Args)
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

// runScreenshots 启动会话并执行一批截图
func runScreenshots(ctx context.Context, cfg *core.Config, headerManager *core.HeaderManager, targets models.TargetSet) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Ctrl+C 取消尚未完成的截图, 会话仍会正常退出
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在取消剩余截图...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	family, err := cfg.Family()
	if err != nil {
		return err
	}
	caps, err := cfg.Capabilities(family)
	if err != nil {
		return err
	}
	caps.Headers, err = headerManager.GetHeaders()
	if err != nil {
		return fmt.Errorf("HTTP头部无效: %w", err)
	}

	var monitor *core.ResourceMonitor
	if cfg.Resource.Adaptive {
		monitor = core.NewResourceMonitor(cfg.ResourceMonitorConfig())
		monitor.StartMonitoring(time.Second)
		defer monitor.StopMonitoring()
	}

	report := models.NewBatchReport(string(family), cfg.Dispatch.Threads, cfg.Output.Dir, len(targets))
	reporter := utils.NewReporter(report, cfg.Output.Dir, true)

	utils.Infof("🚀 浏览器: %s @ %s", caps.Family, caps.Endpoint)
	err = core.Run(ctx, nil, targets, core.RunOptions{
		Caps:      caps,
		Threads:   cfg.Dispatch.Threads,
		OutputDir: cfg.Output.Dir,
		WaitTime:  time.Duration(cfg.Dispatch.WaitTime) * time.Second,
		Observer:  reporter.Observe,
		Monitor:   monitor,
		OnStart:   reporter.SetThreads,
	})
	if err != nil {
		return err
	}

	if !cfg.Output.Report {
		reporter.Summarize()
		return nil
	}
	if _, err := reporter.Finish(); err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数, 值里可能含逗号, 不按逗号拆分
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 截图参数
	rootCmd.Flags().StringArrayVarP(&targetURLs, "url", "u", []string{}, "目标URL, 可附带输出路径 'URL 路径', 可多次指定")
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "目标文件, 每行 'URL [输出路径]'")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "screenshots", "由URL生成文件名时的输出目录")
	rootCmd.Flags().StringVar(&browserName, "browser", "chrome", "浏览器 (chrome|firefox)")
	rootCmd.Flags().IntVar(&threads, "threads", models.DefaultThreads, "并发截图数")
	rootCmd.Flags().IntVarP(&waitTime, "wait", "w", 0, "页面加载后截图前等待的秒数")
	rootCmd.Flags().StringArrayVar(&browserArgs, "arg", []string{}, "浏览器启动参数, 按顺序传入, 可多次指定")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "", "浏览器控制端点 ('local' 表示本机启动)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().BoolVar(&writeReport, "report", true, "写出JSON批次报告")
	rootCmd.Flags().BoolVar(&adaptive, "adaptive", false, "根据系统资源下调并发数")
	rootCmd.Flags().BoolVar(&installDriver, "install-driver", false, "启动前安装playwright驱动和Firefox")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
