// Package browser 封装截图所需的浏览器会话
//
// # 概述
//
// 一个Session对应一个正在运行的浏览器实例, 被一批截图任务共享;
// 每个任务通过NewTab取得独立标签页, 完成导航和截图后关闭。
//
// # 浏览器家族
//
// ## Chrome
//
// 基于go-rod。默认连接rod launcher manager服务 (ChromeControlURL),
// Endpoint为LocalEndpoint时在本机启动Chrome进程。
// 启动参数按添加顺序调用launcher.Set, 同名参数后者覆盖前者:
//
//	caps := NewChromeCapabilities()
//	caps.AddArg("--window-size=1280,720")
//	session, err := Start(ctx, caps)
//
// 标签页来自PagePool: 归还时清理存储并回到about:blank, 连续清理失败的标签页被销毁。
//
// ## Firefox
//
// 基于playwright-go。默认连接playwright run-server (FirefoxControlURL),
// 远程模式下无头模式和启动参数通过 x-playwright-launch-options 头部传给服务端。
//
// # 错误
//
// Start的所有失败都包装为ErrSessionStart, 不重试。
package browser
