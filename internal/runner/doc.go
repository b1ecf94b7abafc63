// Package runner 实现任务执行端
//
// Server 在 TCP+TLS 上监听应用连接。每个连接是一个 session：
//   - control 通道：Hello / HelloAck 协商负载编解码器
//   - task 通道：Request / Cancel，结果以唯一的终态消息回送
//   - assembly 通道：解码缺少依赖时向应用请求
//   - file 通道：任务通过 ReadFile 读取应用侧文件
//
// 每个任务由一个 TaskWorker 执行：
//
//	AwaitingRequest → Executing → {Completed, Errored, Cancelled, TimedOut}
//
// 超时由 clock.AfterFunc 触发，立即发送 Timeout，执行 goroutine 稍后退出时
// 不会再发送第二条终态消息。容量由 Slots 管理（信号量 + 有界队列）。
//
// 配置了 MediatorAddr 时，reporter 向 Mediator 注册并周期性上报状态。
package runner
