// Package client 实现应用侧的任务提交
//
// Run 的流程：
//
//  1. 定位 Runner：显式 Endpoint，或通过 Mediator 查找
//  2. 从连接池取连接（LRU，淘汰时断开），每个连接只协商一次编解码器
//  3. 发送 Request，等待唯一的终态消息
//  4. ctx 取消时发送 Cancel，在 CancelGrace 内等待终态，返回 ErrCancelled
//
// ErrRunnerBusy、ErrRunnerNotAvailable、ErrLookupTimeout 会在 MaxTries 次内重试，
// 默认没有退避（RetryDelay 可调）。任务超时、取消、执行错误与连接中断不重试。
//
// 连接上同时服务 Runner 的依赖请求（AssemblyResolver）和文件请求（FileProvider）。
package client
