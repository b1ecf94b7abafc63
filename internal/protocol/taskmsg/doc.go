// Package taskmsg 定义应用、Runner 与 Mediator 之间交换的任务协议消息
//
// 消息集合是封闭的，每种消息对应一个带版本的 tag（*.v1），
// 通过 NewRegistry 注册到 message.Registry。
//
// 众所周知的逻辑通道：
//
//	control         = 1  App ↔ Runner    任务类型协商（Hello / HelloAck）
//	task            = 2  App ↔ Runner    Request / Response / Error / Cancel / Cancelled / Timeout
//	assembly        = 3  App ↔ Runner    依赖解析（AssemblyRequest / AssemblyResponse）
//	file            = 4  Runner ↔ App    文件代理（FileRequest / FileResponse）
//	app-mediator    = 5  App ↔ Mediator  RunnerRequest / RunnerResponse
//	runner-mediator = 6  Runner ↔ Mediator RunnerRegister / RunnerStatus
package taskmsg
