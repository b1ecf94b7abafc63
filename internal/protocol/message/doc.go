// Package message 在逻辑通道上收发类型化消息
//
// 消息信封：
//
//	+-----------+-------------+-----------+------------+
//	| tag len   |  tag UTF-8  | body len  |    body    |
//	| int32 BE  |             | int32 BE  |            |
//	+-----------+-------------+-----------+------------+
//
// tag 来自封闭的 Registry（tag → 解码函数），未知 tag 返回 ErrUnknownMessage。
// 消息体由 Writer/Reader 原语编码：大端整数、bool、带长度前缀的字符串与字节数组。
//
// 两种接收模式互斥：
//   - 同步: Receive / ReceiveTimeout
//   - 异步: SetHandler，在独立 goroutine 上逐条回调；
//     回调返回错误或 panic 时向对端发送 ProtocolError，投递继续
package message
