// Package connection 实现单条已认证字节流上的多路复用连接
//
// 一个 Connection 对应一条 TLS 连接，在其上承载多个逻辑 Channel。
// 每个 Connection 有三个后台 goroutine：
//
//   - 读循环: 以短超时读取、解帧、分发；顺带检查对端存活
//   - 写循环: 按 FIFO 写出出站帧，待发心跳优先于下一个数据帧
//   - 心跳定时器: 只标记"心跳待发"并唤醒写循环
//
// 对端静默超过两倍心跳周期（对端未通告前使用本端周期）即判定为 Dropped。
//
// # 断开原因
//
//   - LocalDisconnect:  本端调用 Disconnect()
//   - RemoteDisconnect: 收到对端断开帧
//   - Dropped:          对端静默，或流结束但没有断开帧
//   - Unresponsive:     写超时，对端不再消费数据
//   - Error:            其他 I/O、握手或帧格式错误
//
// # 使用示例
//
//	conn, err := connection.Dial(ctx, addr, tlsTransport, opts)
//	ch := conn.Channel(2)
//	ch.Write(data)
//	ch.Flush()
package connection
