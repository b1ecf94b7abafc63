// Package tcp 提供 TCP 监听与拨号
//
// 只负责原始字节流；TLS 与帧由上层处理。
package tcp
