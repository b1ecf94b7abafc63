package connection

import "errors"

var (
	// ErrDisconnected 连接已断开
	ErrDisconnected = errors.New("connection: disconnected")

	// ErrChannelClosed 通道已关闭
	ErrChannelClosed = errors.New("connection: channel closed")

	// ErrPeerSilent 对端静默超过两倍心跳周期
	ErrPeerSilent = errors.New("connection: peer silent for more than two heartbeat periods")

	// ErrWriteTimeout 写超时
	ErrWriteTimeout = errors.New("connection: write deadline exceeded")

	// ErrInvalidMonitorType 监控帧类型必须是应用自定义类型
	ErrInvalidMonitorType = errors.New("connection: monitor frame type must be application-defined")
)
