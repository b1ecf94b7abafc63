package config

import (
	"errors"
	"time"
)

// ConnectionConfig 连接层配置
type ConnectionConfig struct {
	// MaxFrameSize 最大帧负载（字节），超过的写入会被拆分
	MaxFrameSize int `json:"max_frame_size" yaml:"max_frame_size"`

	// HeartbeatPeriod 本端心跳周期，会通告给对端
	// 对端静默超过两倍周期即视为断开
	HeartbeatPeriod Duration `json:"heartbeat_period" yaml:"heartbeat_period"`

	// ReadTimeout 读循环单次读取超时，决定存活检查的粒度
	ReadTimeout Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout 单帧写入超时，超时视为对端无响应
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`

	// OutboundQueueSize 出站帧队列容量
	OutboundQueueSize int `json:"outbound_queue_size" yaml:"outbound_queue_size"`

	// DrainInterval 通道写缓冲的周期性排空间隔
	DrainInterval Duration `json:"drain_interval" yaml:"drain_interval"`
}

// DefaultConnectionConfig 返回默认连接配置
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxFrameSize:      64 * 1024,
		HeartbeatPeriod:   Duration(5 * time.Second),
		ReadTimeout:       Duration(100 * time.Millisecond),
		WriteTimeout:      Duration(30 * time.Second),
		OutboundQueueSize: 256,
		DrainInterval:     Duration(10 * time.Millisecond),
	}
}

// Validate 验证连接配置
func (c ConnectionConfig) Validate() error {
	if c.MaxFrameSize <= 0 || c.MaxFrameSize > 1<<30 {
		return errors.New("connection: max_frame_size must be in (0, 1GiB]")
	}
	if c.HeartbeatPeriod < Duration(time.Millisecond) {
		return errors.New("connection: heartbeat_period must be at least 1ms")
	}
	if c.ReadTimeout <= 0 || c.ReadTimeout > c.HeartbeatPeriod {
		return errors.New("connection: read_timeout must be positive and not exceed heartbeat_period")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("connection: write_timeout must be positive")
	}
	if c.OutboundQueueSize <= 0 {
		return errors.New("connection: outbound_queue_size must be positive")
	}
	if c.DrainInterval <= 0 {
		return errors.New("connection: drain_interval must be positive")
	}
	return nil
}
