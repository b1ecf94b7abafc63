package config

import (
	"errors"
	"time"
)

// ClientConfig 应用侧任务提交配置
type ClientConfig struct {
	// MediatorAddr Mediator 地址，未显式指定 Runner 时用于查找
	MediatorAddr string `json:"mediator_addr,omitempty" yaml:"mediator_addr,omitempty"`

	// MaxTries 最大尝试次数（RunnerBusy / RunnerNotAvailable 会重试）
	MaxTries int `json:"max_tries" yaml:"max_tries"`

	// RetryDelay 两次尝试之间的等待，默认 0 即不退避
	RetryDelay Duration `json:"retry_delay" yaml:"retry_delay"`

	// LookupTimeout 等待 Mediator 应答的超时
	LookupTimeout Duration `json:"lookup_timeout" yaml:"lookup_timeout"`

	// NegotiateTimeout 控制通道协商超时
	NegotiateTimeout Duration `json:"negotiate_timeout" yaml:"negotiate_timeout"`

	// CancelGrace 发送取消后等待终态消息的时长
	CancelGrace Duration `json:"cancel_grace" yaml:"cancel_grace"`

	// PoolSize 复用的 Runner 连接数上限
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxTries:         3,
		RetryDelay:       0,
		LookupTimeout:    Duration(10 * time.Second),
		NegotiateTimeout: Duration(10 * time.Second),
		CancelGrace:      Duration(2 * time.Second),
		PoolSize:         16,
	}
}

// Validate 验证客户端配置
func (c ClientConfig) Validate() error {
	if c.MaxTries <= 0 {
		return errors.New("client: max_tries must be positive")
	}
	if c.RetryDelay < 0 {
		return errors.New("client: retry_delay must not be negative")
	}
	if c.LookupTimeout <= 0 || c.NegotiateTimeout <= 0 {
		return errors.New("client: lookup_timeout and negotiate_timeout must be positive")
	}
	if c.CancelGrace < 0 {
		return errors.New("client: cancel_grace must not be negative")
	}
	if c.PoolSize <= 0 {
		return errors.New("client: pool_size must be positive")
	}
	return nil
}
