package config

import (
	"errors"
	"net"
	"time"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	// ListenAddr 监听地址 host:port（Runner / Mediator 使用）
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// AdvertiseAddr 对外公布的地址，为空时使用实际监听地址
	AdvertiseAddr string `json:"advertise_addr,omitempty" yaml:"advertise_addr,omitempty"`

	// DialTimeout 拨号超时（含 TLS 握手）
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenAddr:  "127.0.0.1:0",
		DialTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return errors.New("transport: invalid listen_addr: " + err.Error())
		}
	}
	if c.DialTimeout <= 0 {
		return errors.New("transport: dial_timeout must be positive")
	}
	return nil
}
