package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，nil 配置返回错误。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 读超时大于心跳周期 -> 取心跳周期的五十分之一
//   - 非正的尝试次数 / 连接池容量 -> 使用默认值
//   - 负的重试间隔 -> 0
//   - 小于 -1 的队列长度 -> -1（不限）
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if c.Connection.ReadTimeout <= 0 || c.Connection.ReadTimeout > c.Connection.HeartbeatPeriod {
		c.Connection.ReadTimeout = c.Connection.HeartbeatPeriod / 50
		if c.Connection.ReadTimeout <= 0 {
			c.Connection.ReadTimeout = c.Connection.HeartbeatPeriod
		}
	}

	defaults := DefaultClientConfig()
	if c.Client.MaxTries <= 0 {
		c.Client.MaxTries = defaults.MaxTries
	}
	if c.Client.PoolSize <= 0 {
		c.Client.PoolSize = defaults.PoolSize
	}
	if c.Client.RetryDelay < 0 {
		c.Client.RetryDelay = 0
	}

	if c.Runner.MaxQueueLength < -1 {
		c.Runner.MaxQueueLength = -1
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("配置修复后仍然无效: %w", err)
	}
	return c, nil
}
