package config

import (
	"errors"
	"runtime"
	"time"
)

// RunnerConfig Runner 配置
type RunnerConfig struct {
	// Label 精确匹配标签
	Label string `json:"label" yaml:"label"`

	// Platform 平台标识，为空时使用 GOOS/GOARCH
	Platform string `json:"platform" yaml:"platform"`

	// Tags 能力标签
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// MaxTasks 最大并发任务数
	MaxTasks int `json:"max_tasks" yaml:"max_tasks"`

	// MaxQueueLength 最大排队长度，-1 表示不限，0 表示不排队
	MaxQueueLength int `json:"max_queue_length" yaml:"max_queue_length"`

	// MaxDependencyRounds 单个任务解码时最多解析依赖的轮数
	MaxDependencyRounds int `json:"max_dependency_rounds" yaml:"max_dependency_rounds"`

	// DependencyTimeout 向应用请求单个依赖的超时
	DependencyTimeout Duration `json:"dependency_timeout" yaml:"dependency_timeout"`

	// MediatorAddr Mediator 地址，为空时不注册
	MediatorAddr string `json:"mediator_addr,omitempty" yaml:"mediator_addr,omitempty"`

	// StatusInterval 周期性状态上报间隔
	StatusInterval Duration `json:"status_interval" yaml:"status_interval"`

	// StatusBurst 状态变化触发的上报突发上限
	StatusBurst int `json:"status_burst" yaml:"status_burst"`

	// ReconnectInterval 与 Mediator 断开后的重连间隔
	ReconnectInterval Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
}

// DefaultRunnerConfig 返回默认 Runner 配置
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Platform:            runtime.GOOS + "/" + runtime.GOARCH,
		MaxTasks:            runtime.NumCPU(),
		MaxQueueLength:      0,
		MaxDependencyRounds: 8,
		DependencyTimeout:   Duration(30 * time.Second),
		StatusInterval:      Duration(5 * time.Second),
		StatusBurst:         4,
		ReconnectInterval:   Duration(3 * time.Second),
	}
}

// Validate 验证 Runner 配置
func (c RunnerConfig) Validate() error {
	if c.MaxTasks < 0 {
		return errors.New("runner: max_tasks must not be negative")
	}
	if c.MaxDependencyRounds <= 0 {
		return errors.New("runner: max_dependency_rounds must be positive")
	}
	if c.DependencyTimeout <= 0 {
		return errors.New("runner: dependency_timeout must be positive")
	}
	if c.StatusInterval <= 0 || c.ReconnectInterval <= 0 {
		return errors.New("runner: status_interval and reconnect_interval must be positive")
	}
	if c.StatusBurst <= 0 {
		return errors.New("runner: status_burst must be positive")
	}
	return nil
}
