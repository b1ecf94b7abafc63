package types

import (
	"slices"
	"time"
)

// RunnerDescriptor Mediator 侧的 Runner 描述
type RunnerDescriptor struct {
	// ID Runner 标识（同时是证书指纹）
	ID RunnerID

	// Label 精确匹配标签
	Label string

	// Platform 运行平台，例如 "linux/amd64"
	Platform string

	// Tags 能力标签
	Tags []string

	// Endpoint 应用直连地址 host:port
	Endpoint string

	// MaxTasks 最大并发任务数
	MaxTasks int

	// MaxQueueLength 最大排队长度，负数表示不限
	MaxQueueLength int

	// State 当前状态
	State RunnerState

	// ActiveTasks 正在执行的任务数
	ActiveTasks int

	// QueueLength 排队任务数
	QueueLength int

	// UpdatedAt 最近一次状态更新时间
	UpdatedAt time.Time
}

// FreeSlots 返回空闲任务槽位数
func (d *RunnerDescriptor) FreeSlots() int {
	return d.MaxTasks - d.ActiveTasks
}

// UnlimitedQueue 队列是否不限长度
func (d *RunnerDescriptor) UnlimitedQueue() bool {
	return d.MaxQueueLength < 0
}

// HasTaskSlot 是否有空闲任务槽位
func (d *RunnerDescriptor) HasTaskSlot() bool {
	return d.ActiveTasks < d.MaxTasks
}

// HasQueueSlot 是否有空闲队列位置
func (d *RunnerDescriptor) HasQueueSlot() bool {
	return d.UnlimitedQueue() || d.QueueLength < d.MaxQueueLength
}

// Clone 返回深拷贝
func (d *RunnerDescriptor) Clone() *RunnerDescriptor {
	if d == nil {
		return nil
	}
	c := *d
	c.Tags = slices.Clone(d.Tags)
	return &c
}

// RunnerRequest 应用向 Mediator 查找 Runner 的条件
type RunnerRequest struct {
	// Platforms 可接受的平台，空表示不限
	Platforms []string

	// Label 精确匹配标签，空表示不限
	Label string

	// Tags 需要命中的标签（任一即可），空表示不限
	Tags []string
}

// RunnerStatus Runner 周期性上报的状态
type RunnerStatus struct {
	State       RunnerState
	ActiveTasks int
	QueueLength int
}
