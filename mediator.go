package offload

import (
	"context"

	"github.com/dep2p/go-offload/internal/mediator"
)

// Mediator Runner 目录服务
type Mediator struct {
	lifecycle
	server *mediator.Server
}

// NewMediator 创建 Mediator
func NewMediator(opts ...Option) (*Mediator, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	m := &Mediator{lifecycle: lifecycle{name: "mediator"}}
	app, err := buildFxApp(o, mediator.Module(), &m.server)
	if err != nil {
		return nil, err
	}
	m.app = app
	return m, nil
}

// Start 开始监听
func (m *Mediator) Start(ctx context.Context) error {
	return m.start(ctx)
}

// Stop 断开全部连接
func (m *Mediator) Stop(ctx context.Context) error {
	return m.stop(ctx)
}

// ID 返回 Mediator ID
func (m *Mediator) ID() string {
	return m.server.ID()
}

// Addr 返回实际监听地址
func (m *Mediator) Addr() string {
	return m.server.Addr()
}

// Runners 返回已注册 Runner 的快照（按 ID 排序）
func (m *Mediator) Runners() []*RunnerDescriptor {
	return m.server.Runners().Snapshot()
}
