package mediator

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/core/security/tls"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	LC        fx.Lifecycle
	Config    *config.Config
	Transport *tls.Transport
	Metrics   *metrics.Metrics `optional:"true"`
}

// ProvideServer 创建 Mediator 并注册生命周期
func ProvideServer(input ModuleInput) *Server {
	s := NewServer(input.Config, input.Transport, WithMetrics(input.Metrics))
	input.LC.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
	return s
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("mediator",
		fx.Provide(ProvideServer),
	)
}
