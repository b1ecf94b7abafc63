package runner

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	LC        fx.Lifecycle
	Config    *config.Config
	Transport *tls.Transport
	Codec     interfaces.TaskPayloadCodec
	Metrics   *metrics.Metrics `optional:"true"`
}

// ProvideServer 创建 Runner 并注册生命周期
func ProvideServer(input ModuleInput) (*Server, error) {
	s, err := NewServer(input.Config, input.Transport, input.Codec, WithMetrics(input.Metrics))
	if err != nil {
		return nil, err
	}
	input.LC.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
	return s, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(ProvideServer),
	)
}
