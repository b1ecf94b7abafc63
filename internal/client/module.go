package client

import (
	"context"

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
	Resolver  interfaces.AssemblyResolver `optional:"true"`
	Files     interfaces.FileProvider     `optional:"true"`
	Metrics   *metrics.Metrics            `optional:"true"`
}

// ProvideClient 创建客户端，停止时断开全部连接
func ProvideClient(input ModuleInput) (*Client, error) {
	c, err := New(input.Config, input.Transport, input.Codec,
		WithResolver(input.Resolver),
		WithFileProvider(input.Files),
		WithMetrics(input.Metrics))
	if err != nil {
		return nil, err
	}
	input.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("client",
		fx.Provide(ProvideClient),
	)
}
