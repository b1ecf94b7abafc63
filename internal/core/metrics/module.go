package metrics

import (
	"context"
	"net"

	"go.uber.org/fx"

	"github.com/dep2p/go-offload/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
)

// NewFromParams 创建指标集合，启用时注册 HTTP 服务的生命周期
func NewFromParams(p Params) *Metrics {
	m := New()
	if !p.Config.Metrics.Enabled {
		return m
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", p.Config.Metrics.ListenAddr)
			if err != nil {
				cancel()
				return err
			}
			go func() {
				defer close(done)
				if err := m.serve(ctx, ln); err != nil {
					log.Warn("指标服务退出", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return m
}
