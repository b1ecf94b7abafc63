package tls

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/identity"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
}

// ProvideTransport 提供 TLS 传输
func ProvideTransport(input ModuleInput) (*Transport, error) {
	return NewTransport(input.Identity, input.Config.Security)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("security.tls",
		fx.Provide(ProvideTransport),
	)
}
