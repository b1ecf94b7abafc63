package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-offload/config"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ProvideIdentity 提供节点身份
func ProvideIdentity(input ModuleInput) (*Identity, error) {
	return Load(input.Config.Identity)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideIdentity),
	)
}
