package offload

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-offload/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	// 仅 Client 使用
	resolver AssemblyResolver
	files    FileProvider

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

func newOptions(opts []Option) (*options, error) {
	o := &options{config: config.NewConfig()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return o, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置替换默认值（之后的选项继续在其上修改）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		c := *cfg
		o.config = &c
		return nil
	}
}

// WithConfigFile 从 JSON / YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithConfigHook 直接修改配置
func WithConfigHook(fn func(*config.Config)) Option {
	return func(o *options) error {
		fn(o.config)
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              网络与身份
// ════════════════════════════════════════════════════════════════════════════

// WithListenAddr 设置监听地址（Runner / Mediator）
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.config.Transport.ListenAddr = addr
		return nil
	}
}

// WithAdvertiseAddr 设置向 Mediator 公布的地址
func WithAdvertiseAddr(addr string) Option {
	return func(o *options) error {
		o.config.Transport.AdvertiseAddr = addr
		return nil
	}
}

// WithIdentityKeyFile 从文件加载身份，不存在时生成并写回
func WithIdentityKeyFile(path string) Option {
	return func(o *options) error {
		o.config.Identity.KeyFile = path
		o.config.Identity.AutoGenerate = true
		return nil
	}
}

// WithPinnedPeers 只接受给定 ID 的对端
func WithPinnedPeers(ids ...string) Option {
	return func(o *options) error {
		if len(ids) == 0 {
			return fmt.Errorf("pinned peers must not be empty")
		}
		o.config.Security.Policy = config.PolicyPinned
		o.config.Security.PinnedFingerprints = append([]string(nil), ids...)
		return nil
	}
}

// WithMediator 设置 Mediator 地址
//
// Runner 向其注册，Client 通过它查找 Runner。
func WithMediator(addr string) Option {
	return func(o *options) error {
		o.config.Runner.MediatorAddr = addr
		o.config.Client.MediatorAddr = addr
		return nil
	}
}

// WithMetrics 在 addr 上暴露 Prometheus 指标
func WithMetrics(addr string) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = true
		o.config.Metrics.ListenAddr = addr
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Runner
// ════════════════════════════════════════════════════════════════════════════

// WithLabel 设置 Runner 标签
func WithLabel(label string) Option {
	return func(o *options) error {
		o.config.Runner.Label = label
		return nil
	}
}

// WithPlatform 设置 Runner 平台标识
func WithPlatform(platform string) Option {
	return func(o *options) error {
		o.config.Runner.Platform = platform
		return nil
	}
}

// WithTags 设置 Runner 能力标签
func WithTags(tags ...string) Option {
	return func(o *options) error {
		o.config.Runner.Tags = append([]string(nil), tags...)
		return nil
	}
}

// WithCapacity 设置并发任务数与排队长度（-1 表示不限）
func WithCapacity(maxTasks, maxQueueLength int) Option {
	return func(o *options) error {
		o.config.Runner.MaxTasks = maxTasks
		o.config.Runner.MaxQueueLength = maxQueueLength
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Client
// ════════════════════════════════════════════════════════════════════════════

// WithRetry 设置最大尝试次数与重试间隔
func WithRetry(maxTries int, delay time.Duration) Option {
	return func(o *options) error {
		o.config.Client.MaxTries = maxTries
		o.config.Client.RetryDelay = config.Duration(delay)
		return nil
	}
}

// WithResolver 设置依赖解析器
func WithResolver(r AssemblyResolver) Option {
	return func(o *options) error {
		o.resolver = r
		return nil
	}
}

// WithFileProvider 允许 Runner 上的任务读取本端文件
func WithFileProvider(f FileProvider) Option {
	return func(o *options) error {
		o.files = f
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              扩展
// ════════════════════════════════════════════════════════════════════════════

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
