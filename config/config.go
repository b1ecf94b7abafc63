// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，提供 DefaultXxxConfig() 与 Validate()
//   - 支持从 JSON / YAML 文件加载
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Runner.MaxTasks = 8
//	cfg.Runner.MediatorAddr = "mediator.internal:7401"
//
//	cfg, err := config.Load("runner.yaml")
package config

// Config 是 offload 的完整配置结构
//
// 配置按照功能模块组织：
//   - Identity: 身份密钥
//   - Transport: 监听与拨号
//   - Security: TLS 与对端校验策略
//   - Connection: 帧、心跳、超时
//   - Runner: Runner 能力与 Mediator 注册
//   - Mediator: Runner 选择
//   - Client: 任务提交与重试
//   - Metrics: Prometheus 指标
type Config struct {
	Identity   IdentityConfig   `json:"identity" yaml:"identity"`
	Transport  TransportConfig  `json:"transport" yaml:"transport"`
	Security   SecurityConfig   `json:"security" yaml:"security"`
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Runner     RunnerConfig     `json:"runner" yaml:"runner"`
	Mediator   MediatorConfig   `json:"mediator" yaml:"mediator"`
	Client     ClientConfig     `json:"client" yaml:"client"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:   DefaultIdentityConfig(),
		Transport:  DefaultTransportConfig(),
		Security:   DefaultSecurityConfig(),
		Connection: DefaultConnectionConfig(),
		Runner:     DefaultRunnerConfig(),
		Mediator:   DefaultMediatorConfig(),
		Client:     DefaultClientConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.Identity,
		c.Transport,
		c.Security,
		c.Connection,
		c.Runner,
		c.Mediator,
		c.Client,
		c.Metrics,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
