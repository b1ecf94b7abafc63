package config

// MediatorConfig Mediator 配置
type MediatorConfig struct {
	// EnableReservation 选中 Runner 后乐观地占用一个槽位，直到下一次状态上报
	EnableReservation bool `json:"enable_reservation" yaml:"enable_reservation"`
}

// DefaultMediatorConfig 返回默认 Mediator 配置
func DefaultMediatorConfig() MediatorConfig {
	return MediatorConfig{
		EnableReservation: true,
	}
}

// Validate 验证 Mediator 配置
func (c MediatorConfig) Validate() error {
	return nil
}
