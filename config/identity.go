package config

import "errors"

// IdentityConfig 身份配置
//
// 节点使用 Ed25519 密钥，公钥派生出节点 ID（即证书指纹）。
type IdentityConfig struct {
	// KeyFile 私钥文件路径（PEM, PKCS#8）
	// 为空时在内存中生成临时密钥
	KeyFile string `json:"key_file" yaml:"key_file"`

	// AutoGenerate 密钥文件不存在时是否自动生成并写入
	AutoGenerate bool `json:"auto_generate" yaml:"auto_generate"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		KeyFile:      "",
		AutoGenerate: true,
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.KeyFile == "" && !c.AutoGenerate {
		return errors.New("identity: key_file is required when auto_generate is disabled")
	}
	return nil
}
