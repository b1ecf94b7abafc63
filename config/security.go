package config

import (
	"errors"
	"time"
)

// 对端校验策略名
const (
	PolicyAcceptAny   = "accept-any"
	PolicyPinned      = "pinned"
	PolicyTrustedRoot = "trusted-root"
)

// SecurityConfig 安全传输配置
//
// 所有连接都基于 TLS 1.3 双向认证，差别在于如何校验对端身份：
//   - accept-any:   接受任何对端（仍然加密，仍然派生对端 ID）
//   - pinned:       对端 ID（公钥指纹）必须在 PinnedFingerprints 中
//   - trusted-root: 对端证书链必须由 TrustedRootsFile 中的 CA 签发
type SecurityConfig struct {
	// Policy 对端校验策略
	Policy string `json:"policy" yaml:"policy"`

	// PinnedFingerprints 允许的对端 ID（pinned 策略）
	PinnedFingerprints []string `json:"pinned_fingerprints,omitempty" yaml:"pinned_fingerprints,omitempty"`

	// TrustedRootsFile PEM 格式的 CA 证书（trusted-root 策略）
	TrustedRootsFile string `json:"trusted_roots_file,omitempty" yaml:"trusted_roots_file,omitempty"`

	// CertFile / KeyFile 由 CA 签发的本端证书，为空时使用自签名证书
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`

	// HandshakeTimeout TLS 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		Policy:           PolicyAcceptAny,
		HandshakeTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	switch c.Policy {
	case PolicyAcceptAny:
	case PolicyPinned:
		if len(c.PinnedFingerprints) == 0 {
			return errors.New("security: pinned policy requires pinned_fingerprints")
		}
	case PolicyTrustedRoot:
		if c.TrustedRootsFile == "" {
			return errors.New("security: trusted-root policy requires trusted_roots_file")
		}
	default:
		return errors.New("security: policy must be accept-any, pinned or trusted-root")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("security: cert_file and key_file must be set together")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("security: handshake_timeout must be positive")
	}
	return nil
}
