package tls

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/pkg/interfaces"
)

// ============================================================================
//                              AcceptAny
// ============================================================================

// AcceptAny 接受任何对端
type AcceptAny struct{}

// Validate 实现 CertificateValidationPolicy
func (AcceptAny) Validate(interfaces.PeerIdentity) error {
	return nil
}

// ============================================================================
//                              PinnedFingerprint
// ============================================================================

// PinnedFingerprint 只接受白名单中的对端 ID
type PinnedFingerprint struct {
	allowed map[string]struct{}
}

// NewPinnedFingerprint 创建指纹白名单策略
func NewPinnedFingerprint(ids ...string) *PinnedFingerprint {
	p := &PinnedFingerprint{allowed: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		p.allowed[id] = struct{}{}
	}
	return p
}

// Validate 实现 CertificateValidationPolicy
func (p *PinnedFingerprint) Validate(peer interfaces.PeerIdentity) error {
	if _, ok := p.allowed[peer.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrFingerprintMismatch, peer.ID)
	}
	return nil
}

// ============================================================================
//                              TrustedRoot
// ============================================================================

// TrustedRoot 要求对端证书链由受信 CA 签发
type TrustedRoot struct {
	roots *x509.CertPool
}

// NewTrustedRoot 从证书池创建策略
func NewTrustedRoot(roots *x509.CertPool) *TrustedRoot {
	return &TrustedRoot{roots: roots}
}

// LoadTrustedRoot 从 PEM 文件加载受信 CA
func LoadTrustedRoot(path string) (*TrustedRoot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取受信 CA 失败: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, ErrNoTrustedRoots
	}
	return NewTrustedRoot(pool), nil
}

// Validate 实现 CertificateValidationPolicy
func (p *TrustedRoot) Validate(peer interfaces.PeerIdentity) error {
	if len(peer.Certificates) == 0 {
		return ErrNoCertificate
	}
	intermediates := x509.NewCertPool()
	for _, c := range peer.Certificates[1:] {
		intermediates.AddCert(c)
	}
	_, err := peer.Certificates[0].Verify(x509.VerifyOptions{
		Roots:         p.roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUntrustedCertificate, err)
	}
	return nil
}

// PolicyFromConfig 按配置构造校验策略
func PolicyFromConfig(cfg config.SecurityConfig) (interfaces.CertificateValidationPolicy, error) {
	switch cfg.Policy {
	case config.PolicyAcceptAny, "":
		return AcceptAny{}, nil
	case config.PolicyPinned:
		return NewPinnedFingerprint(cfg.PinnedFingerprints...), nil
	case config.PolicyTrustedRoot:
		return LoadTrustedRoot(cfg.TrustedRootsFile)
	default:
		return nil, fmt.Errorf("未知的校验策略: %s", cfg.Policy)
	}
}
