package interfaces

import "crypto/x509"

// PeerIdentity 握手后得到的对端身份
type PeerIdentity struct {
	// ID 由对端公钥派生的标识（Base58(SHA256(pubkey))）
	ID string

	// Certificates 对端证书链，首个为叶子证书
	Certificates []*x509.Certificate
}

// CertificateValidationPolicy 对端身份校验策略
//
// 返回 nil 表示接受对端。
type CertificateValidationPolicy interface {
	Validate(peer PeerIdentity) error
}
