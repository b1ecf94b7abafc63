package tls

import "errors"

// TLS 相关错误
var (
	// ErrNoCertificate 对端未提供证书
	ErrNoCertificate = errors.New("tls: no certificate provided")

	// ErrInvalidPublicKey 证书公钥不是 Ed25519
	ErrInvalidPublicKey = errors.New("tls: certificate public key is not ed25519")

	// ErrKeyMismatch 加载的证书与身份密钥不一致
	ErrKeyMismatch = errors.New("tls: certificate does not match identity key")

	// ErrFingerprintMismatch 对端指纹不在白名单中
	ErrFingerprintMismatch = errors.New("tls: peer fingerprint not pinned")

	// ErrUntrustedCertificate 对端证书链不受信任
	ErrUntrustedCertificate = errors.New("tls: untrusted peer certificate")

	// ErrNoTrustedRoots 受信 CA 文件中没有证书
	ErrNoTrustedRoots = errors.New("tls: no trusted root certificates")
)
