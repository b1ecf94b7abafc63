package tls

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/dep2p/go-offload/internal/core/identity"
)

// certValidity 自签名证书有效期
const certValidity = 365 * 24 * time.Hour

// GenerateCertificate 用身份私钥生成自签名证书
//
// 证书公钥即身份公钥，对端由此派生出本端 ID。
func GenerateCertificate(id *identity.Identity) (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("生成证书序列号失败: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"offload"},
			CommonName:   id.ID(),
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, id.PublicKey(), id.Signer())
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("创建证书失败: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("解析证书失败: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  id.PrivateKey(),
		Leaf:        leaf,
	}, nil
}

// LoadCertificate 加载 CA 签发的证书
//
// 证书公钥必须与身份公钥一致。
func LoadCertificate(id *identity.Identity, certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("加载证书失败: %w", err)
	}
	if cert.Leaf == nil {
		cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("解析证书失败: %w", err)
		}
	}

	pub, ok := cert.Leaf.PublicKey.(ed25519.PublicKey)
	if !ok {
		return tls.Certificate{}, ErrInvalidPublicKey
	}
	if !bytes.Equal(pub, id.PublicKey()) {
		return tls.Certificate{}, ErrKeyMismatch
	}
	return cert, nil
}

// IDFromCertificate 从证书公钥派生节点 ID
func IDFromCertificate(cert *x509.Certificate) (string, error) {
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return "", ErrInvalidPublicKey
	}
	return identity.IDFromPublicKey(pub)
}
