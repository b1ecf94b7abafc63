package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/identity"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/interfaces"
)

var log = logger.Logger("security.tls")

// Transport 将普通连接升级为 TLS 1.3 连接
type Transport struct {
	localID          string
	cert             tls.Certificate
	policy           interfaces.CertificateValidationPolicy
	handshakeTimeout time.Duration
}

// NewTransport 创建 TLS 传输
func NewTransport(id *identity.Identity, cfg config.SecurityConfig) (*Transport, error) {
	if id == nil {
		return nil, fmt.Errorf("identity 不能为空")
	}

	policy, err := PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var cert tls.Certificate
	if cfg.CertFile != "" {
		cert, err = LoadCertificate(id, cfg.CertFile, cfg.KeyFile)
	} else {
		cert, err = GenerateCertificate(id)
	}
	if err != nil {
		return nil, err
	}

	timeout := cfg.HandshakeTimeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultSecurityConfig().HandshakeTimeout.Duration()
	}

	log.Debug("TLS 传输已创建", "id", logger.TruncateID(id.ID(), 8), "policy", cfg.Policy)

	return &Transport{
		localID:          id.ID(),
		cert:             cert,
		policy:           policy,
		handshakeTimeout: timeout,
	}, nil
}

// WithPolicy 返回使用指定校验策略的副本
//
// 客户端拨号不同角色的节点时可以使用不同策略。
func (t *Transport) WithPolicy(policy interfaces.CertificateValidationPolicy) *Transport {
	c := *t
	c.policy = policy
	return &c
}

// LocalID 返回本端 ID
func (t *Transport) LocalID() string {
	return t.localID
}

// SecureInbound 以服务端角色握手
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn) (*Conn, error) {
	var remote interfaces.PeerIdentity
	cfg := t.baseConfig(&remote)
	cfg.ClientAuth = tls.RequireAnyClientCert
	cfg.SessionTicketsDisabled = true

	return t.handshake(ctx, tls.Server(conn, cfg), &remote)
}

// SecureOutbound 以客户端角色握手
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn) (*Conn, error) {
	var remote interfaces.PeerIdentity
	cfg := t.baseConfig(&remote)
	cfg.ServerName = "offload"

	return t.handshake(ctx, tls.Client(conn, cfg), &remote)
}

func (t *Transport) baseConfig(remote *interfaces.PeerIdentity) *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{t.cert},
		// 标准链校验被 VerifyPeerCertificate 取代
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			peer, err := t.verify(rawCerts)
			if err != nil {
				return err
			}
			*remote = peer
			return nil
		},
	}
}

func (t *Transport) verify(rawCerts [][]byte) (interfaces.PeerIdentity, error) {
	if len(rawCerts) == 0 {
		return interfaces.PeerIdentity{}, ErrNoCertificate
	}
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		c, err := x509.ParseCertificate(raw)
		if err != nil {
			return interfaces.PeerIdentity{}, fmt.Errorf("解析对端证书失败: %w", err)
		}
		certs = append(certs, c)
	}

	id, err := IDFromCertificate(certs[0])
	if err != nil {
		return interfaces.PeerIdentity{}, err
	}
	peer := interfaces.PeerIdentity{ID: id, Certificates: certs}
	if err := t.policy.Validate(peer); err != nil {
		return interfaces.PeerIdentity{}, err
	}
	return peer, nil
}

func (t *Transport) handshake(ctx context.Context, tc *tls.Conn, remote *interfaces.PeerIdentity) (*Conn, error) {
	deadline := time.Now().Add(t.handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = tc.SetDeadline(deadline)

	if err := tc.HandshakeContext(ctx); err != nil {
		_ = tc.Close()
		return nil, fmt.Errorf("TLS 握手失败: %w", err)
	}
	_ = tc.SetDeadline(time.Time{})

	if remote.ID == "" {
		_ = tc.Close()
		return nil, fmt.Errorf("%w: 对端身份未校验", ErrNoCertificate)
	}

	log.Debug("TLS 握手成功",
		"remote", logger.TruncateID(remote.ID, 8),
		"addr", tc.RemoteAddr().String())

	return &Conn{Conn: tc, localID: t.localID, remote: *remote}, nil
}
