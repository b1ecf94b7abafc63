package tls

import (
	"crypto/tls"

	"github.com/dep2p/go-offload/pkg/interfaces"
)

// Conn 已完成握手的安全连接
type Conn struct {
	*tls.Conn

	localID string
	remote  interfaces.PeerIdentity
}

// LocalID 返回本端 ID
func (c *Conn) LocalID() string {
	return c.localID
}

// RemoteIdentity 返回对端身份
func (c *Conn) RemoteIdentity() interfaces.PeerIdentity {
	return c.remote
}
