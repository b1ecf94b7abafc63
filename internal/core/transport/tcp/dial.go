package tcp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Dial 拨号到 addr
//
// timeout 为 0 时只受 ctx 约束。
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if addr == "" {
		return nil, ErrEmptyAddress
	}
	d := net.Dialer{Timeout: timeout, KeepAlive: keepAlivePeriod}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("拨号 %s 失败: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}
