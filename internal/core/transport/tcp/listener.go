package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// keepAlivePeriod TCP keepalive 周期
const keepAlivePeriod = 30 * time.Second

// Listener TCP 监听器
type Listener struct {
	listener *net.TCPListener
	closed   atomic.Bool
}

// Listen 在 addr 上监听
func Listen(ctx context.Context, addr string) (*Listener, error) {
	if addr == "" {
		return nil, ErrEmptyAddress
	}
	lc := net.ListenConfig{KeepAlive: keepAlivePeriod}
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}
	tl, ok := l.(*net.TCPListener)
	if !ok {
		_ = l.Close()
		return nil, fmt.Errorf("不是 TCP 监听器")
	}
	return &Listener{listener: tl}, nil
}

// Accept 接受连接
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.listener.AcceptTCP()
	if err != nil {
		if l.closed.Load() || errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, err
	}
	_ = conn.SetNoDelay(true)
	return conn, nil
}

// Addr 返回实际监听地址（端口可能由系统分配）
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close 关闭监听器
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.listener.Close()
}
