package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/pkg/types"
)

// locator 通过 Mediator 查找 Runner
//
// 查找在同一通道上一问一答，用互斥锁串行化；超时后断开连接，
// 避免迟到的应答被下一次查找读到。
type locator struct {
	c    *Client
	addr string

	mu   sync.Mutex
	conn *connection.Connection
	ch   *message.Channel
}

func newLocator(c *Client, addr string) *locator {
	return &locator{c: c, addr: addr}
}

// lookup 返回选中的 Runner 地址
func (l *locator) lookup(ctx context.Context, req types.RunnerRequest) (*taskmsg.RunnerResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensure(ctx); err != nil {
		return nil, fmt.Errorf("%w: 连接 Mediator 失败: %v", ErrRunnerNotAvailable, err)
	}

	msg := &taskmsg.RunnerRequest{Platforms: req.Platforms, Label: req.Label, Tags: req.Tags}
	if err := l.ch.Send(msg); err != nil {
		l.resetLocked()
		return nil, fmt.Errorf("%w: %v", ErrRunnerNotAvailable, err)
	}

	lctx, cancel := context.WithTimeout(ctx, l.c.cfg.Client.LookupTimeout.Duration())
	defer cancel()
	reply, err := l.ch.Receive(lctx)
	if err != nil {
		l.resetLocked()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrLookupTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrRunnerNotAvailable, err)
	}

	resp, ok := reply.(*taskmsg.RunnerResponse)
	if !ok {
		l.resetLocked()
		return nil, fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, reply.Tag())
	}
	if !resp.Found || resp.Endpoint == "" {
		return nil, ErrRunnerNotAvailable
	}
	return resp, nil
}

func (l *locator) ensure(ctx context.Context) error {
	if l.conn != nil && l.conn.IsConnected() {
		return nil
	}
	l.resetLocked()

	conn, err := connection.Dial(ctx, l.addr, l.c.sec, l.c.cfg.Transport.DialTimeout.Duration(), l.c.connOptions())
	if err != nil {
		return err
	}
	l.conn = conn
	l.ch = message.New(conn.Channel(taskmsg.ChannelAppMediator), l.c.messages)
	return nil
}

func (l *locator) resetLocked() {
	if l.conn != nil {
		go l.conn.Disconnect()
	}
	l.conn, l.ch = nil, nil
}

func (l *locator) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		l.conn.Disconnect()
	}
	l.conn, l.ch = nil, nil
}
