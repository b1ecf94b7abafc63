package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/pkg/types"
)

// pool 按 endpoint 缓存到 Runner 的连接
//
// 淘汰的连接若仍有等待中的任务，推迟到最后一个任务结束时断开；
// close 则立即断开全部连接。
type pool struct {
	c     *Client
	cache *lru.Cache[string, *remote]

	dialMu  sync.Mutex
	wg      sync.WaitGroup
	closing atomic.Bool
}

func newPool(c *Client, size int) (*pool, error) {
	p := &pool{c: c}
	cache, err := lru.NewWithEvict(size, func(endpoint string, r *remote) {
		if !r.retire() && !p.closing.Load() {
			log.Debug("淘汰的连接仍有任务，任务结束后断开", "endpoint", endpoint, "pending", r.pending())
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			r.conn.Disconnect()
		}()
	})
	if err != nil {
		return nil, err
	}
	p.cache = cache
	return p, nil
}

// get 返回存活的连接，必要时拨号
func (p *pool) get(ctx context.Context, endpoint string) (*remote, error) {
	if r, ok := p.cache.Get(endpoint); ok && r.conn.IsConnected() {
		return r, nil
	}

	p.dialMu.Lock()
	defer p.dialMu.Unlock()

	// 等锁期间可能已有人拨号成功
	if r, ok := p.cache.Get(endpoint); ok {
		if r.conn.IsConnected() {
			return r, nil
		}
		p.cache.Remove(endpoint)
	}

	conn, err := connection.Dial(ctx, endpoint, p.c.sec, p.c.cfg.Transport.DialTimeout.Duration(), p.c.connOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRunnerNotAvailable, err)
	}
	r := newRemote(p.c, endpoint, conn)
	p.cache.Add(endpoint, r)

	conn.OnDisconnect(func(reason types.DisconnectReason) {
		if cur, ok := p.cache.Peek(endpoint); ok && cur == r {
			p.cache.Remove(endpoint)
		}
		log.Debug("Runner 连接断开", "endpoint", endpoint, "reason", reason.String())
	})
	return r, nil
}

// Len 返回池中连接数
func (p *pool) Len() int {
	return p.cache.Len()
}

// close 断开全部连接
func (p *pool) close() {
	p.closing.Store(true)
	p.cache.Purge()
	p.wg.Wait()
}
