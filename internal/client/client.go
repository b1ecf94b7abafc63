package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

var log = logger.Logger("client")

// RunOptions 单次提交参数
type RunOptions struct {
	// Endpoint 直连 Runner 地址，为空时通过 Mediator 查找
	Endpoint string

	// Request Mediator 查找条件
	Request types.RunnerRequest

	// Timeout 任务在 Runner 上的执行超时，0 表示不限
	Timeout time.Duration
}

// Option Client 可选参数
type Option func(*Client)

// WithResolver 设置依赖解析器
func WithResolver(r interfaces.AssemblyResolver) Option {
	return func(c *Client) { c.resolver = r }
}

// WithFileProvider 允许 Runner 上的任务读取本端文件
func WithFileProvider(f interfaces.FileProvider) Option {
	return func(c *Client) { c.files = f }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock 替换时钟（测试用）
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// Client 任务提交端
type Client struct {
	cfg      *config.Config
	sec      *tls.Transport
	codec    interfaces.TaskPayloadCodec
	resolver interfaces.AssemblyResolver
	files    interfaces.FileProvider
	metrics  *metrics.Metrics
	clock    clock.Clock
	messages *message.Registry

	pool    *pool
	locator *locator

	closeOnce sync.Once
	closed    chan struct{}
}

// New 创建客户端
func New(cfg *config.Config, sec *tls.Transport, codec interfaces.TaskPayloadCodec, opts ...Option) (*Client, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	c := &Client{
		cfg:      cfg,
		sec:      sec,
		codec:    codec,
		clock:    clock.New(),
		messages: taskmsg.NewRegistry(),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	p, err := newPool(c, cfg.Client.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("创建连接池失败: %w", err)
	}
	c.pool = p
	if cfg.Client.MediatorAddr != "" {
		c.locator = newLocator(c, cfg.Client.MediatorAddr)
	}
	return c, nil
}

// Codec 返回负载编解码器
func (c *Client) Codec() interfaces.TaskPayloadCodec {
	return c.codec
}

// Run 提交任务并等待结果
//
// payload 由编解码器编码；返回 Response 中的结果字节。
func (c *Client) Run(ctx context.Context, payload any, opts RunOptions) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}

	data, err := c.codec.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("编码负载失败: %w", err)
	}

	maxTries := c.cfg.Client.MaxTries
	if maxTries <= 0 {
		maxTries = 1
	}
	delay := c.cfg.Client.RetryDelay.Duration()

	var lastErr error
	for attempt := 1; attempt <= maxTries; attempt++ {
		if attempt > 1 && delay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			case <-c.clock.After(delay):
			}
		}

		result, err := c.attempt(ctx, data, opts)
		c.metrics.Attempt(attemptResult(err))
		if err == nil {
			return result, nil
		}
		if !Retryable(err) {
			return nil, err
		}
		lastErr = err
		log.Debug("任务尝试失败，准备重试", "attempt", attempt, "maxTries", maxTries, "err", err)
	}
	return nil, fmt.Errorf("尝试 %d 次后失败: %w", maxTries, lastErr)
}

// attempt 一次定位、连接、协商、提交
func (c *Client) attempt(ctx context.Context, data []byte, opts RunOptions) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	endpoint := opts.Endpoint
	var expectID types.RunnerID
	if endpoint == "" {
		if c.locator == nil {
			return nil, ErrNoMediator
		}
		resp, err := c.locator.lookup(ctx, opts.Request)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return nil, err
		}
		endpoint, expectID = resp.Endpoint, resp.RunnerID
	}

	r, err := c.pool.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	// Mediator 给出的 RunnerID 同时是证书指纹
	if expectID != "" && r.conn.RemoteID() != string(expectID) {
		return nil, fmt.Errorf("%w: %s 的身份与 Mediator 记录不一致", ErrRunnerNotAvailable, endpoint)
	}
	if err := r.negotiate(); err != nil {
		return nil, err
	}
	return r.submit(ctx, data, opts)
}

// Close 断开全部连接
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.locator != nil {
			c.locator.close()
		}
		c.pool.close()
	})
	return nil
}

func (c *Client) connOptions() connection.Options {
	opts := connection.OptionsFromConfig(c.cfg.Connection)
	opts.Metrics = c.metrics
	return opts
}

func attemptResult(err error) string {
	var taskErr *TaskError
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrRunnerBusy):
		return "busy"
	case errors.Is(err, ErrLookupTimeout):
		return "lookup-timeout"
	case errors.Is(err, ErrRunnerNotAvailable):
		return "unavailable"
	case errors.Is(err, ErrTaskTimeout):
		return "timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrConnectionLost):
		return "connection-lost"
	case errors.Is(err, ErrProtocol):
		return "protocol-error"
	case errors.As(err, &taskErr):
		return "task-error"
	default:
		return "error"
	}
}
