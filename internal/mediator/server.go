package mediator

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/core/transport/tcp"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/types"
)

var log = logger.Logger("mediator")

// Option Server 可选参数
type Option func(*Server)

// WithClock 替换时钟（测试用）
func WithClock(clk clock.Clock) Option {
	return func(s *Server) { s.clock = clk }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server Mediator 服务
type Server struct {
	cfg      *config.Config
	sec      *tls.Transport
	metrics  *metrics.Metrics
	clock    clock.Clock
	messages *message.Registry
	runners  *Registry

	mu      sync.Mutex
	started bool
	ln      *tcp.Listener
	conns   map[string]*connection.Connection
	cancel  context.CancelFunc
	eg      *errgroup.Group
}

// NewServer 创建 Mediator
func NewServer(cfg *config.Config, sec *tls.Transport, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		sec:      sec,
		clock:    clock.New(),
		messages: taskmsg.NewRegistry(),
		conns:    make(map[string]*connection.Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runners = NewRegistry(cfg.Mediator.EnableReservation, s.clock, s.metrics)
	return s
}

// Runners 返回 Runner 表
func (s *Server) Runners() *Registry {
	return s.runners
}

// ID 返回 Mediator 标识
func (s *Server) ID() string {
	return s.sec.LocalID()
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 开始监听
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	ln, err := tcp.Listen(ctx, s.cfg.Transport.ListenAddr)
	if err != nil {
		return err
	}
	s.ln = ln

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.eg, runCtx = errgroup.WithContext(runCtx)
	s.started = true

	opts := connection.OptionsFromConfig(s.cfg.Connection)
	opts.Metrics = s.metrics
	s.eg.Go(func() error {
		return connection.Serve(runCtx, ln, s.sec, opts, s.handleConn)
	})

	log.Info("Mediator 已启动", "id", logger.TruncateID(s.ID(), 8), "addr", ln.Addr().String())
	return nil
}

// Stop 停止监听并断开全部连接
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.cancel()
	_ = s.ln.Close()
	conns := make([]*connection.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
	err := s.eg.Wait()
	log.Info("Mediator 已停止")
	return err
}

// ============================================================================
//                              连接处理
// ============================================================================

func (s *Server) handleConn(c *connection.Connection) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		c.Disconnect()
		return
	}
	s.conns[c.ID()] = c
	s.mu.Unlock()

	apps := message.New(c.Channel(taskmsg.ChannelAppMediator), s.messages)
	runners := message.New(c.Channel(taskmsg.ChannelRunnerMediator), s.messages)
	apps.SetHandler(func(_ context.Context, msg message.Message) error {
		return s.handleLookup(apps, msg)
	})
	runners.SetHandler(func(_ context.Context, msg message.Message) error {
		return s.handleRunner(c, msg)
	})

	c.OnDisconnect(func(reason types.DisconnectReason) {
		s.runners.Remove(c.ID())
		_ = apps.Close()
		_ = runners.Close()
		s.mu.Lock()
		delete(s.conns, c.ID())
		s.mu.Unlock()
		log.Debug("连接断开", "conn", logger.TruncateID(c.ID(), 8), "reason", reason.String())
	})
}

func (s *Server) handleLookup(ch *message.Channel, msg message.Message) error {
	req, ok := msg.(*taskmsg.RunnerRequest)
	if !ok {
		return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}

	resp := &taskmsg.RunnerResponse{}
	if d, found := s.runners.Select(req.Criteria()); found {
		resp.Found = true
		resp.RunnerID = d.ID
		resp.Endpoint = d.Endpoint
		resp.Label = d.Label
		resp.Platform = d.Platform
	}
	log.Debug("查找 Runner",
		"label", req.Label,
		"platforms", req.Platforms,
		"tags", req.Tags,
		"found", resp.Found,
		"runner", resp.RunnerID.ShortString())
	return ch.Send(resp)
}

func (s *Server) handleRunner(c *connection.Connection, msg message.Message) error {
	switch m := msg.(type) {
	case *taskmsg.RunnerRegister:
		if string(m.RunnerID) != c.RemoteID() {
			return fmt.Errorf("%w: %s", ErrIdentityMismatch, m.RunnerID.ShortString())
		}
		return s.runners.Register(c.ID(), m.Descriptor())
	case *taskmsg.RunnerStatus:
		return s.runners.Update(c.ID(), m.Status())
	case *message.ProtocolError:
		log.Warn("Runner 报告协议错误", "detail", m.Detail)
		return nil
	default:
		return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}
}
