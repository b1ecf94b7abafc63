package runner

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

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
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

var log = logger.Logger("runner")

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

// Server 任务执行服务
type Server struct {
	cfg      *config.Config
	sec      *tls.Transport
	codec    interfaces.TaskPayloadCodec
	metrics  *metrics.Metrics
	clock    clock.Clock
	registry *message.Registry
	slots    *Slots

	state   atomic.Int32
	changed chan struct{}

	mu       sync.Mutex
	started  bool
	ln       *tcp.Listener
	sessions map[string]*session
	cancel   context.CancelFunc
	eg       *errgroup.Group
}

// NewServer 创建 Runner
func NewServer(cfg *config.Config, sec *tls.Transport, codec interfaces.TaskPayloadCodec, opts ...Option) (*Server, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	s := &Server{
		cfg:      cfg,
		sec:      sec,
		codec:    codec,
		clock:    clock.New(),
		registry: taskmsg.NewRegistry(),
		changed:  make(chan struct{}, 1),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(types.RunnerStarting))
	s.slots = NewSlots(cfg.Runner.MaxTasks, cfg.Runner.MaxQueueLength, func(active, queued int) {
		s.metrics.SetActiveTasks(active)
		s.metrics.SetQueueLength(queued)
		s.notifyChanged()
	})
	return s, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 开始监听，状态变为 Ready
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

	// 不使用 Start 的 ctx，fx OnStart 的 ctx 在返回后会被取消
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.eg, runCtx = errgroup.WithContext(runCtx)
	s.started = true

	s.eg.Go(func() error {
		return connection.Serve(runCtx, ln, s.sec, s.connOptions(), s.handleConn)
	})
	if s.cfg.Runner.MediatorAddr != "" {
		r := newReporter(s)
		s.eg.Go(func() error {
			r.run(runCtx)
			return nil
		})
	}

	s.setState(types.RunnerReady)
	log.Info("Runner 已启动",
		"id", logger.TruncateID(s.ID(), 8),
		"addr", s.Addr(),
		"codec", s.codec.Name(),
		"maxTasks", s.cfg.Runner.MaxTasks,
		"maxQueue", s.cfg.Runner.MaxQueueLength)
	return nil
}

// Stop 停止接受连接，断开全部会话并等待任务退出
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.setState(types.RunnerStopping)
	s.cancel()
	_ = s.ln.Close()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.conn.Disconnect()
		sess.close()
	}
	err := s.eg.Wait()
	log.Info("Runner 已停止", "id", logger.TruncateID(s.ID(), 8))
	return err
}

func (s *Server) handleConn(c *connection.Connection) {
	sess := newSession(s, c)

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		c.Disconnect()
		sess.close()
		return
	}
	s.sessions[c.ID()] = sess
	s.mu.Unlock()

	log.Debug("应用已连接", "conn", logger.TruncateID(c.ID(), 8), "remote", logger.TruncateID(c.RemoteID(), 8))
	c.OnDisconnect(func(reason types.DisconnectReason) {
		sess.close()
		s.mu.Lock()
		delete(s.sessions, c.ID())
		s.mu.Unlock()
		log.Debug("应用已断开", "conn", logger.TruncateID(c.ID(), 8), "reason", reason.String())
	})
}

func (s *Server) connOptions() connection.Options {
	opts := connection.OptionsFromConfig(s.cfg.Connection)
	opts.Metrics = s.metrics
	return opts
}

// ============================================================================
//                              状态
// ============================================================================

// ID 返回 Runner 标识
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

// Endpoint 返回应用直连地址，优先使用 AdvertiseAddr
func (s *Server) Endpoint() string {
	if s.cfg.Transport.AdvertiseAddr != "" {
		return s.cfg.Transport.AdvertiseAddr
	}
	addr := s.Addr()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return net.JoinHostPort("127.0.0.1", port)
	}
	return addr
}

// State 返回当前状态
func (s *Server) State() types.RunnerState {
	return types.RunnerState(s.state.Load())
}

func (s *Server) setState(st types.RunnerState) {
	if types.RunnerState(s.state.Swap(int32(st))) != st {
		s.notifyChanged()
	}
}

// Pause 暂停接收新任务，执行中的任务不受影响
func (s *Server) Pause() {
	if s.state.CompareAndSwap(int32(types.RunnerReady), int32(types.RunnerPaused)) {
		log.Info("Runner 已暂停")
		s.notifyChanged()
	}
}

// Resume 恢复接收任务
func (s *Server) Resume() {
	if s.state.CompareAndSwap(int32(types.RunnerPaused), int32(types.RunnerReady)) {
		log.Info("Runner 已恢复")
		s.notifyChanged()
	}
}

// Status 返回当前状态快照
func (s *Server) Status() types.RunnerStatus {
	active, queued := s.slots.Counts()
	return types.RunnerStatus{State: s.State(), ActiveTasks: active, QueueLength: queued}
}

// Sessions 返回当前连接的应用数
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) notifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
