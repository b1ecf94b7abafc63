package runner

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/types"
)

// session 一个应用连接上的协商状态与任务集合
type session struct {
	srv  *Server
	conn *connection.Connection

	ctx    context.Context
	cancel context.CancelFunc

	control  *message.Channel
	task     *message.Channel
	assembly *message.Channel
	file     *message.Channel
	proxy    *appProxy

	mu         sync.Mutex
	negotiated bool
	workers    map[types.TaskID]*TaskWorker
	wg         sync.WaitGroup

	closeOnce sync.Once
}

func newSession(srv *Server, conn *connection.Connection) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		srv:     srv,
		conn:    conn,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[types.TaskID]*TaskWorker),
	}

	reg := srv.registry
	s.control = message.New(conn.Channel(taskmsg.ChannelControl), reg)
	s.task = message.New(conn.Channel(taskmsg.ChannelTask), reg)
	s.assembly = message.New(conn.Channel(taskmsg.ChannelAssembly), reg)
	s.file = message.New(conn.Channel(taskmsg.ChannelFile), reg)
	s.proxy = newAppProxy(s.assembly, s.file, ctx.Done())

	s.control.SetHandler(s.handleControl)
	s.task.SetHandler(s.handleTask)
	s.assembly.SetHandler(s.proxy.handleAssembly)
	s.file.SetHandler(s.proxy.handleFile)
	return s
}

// ============================================================================
//                              control 通道
// ============================================================================

func (s *session) handleControl(_ context.Context, msg message.Message) error {
	hello, ok := msg.(*taskmsg.Hello)
	if !ok {
		return unexpected(msg)
	}

	codec := s.srv.codec.Name()
	ack := &taskmsg.HelloAck{Codec: codec, RunnerID: s.srv.ID()}
	if slices.Contains(hello.Codecs, codec) {
		ack.Accepted = true
		s.mu.Lock()
		s.negotiated = true
		s.mu.Unlock()
	} else {
		ack.Detail = fmt.Sprintf("runner codec %q not offered", codec)
	}

	log.Debug("任务类型协商",
		"conn", logger.TruncateID(s.conn.ID(), 8),
		"offered", hello.Codecs,
		"accepted", ack.Accepted)
	return s.control.Send(ack)
}

// ============================================================================
//                              task 通道
// ============================================================================

func (s *session) handleTask(_ context.Context, msg message.Message) error {
	switch m := msg.(type) {
	case *taskmsg.Request:
		s.submit(m)
		return nil
	case *taskmsg.Cancel:
		s.mu.Lock()
		w, ok := s.workers[m.TaskID]
		s.mu.Unlock()
		if !ok {
			log.Debug("取消未知任务", "task", logger.TruncateID(string(m.TaskID), 8))
			return nil
		}
		w.Cancel()
		return nil
	default:
		return unexpected(msg)
	}
}

// submit 申请容量并启动任务；失败时直接回送 Error
func (s *session) submit(req *taskmsg.Request) {
	reject := func(category types.ErrorCategory, detail string) {
		s.srv.metrics.TaskFinished(types.OutcomeErrored.String())
		if err := s.task.Send(&taskmsg.Error{TaskID: req.TaskID, Category: category, Detail: detail}); err != nil {
			log.Debug("发送拒绝消息失败", "err", err)
		}
	}

	s.mu.Lock()
	negotiated := s.negotiated
	_, dup := s.workers[req.TaskID]
	s.mu.Unlock()

	switch {
	case !negotiated:
		reject(types.CategoryProtocol, "task type not negotiated")
		return
	case req.TaskID.IsEmpty() || dup:
		reject(types.CategoryProtocol, fmt.Sprintf("invalid or duplicate task id %q", req.TaskID))
		return
	case s.srv.State() != types.RunnerReady:
		reject(types.CategoryRunnerBusy, fmt.Sprintf("runner is %s", s.srv.State()))
		return
	}

	ticket, err := s.srv.slots.Admit()
	if err != nil {
		reject(types.CategoryRunnerBusy, err.Error())
		return
	}

	w := NewTaskWorker(s.ctx, req, WorkerConfig{
		Codec:               s.srv.codec,
		Resolver:            s.proxy.resolver(req.TaskID),
		Files:               s.proxy,
		MaxDependencyRounds: s.srv.cfg.Runner.MaxDependencyRounds,
		DependencyTimeout:   s.srv.cfg.Runner.DependencyTimeout.Duration(),
		Clock:               s.srv.clock,
		Send:                s.task.Send,
		Metrics:             s.srv.metrics,
	})

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		ticket.Release()
		return
	}
	s.workers[req.TaskID] = w
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runWorker(w, ticket)
}

func (s *session) runWorker(w *TaskWorker, ticket *Ticket) {
	defer s.wg.Done()
	defer func() {
		ticket.Release()
		s.mu.Lock()
		delete(s.workers, w.ID())
		s.mu.Unlock()
	}()

	if ticket.Queued() {
		log.Debug("任务排队", "task", logger.TruncateID(string(w.ID()), 8))
	}
	// 排队期间被取消时 Wait 返回错误，Cancel 已发送 Cancelled
	if err := ticket.Wait(w.Context()); err != nil {
		w.Close()
		return
	}
	w.Start()
	<-w.Done()
}

// ============================================================================
//                              关闭
// ============================================================================

// close 连接断开：取消并等待全部任务，停止通道回调
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		workers := make([]*TaskWorker, 0, len(s.workers))
		for _, w := range s.workers {
			workers = append(workers, w)
		}
		s.mu.Unlock()

		for _, w := range workers {
			w.Close()
		}
		s.wg.Wait()

		for _, ch := range []*message.Channel{s.control, s.task, s.assembly, s.file} {
			_ = ch.Close()
		}
		log.Debug("会话结束", "conn", logger.TruncateID(s.conn.ID(), 8), "tasks", len(workers))
	})
}

func unexpected(msg message.Message) error {
	return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
}
