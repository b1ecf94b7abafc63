package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

// ============================================================================
//                              WorkerState
// ============================================================================

// WorkerState 任务执行状态
type WorkerState int32

const (
	// StateAwaitingRequest 等待执行槽位
	StateAwaitingRequest WorkerState = iota
	// StateExecuting 执行中
	StateExecuting
	// StateCompleted 已完成
	StateCompleted
	// StateErrored 执行出错
	StateErrored
	// StateCancelled 已取消
	StateCancelled
	// StateTimedOut 已超时
	StateTimedOut
)

// String 返回状态名
func (s WorkerState) String() string {
	switch s {
	case StateAwaitingRequest:
		return "awaiting-request"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              WorkerConfig
// ============================================================================

// WorkerConfig TaskWorker 依赖
type WorkerConfig struct {
	// Codec 负载编解码器
	Codec interfaces.TaskPayloadCodec

	// Resolver 依赖解析，可为 nil（缺少依赖直接失败）
	Resolver interfaces.AssemblyResolver

	// Files 应用侧文件代理，可为 nil
	Files interfaces.FileProvider

	// MaxDependencyRounds 最多解析多少个依赖
	MaxDependencyRounds int

	// DependencyTimeout 单次依赖解析超时
	DependencyTimeout time.Duration

	// Clock 超时计时
	Clock clock.Clock

	// Send 发送终态消息
	Send func(message.Message) error

	Metrics *metrics.Metrics
}

// ============================================================================
//                              TaskWorker
// ============================================================================

// TaskWorker 执行单个任务，保证只发送一条终态消息
type TaskWorker struct {
	req *taskmsg.Request
	cfg WorkerConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	state           WorkerState
	started         bool
	terminal        bool
	cancelRequested bool
	timer           *clock.Timer

	done chan struct{}
}

// NewTaskWorker 创建任务执行器，parent 取消时任务随之取消
func NewTaskWorker(parent context.Context, req *taskmsg.Request, cfg WorkerConfig) *TaskWorker {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	ctx, cancel := context.WithCancel(parent)
	return &TaskWorker{
		req:    req,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		state:  StateAwaitingRequest,
		done:   make(chan struct{}),
	}
}

// ID 返回任务 ID
func (w *TaskWorker) ID() types.TaskID {
	return w.req.TaskID
}

// Context 返回任务上下文
func (w *TaskWorker) Context() context.Context {
	return w.ctx
}

// State 返回当前状态
func (w *TaskWorker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done 任务执行 goroutine 退出后关闭
func (w *TaskWorker) Done() <-chan struct{} {
	return w.done
}

// Start 启动执行，并在请求带超时时启动计时器
//
// 已进入终态（排队时被取消）的任务不会执行。
func (w *TaskWorker) Start() {
	w.mu.Lock()
	if w.started || w.terminal {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.state = StateExecuting
	if w.req.Timeout > 0 {
		w.timer = w.cfg.Clock.AfterFunc(w.req.Timeout, w.onTimeout)
	}
	w.mu.Unlock()

	log.Debug("开始执行任务", "task", logger.TruncateID(string(w.req.TaskID), 8), "timeout", w.req.Timeout)
	go w.run()
}

// Cancel 处理应用的取消请求
//
// 尚未开始执行的任务立即以 Cancelled 结束；执行中的任务取消上下文，
// 执行 goroutine 退出时发送 Cancelled。
func (w *TaskWorker) Cancel() {
	w.mu.Lock()
	if w.terminal {
		w.mu.Unlock()
		return
	}
	w.cancelRequested = true
	if !w.started {
		w.terminal = true
		w.state = StateCancelled
		w.mu.Unlock()

		w.cancel()
		w.sendTerminal(&taskmsg.Cancelled{TaskID: w.req.TaskID}, types.OutcomeCancelled)
		close(w.done)
		return
	}
	w.mu.Unlock()
	w.cancel()
}

// Close 取消任务并等待执行 goroutine 退出
func (w *TaskWorker) Close() {
	w.mu.Lock()
	if !w.started && !w.terminal {
		w.terminal = true
		w.state = StateCancelled
		close(w.done)
	}
	w.mu.Unlock()

	w.cancel()
	<-w.done
}

// onTimeout 计时器回调：先取消上下文，立即发送 Timeout
func (w *TaskWorker) onTimeout() {
	w.mu.Lock()
	if w.terminal {
		w.mu.Unlock()
		return
	}
	w.terminal = true
	w.state = StateTimedOut
	w.mu.Unlock()

	w.cancel()
	log.Debug("任务超时", "task", logger.TruncateID(string(w.req.TaskID), 8))
	w.sendTerminal(&taskmsg.Timeout{TaskID: w.req.TaskID}, types.OutcomeTimedOut)
}

func (w *TaskWorker) run() {
	defer close(w.done)

	result, category, err := w.execute()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.terminal {
		// 超时已发送终态，丢弃迟到的结果
		w.mu.Unlock()
		log.Debug("丢弃终态之后的执行结果", "task", logger.TruncateID(string(w.req.TaskID), 8))
		return
	}
	w.terminal = true

	var msg message.Message
	var outcome types.TaskOutcome
	switch {
	case w.cancelRequested:
		w.state = StateCancelled
		msg, outcome = &taskmsg.Cancelled{TaskID: w.req.TaskID}, types.OutcomeCancelled
	case err == nil:
		w.state = StateCompleted
		msg, outcome = &taskmsg.Response{TaskID: w.req.TaskID, Result: result}, types.OutcomeCompleted
	default:
		w.state = StateErrored
		msg, outcome = &taskmsg.Error{TaskID: w.req.TaskID, Category: category, Detail: err.Error()}, types.OutcomeErrored
	}
	w.mu.Unlock()

	w.sendTerminal(msg, outcome)
}

func (w *TaskWorker) sendTerminal(msg message.Message, outcome types.TaskOutcome) {
	w.cfg.Metrics.TaskFinished(outcome.String())
	if w.cfg.Send == nil {
		return
	}
	if err := w.cfg.Send(msg); err != nil {
		log.Debug("发送终态消息失败",
			"task", logger.TruncateID(string(w.req.TaskID), 8),
			"outcome", outcome.String(),
			"err", err)
	}
}

// ============================================================================
//                              执行
// ============================================================================

// execute 解码并执行负载，返回结果或带类别的错误
func (w *TaskWorker) execute() ([]byte, types.ErrorCategory, error) {
	inv, category, err := w.decode()
	if err != nil {
		return nil, category, err
	}

	ctx := w.ctx
	if w.cfg.Files != nil {
		ctx = WithFiles(ctx, w.cfg.Files)
	}
	result, err := invoke(ctx, inv)
	if err != nil {
		return nil, types.CategoryInvocation, err
	}
	return result, types.CategoryGeneral, nil
}

// decode 解码负载，缺少依赖时向应用请求后重试
func (w *TaskWorker) decode() (interfaces.Invocable, types.ErrorCategory, error) {
	if w.cfg.Codec == nil {
		return nil, types.CategoryGeneral, ErrNilCodec
	}

	env := interfaces.MapEnv{}
	for round := 0; ; round++ {
		inv, err := safeDecode(w.cfg.Codec, w.req.Payload, env)
		if err == nil {
			return inv, types.CategoryGeneral, nil
		}

		var missing *interfaces.MissingDependencyError
		if !errors.As(err, &missing) {
			return nil, types.CategoryDeserialization, err
		}
		if w.cfg.Resolver == nil {
			return nil, types.CategoryDeserialization, err
		}
		if round >= w.cfg.MaxDependencyRounds {
			return nil, types.CategoryDeserialization, fmt.Errorf("%w: %v", ErrTooManyDependencyRounds, err)
		}
		if _, seen := env[missing.Name]; seen {
			// 已提供的依赖仍报缺失，编解码器行为异常
			return nil, types.CategoryDeserialization, err
		}

		data, found, rerr := w.resolve(missing.Name)
		if rerr != nil {
			return nil, types.CategoryGeneral, fmt.Errorf("解析依赖 %s 失败: %w", missing.Name, rerr)
		}
		if !found {
			return nil, types.CategoryDeserialization, fmt.Errorf("%w: %s", ErrDependencyNotFound, missing.Name)
		}
		log.Debug("已解析依赖", "task", logger.TruncateID(string(w.req.TaskID), 8), "name", missing.Name, "size", len(data))
		env[missing.Name] = data
	}
}

func (w *TaskWorker) resolve(name string) ([]byte, bool, error) {
	ctx := w.ctx
	if w.cfg.DependencyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.DependencyTimeout)
		defer cancel()
	}
	return w.cfg.Resolver.Resolve(ctx, name)
}

func safeDecode(codec interfaces.TaskPayloadCodec, data []byte, env interfaces.Env) (inv interfaces.Invocable, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode panic: %v", r)
		}
	}()
	return codec.Decode(data, env)
}

func invoke(ctx context.Context, inv interfaces.Invocable) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("任务 panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("invoke panic: %v", r)
		}
	}()
	return inv.Invoke(ctx)
}
