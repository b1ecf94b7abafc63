package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/types"
)

// remote 到一个 Runner 的连接及其通道
type remote struct {
	c        *Client
	endpoint string
	conn     *connection.Connection

	control  *message.Channel
	task     *message.Channel
	assembly *message.Channel
	file     *message.Channel

	negMu      sync.Mutex
	negotiated bool

	mu      sync.Mutex
	waiters map[types.TaskID]chan message.Message
	// retired 已被连接池淘汰，最后一个等待者退出时断开
	retired bool
}

func newRemote(c *Client, endpoint string, conn *connection.Connection) *remote {
	r := &remote{
		c:        c,
		endpoint: endpoint,
		conn:     conn,
		waiters:  make(map[types.TaskID]chan message.Message),
	}
	reg := c.messages
	r.control = message.New(conn.Channel(taskmsg.ChannelControl), reg)
	r.task = message.New(conn.Channel(taskmsg.ChannelTask), reg)
	r.assembly = message.New(conn.Channel(taskmsg.ChannelAssembly), reg)
	r.file = message.New(conn.Channel(taskmsg.ChannelFile), reg)

	r.task.SetHandler(r.handleTask)
	r.assembly.SetHandler(r.handleAssembly)
	r.file.SetHandler(r.handleFile)
	return r
}

// negotiate 每个连接协商一次编解码器
func (r *remote) negotiate() error {
	r.negMu.Lock()
	defer r.negMu.Unlock()
	if r.negotiated {
		return nil
	}

	if err := r.control.Send(&taskmsg.Hello{Codecs: []string{r.c.codec.Name()}}); err != nil {
		return fmt.Errorf("%w: %v", ErrRunnerNotAvailable, err)
	}
	msg, err := r.control.ReceiveTimeout(r.c.cfg.Client.NegotiateTimeout.Duration())
	if err != nil {
		return fmt.Errorf("%w: 协商失败: %v", ErrRunnerNotAvailable, err)
	}
	ack, ok := msg.(*taskmsg.HelloAck)
	if !ok {
		return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}
	if !ack.Accepted {
		return fmt.Errorf("%w: %s", ErrNegotiationFailed, ack.Detail)
	}

	r.negotiated = true
	log.Debug("协商完成",
		"endpoint", r.endpoint,
		"runner", logger.TruncateID(ack.RunnerID, 8),
		"codec", ack.Codec)
	return nil
}

// ============================================================================
//                              任务提交
// ============================================================================

// submit 发送 Request 并等待唯一的终态消息
func (r *remote) submit(ctx context.Context, payload []byte, opts RunOptions) ([]byte, error) {
	id := types.NewTaskID()
	wait := make(chan message.Message, 1)

	r.mu.Lock()
	r.waiters[id] = wait
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.waiters, id)
		drained := r.retired && len(r.waiters) == 0
		r.mu.Unlock()
		if drained {
			log.Debug("淘汰连接上的任务已结束，断开", "endpoint", r.endpoint)
			r.conn.Disconnect()
		}
	}()

	req := &taskmsg.Request{TaskID: id, Payload: payload, Timeout: opts.Timeout}
	if err := r.task.Send(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	log.Debug("任务已提交", "task", logger.TruncateID(string(id), 8), "endpoint", r.endpoint, "size", len(payload))

	select {
	case msg := <-wait:
		return terminalResult(msg)
	case <-r.conn.Done():
		return nil, fmt.Errorf("%w: %s", ErrConnectionLost, r.conn.Reason())
	case <-ctx.Done():
	}

	// 取消：通知 Runner，在宽限期内等待终态
	if err := r.task.Send(&taskmsg.Cancel{TaskID: id}); err != nil {
		log.Debug("发送取消失败", "task", logger.TruncateID(string(id), 8), "err", err)
	}
	select {
	case msg := <-wait:
		log.Debug("取消后收到终态", "task", logger.TruncateID(string(id), 8), "tag", msg.Tag())
	case <-r.c.clock.After(r.c.cfg.Client.CancelGrace.Duration()):
		log.Debug("等待取消确认超时", "task", logger.TruncateID(string(id), 8))
	case <-r.conn.Done():
	}
	return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

// retire 标记连接已淘汰，返回是否可以立即断开
func (r *remote) retire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retired = true
	return len(r.waiters) == 0
}

// pending 返回等待终态的任务数
func (r *remote) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// terminalResult 把终态消息转换为结果或错误
func terminalResult(msg message.Message) ([]byte, error) {
	switch m := msg.(type) {
	case *taskmsg.Response:
		return m.Result, nil
	case *taskmsg.Timeout:
		return nil, ErrTaskTimeout
	case *taskmsg.Cancelled:
		return nil, ErrCancelled
	case *taskmsg.Error:
		if m.Category == types.CategoryRunnerBusy {
			return nil, fmt.Errorf("%w: %s", ErrRunnerBusy, m.Detail)
		}
		return nil, &TaskError{TaskID: m.TaskID, Category: m.Category, Detail: m.Detail}
	case *message.ProtocolError:
		return nil, fmt.Errorf("%w: %s", ErrProtocol, m.Detail)
	default:
		return nil, fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}
}

// ============================================================================
//                              通道回调
// ============================================================================

func (r *remote) handleTask(_ context.Context, msg message.Message) error {
	switch m := msg.(type) {
	case taskmsg.TaskMessage:
		if !taskmsg.IsTerminal(m) {
			return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
		}
		r.mu.Lock()
		wait, ok := r.waiters[m.Task()]
		r.mu.Unlock()
		if !ok {
			log.Debug("收到无人等待的终态", "task", logger.TruncateID(string(m.Task()), 8), "tag", msg.Tag())
			return nil
		}
		select {
		case wait <- msg:
		default:
			log.Warn("重复的终态消息", "task", logger.TruncateID(string(m.Task()), 8), "tag", msg.Tag())
		}
		return nil
	case *message.ProtocolError:
		// 无法判断是哪个任务的消息出错，所有等待中的任务都以协议错误结束
		log.Warn("Runner 报告协议错误", "endpoint", r.endpoint, "detail", m.Detail)
		r.failPending(m)
		return nil
	default:
		return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}
}

// failPending 把 msg 投递给所有等待者
func (r *remote) failPending(msg message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wait := range r.waiters {
		select {
		case wait <- msg:
		default:
		}
	}
}

func (r *remote) handleAssembly(ctx context.Context, msg message.Message) error {
	req, ok := msg.(*taskmsg.AssemblyRequest)
	if !ok {
		return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}
	go func() {
		resp := &taskmsg.AssemblyResponse{RequestID: req.RequestID}
		if r.c.resolver != nil {
			data, found, err := r.c.resolver.Resolve(ctx, req.Name)
			switch {
			case err != nil:
				resp.Detail = err.Error()
			case found:
				resp.Found, resp.Data = true, data
			}
		}
		log.Debug("应答依赖请求", "task", logger.TruncateID(string(req.TaskID), 8), "name", req.Name, "found", resp.Found)
		if err := r.assembly.Send(resp); err != nil {
			log.Debug("发送依赖应答失败", "err", err)
		}
	}()
	return nil
}

func (r *remote) handleFile(ctx context.Context, msg message.Message) error {
	req, ok := msg.(*taskmsg.FileRequest)
	if !ok {
		return fmt.Errorf("%w: %s", message.ErrUnexpectedMessage, msg.Tag())
	}
	go func() {
		resp := &taskmsg.FileResponse{RequestID: req.RequestID}
		if r.c.files == nil {
			resp.Detail = "file access not enabled"
		} else if data, err := r.c.files.ReadFile(ctx, req.Path); err != nil {
			resp.Detail = err.Error()
		} else {
			resp.Data = data
		}
		if err := r.file.Send(resp); err != nil {
			log.Debug("发送文件应答失败", "err", err)
		}
	}()
	return nil
}
