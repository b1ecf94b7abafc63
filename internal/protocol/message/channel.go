package message

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/util/logger"
)

var log = logger.Logger("message")

// MaxTagSize tag 最大长度
const MaxTagSize = 256

// MaxBodySize 消息体最大长度
const MaxBodySize = 256 << 20

// Handler 消息回调
type Handler func(ctx context.Context, msg Message) error

// Channel 在 connection.Channel 上收发类型化消息
type Channel struct {
	ch       *connection.Channel
	registry *Registry

	recvMu sync.Mutex

	mu      sync.Mutex
	handler Handler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 包装逻辑通道
func New(ch *connection.Channel, registry *Registry) *Channel {
	return &Channel{ch: ch, registry: registry}
}

// Underlying 返回底层逻辑通道
func (c *Channel) Underlying() *connection.Channel {
	return c.ch
}

// ============================================================================
//                              发送
// ============================================================================

// Send 写出一条消息
//
// 持有通道发送锁，保证 tag 与消息体作为一个整体写出，然后 flush。
func (c *Channel) Send(msg Message) error {
	body := NewWriter()
	msg.Encode(body)

	env := NewWriter()
	env.WriteString(msg.Tag())
	env.WriteBytes(body.Bytes())

	c.ch.Lock()
	defer c.ch.Unlock()

	if _, err := c.ch.Write(env.Bytes()); err != nil {
		return fmt.Errorf("发送 %s 失败: %w", msg.Tag(), mapClosed(err))
	}
	if err := c.ch.Flush(); err != nil {
		return fmt.Errorf("发送 %s 失败: %w", msg.Tag(), mapClosed(err))
	}
	return nil
}

// ============================================================================
//                              同步接收
// ============================================================================

// Receive 阻塞读取下一条消息，直到 ctx 取消
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	c.mu.Lock()
	installed := c.handler != nil
	c.mu.Unlock()
	if installed {
		return nil, ErrHandlerInstalled
	}
	return c.receive(ctx, ctx)
}

// ReceiveTimeout 读取下一条消息，timeout 只约束 tag 的到达
func (c *Channel) ReceiveTimeout(timeout time.Duration) (Message, error) {
	c.mu.Lock()
	installed := c.handler != nil
	c.mu.Unlock()
	if installed {
		return nil, ErrHandlerInstalled
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	msg, err := c.receive(ctx, context.Background())
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrTimeout
	}
	return msg, err
}

// receive 读取信封；tagCtx 约束 tag 到达，bodyCtx 约束其余部分
func (c *Channel) receive(tagCtx, bodyCtx context.Context) (Message, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	// 只等待首字节，信封一旦开始就完整读出，避免流失步
	if c.ch.Buffered() == 0 {
		if err := c.ch.WaitReadable(tagCtx); err != nil {
			return nil, err
		}
	}

	var lenBuf [4]byte
	if _, err := c.ch.ReadFull(bodyCtx, lenBuf[:]); err != nil {
		return nil, mapClosed(err)
	}
	tagLen := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if tagLen <= 0 || tagLen > MaxTagSize {
		return nil, fmt.Errorf("%w: tag length %d", ErrMalformed, tagLen)
	}
	tag := make([]byte, tagLen)
	if _, err := c.ch.ReadFull(bodyCtx, tag); err != nil {
		return nil, mapClosed(err)
	}

	if _, err := c.ch.ReadFull(bodyCtx, lenBuf[:]); err != nil {
		return nil, mapClosed(err)
	}
	bodyLen := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if bodyLen < 0 || bodyLen > MaxBodySize {
		return nil, fmt.Errorf("%w: body length %d", ErrMalformed, bodyLen)
	}
	body := make([]byte, bodyLen)
	if _, err := c.ch.ReadFull(bodyCtx, body); err != nil {
		return nil, mapClosed(err)
	}

	msg, err := c.registry.Decode(string(tag), body)
	if err != nil && !errors.Is(err, ErrUnknownMessage) {
		return nil, fmt.Errorf("%w: %w", ErrBadBody, err)
	}
	return msg, err
}

// ============================================================================
//                              异步回调
// ============================================================================

// SetHandler 安装回调并启动分发 goroutine
//
// 每条消息回调一次，按到达顺序。回调返回错误或 panic 时，
// 向对端发送 ProtocolError 并继续投递。只能安装一次。
func (c *Channel) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		return
	}
	c.handler = h

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.dispatchLoop(ctx, h)
}

func (c *Channel) dispatchLoop(ctx context.Context, h Handler) {
	defer c.wg.Done()

	for {
		msg, err := c.receive(ctx, ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return
			}
			if errors.Is(err, ErrUnknownMessage) || errors.Is(err, ErrBadBody) {
				// 信封完整读出，流仍同步，报告后继续
				log.Warn("丢弃无法解码的消息", "err", err)
				c.reportProtocolError(err)
				continue
			}
			// 信封本身损坏，无法再对齐
			log.Warn("消息流损坏", "err", err)
			c.reportProtocolError(err)
			return
		}

		if err := c.invoke(ctx, h, msg); err != nil {
			log.Debug("消息处理失败", "tag", msg.Tag(), "err", err)
			// 不回应对端的 ProtocolError，避免两端互相回送
			if _, isProto := msg.(*ProtocolError); !isProto {
				c.reportProtocolError(err)
			}
		}
	}
}

// invoke 调用回调并捕获 panic
func (c *Channel) invoke(ctx context.Context, h Handler, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}

func (c *Channel) reportProtocolError(cause error) {
	if err := c.Send(&ProtocolError{Detail: cause.Error()}); err != nil {
		log.Debug("发送协议错误失败", "err", err)
	}
}

// Close 停止回调并关闭底层通道
func (c *Channel) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	return c.ch.Close()
}

func mapClosed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, connection.ErrChannelClosed) || errors.Is(err, connection.ErrDisconnected) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}
