package connection

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-offload/internal/core/frame"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/core/transport/tcp"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/types"
)

var log = logger.Logger("connection")

// Role 连接角色
type Role int

const (
	// RoleServer 接受方（TLS 服务端）
	RoleServer Role = iota
	// RoleClient 拨号方（TLS 客户端）
	RoleClient
)

// String 返回角色名
func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// outItem 出站队列元素：数据帧或 flush 标记（done 非 nil）
type outItem struct {
	f    frame.Frame
	done chan struct{}
}

// Connection 单条字节流上的多路复用连接
type Connection struct {
	id       string
	conn     net.Conn
	role     Role
	remoteID string
	opts     Options

	mu            sync.Mutex
	channels      map[uint16]*Channel
	disconnectCbs []func(types.DisconnectReason)
	err           error // 两个循环的终止错误，multierr 合并
	writeErr      error
	reason        types.DisconnectReason

	outbound         chan outItem
	heartbeatPending atomic.Bool
	wake             chan struct{}

	lastRemoteTraffic atomic.Int64 // 时钟纳秒
	remotePeriod      atomic.Int64 // 纳秒，0 表示对端尚未通告

	localDisconnect atomic.Bool
	shutdownOnce    sync.Once
	closing         chan struct{}
	done            chan struct{}
	wg              sync.WaitGroup
}

// Accept 对已接受的原始连接完成 TLS 握手并创建连接
func Accept(ctx context.Context, raw net.Conn, sec *tls.Transport, opts Options) (*Connection, error) {
	sc, err := sec.SecureInbound(ctx, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return New(sc, RoleServer, sc.RemoteIdentity().ID, opts), nil
}

// Dial 拨号、握手并创建连接
func Dial(ctx context.Context, addr string, sec *tls.Transport, dialTimeout time.Duration, opts Options) (*Connection, error) {
	raw, err := tcp.Dial(ctx, addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	sc, err := sec.SecureOutbound(ctx, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return New(sc, RoleClient, sc.RemoteIdentity().ID, opts), nil
}

// New 在已认证的流上创建连接并启动后台循环
func New(conn net.Conn, role Role, remoteID string, opts Options) *Connection {
	opts.applyDefaults()

	c := &Connection{
		id:       uuid.NewString(),
		conn:     conn,
		role:     role,
		remoteID: remoteID,
		opts:     opts,
		channels: make(map[uint16]*Channel),
		outbound: make(chan outItem, opts.OutboundQueueSize),
		wake:     make(chan struct{}, 1),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.lastRemoteTraffic.Store(opts.Clock.Now().UnixNano())

	ticker := opts.Clock.Ticker(opts.HeartbeatPeriod)
	c.wg.Add(3)
	go c.readLoop()
	go c.writeLoop()
	go c.heartbeatLoop(ticker)

	opts.Metrics.ConnectionOpened()
	log.Debug("连接已建立",
		"id", logger.TruncateID(c.id, 8),
		"role", role.String(),
		"remote", logger.TruncateID(remoteID, 8),
		"addr", addrString(conn.RemoteAddr()))
	return c
}

// ID 返回连接 ID
func (c *Connection) ID() string {
	return c.id
}

// Role 返回连接角色
func (c *Connection) Role() Role {
	return c.role
}

// RemoteID 返回对端身份 ID
func (c *Connection) RemoteID() string {
	return c.remoteID
}

// RemoteAddr 返回对端地址
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// IsConnected 连接是否存活
func (c *Connection) IsConnected() bool {
	select {
	case <-c.closing:
		return false
	default:
		return true
	}
}

// Done 连接完全断开（后台循环退出）后关闭
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Reason 返回断开原因，存活时为 ReasonNone
func (c *Connection) Reason() types.DisconnectReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Err 返回后台循环累积的错误
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OnDisconnect 注册断开回调；已断开时立即调用
func (c *Connection) OnDisconnect(fn func(types.DisconnectReason)) {
	c.mu.Lock()
	select {
	case <-c.done:
		reason := c.reason
		c.mu.Unlock()
		fn(reason)
		return
	default:
	}
	c.disconnectCbs = append(c.disconnectCbs, fn)
	c.mu.Unlock()
}

// ============================================================================
//                              通道注册表
// ============================================================================

// Channel 返回指定 ID 的通道，不存在时创建
func (c *Connection) Channel(id types.ChannelID) *Channel {
	ch, _ := c.channel(uint16(id))
	return ch
}

// ChannelByName 返回由名字哈希得到的通道
func (c *Connection) ChannelByName(name string) (*Channel, error) {
	id, err := types.ChannelIDFromName(name)
	if err != nil {
		return nil, err
	}
	return c.Channel(id), nil
}

// Channels 返回当前所有通道的快照
func (c *Connection) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

func (c *Connection) channel(id uint16) (*Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[id]; ok {
		return ch, false
	}
	ch := newChannel(c, id)
	c.channels[id] = ch
	if !c.IsConnected() {
		ch.connectionClosed()
	}
	return ch, true
}

func (c *Connection) unregister(ch *Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.channels[ch.id]; ok && cur == ch {
		delete(c.channels, ch.id)
	}
}

// ============================================================================
//                              发送
// ============================================================================

// send 将帧放入出站队列
func (c *Connection) send(f frame.Frame) error {
	select {
	case <-c.closing:
		return ErrDisconnected
	default:
	}
	select {
	case c.outbound <- outItem{f: f}:
		return nil
	case <-c.closing:
		return ErrDisconnected
	}
}

// Flush 阻塞直到此前入队的帧全部写出，或连接断开
func (c *Connection) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case c.outbound <- outItem{done: done}:
	case <-c.closing:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-c.closing:
		select {
		case <-done:
			return nil
		default:
			return ErrDisconnected
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendDebug 发送调试帧
func (c *Connection) SendDebug(msg string) error {
	return c.send(frame.NewDebug(msg))
}

// SendMonitor 发送应用自定义类型的帧
func (c *Connection) SendMonitor(t frame.Type, payload []byte) error {
	if t < frame.TypeApplication {
		return ErrInvalidMonitorType
	}
	return c.send(frame.Frame{Type: t, Payload: payload})
}

// ============================================================================
//                              断开
// ============================================================================

// Disconnect 优雅断开
//
// 依次：关闭并 flush 所有通道，发送断开帧并 flush，关闭底层流，等待后台循环退出。
// 重复调用会等待第一次断开完成。
func (c *Connection) Disconnect() {
	if !c.localDisconnect.CompareAndSwap(false, true) || !c.IsConnected() {
		<-c.done
		return
	}

	for _, ch := range c.Channels() {
		_ = ch.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.WriteTimeout)
	defer cancel()
	if err := c.send(frame.NewDisconnect()); err == nil {
		_ = c.Flush(ctx)
	}

	c.shutdown(types.ReasonLocalDisconnect, nil)
	<-c.done
}

// Close 断开并返回后台循环中累积的错误
func (c *Connection) Close() error {
	c.Disconnect()
	return c.Err()
}

// recordErr 记录循环的终止错误，每个循环各记一次
func (c *Connection) recordErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	multierr.AppendInto(&c.err, err)
}

// shutdown 标记断开并停止后台循环
//
// 错误每次调用都记录，断开原因只取第一次。
func (c *Connection) shutdown(reason types.DisconnectReason, err error) {
	// 本端正在断开时，对端随之关闭流不算掉线
	if reason == types.ReasonDropped && c.localDisconnect.Load() {
		reason = types.ReasonLocalDisconnect
		err = nil
	}
	if err != nil {
		c.recordErr(err)
	}

	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()

		close(c.closing)
		_ = c.conn.Close()

		for _, ch := range c.Channels() {
			ch.connectionClosed()
		}

		go c.finish(reason)
	})
}

func (c *Connection) finish(reason types.DisconnectReason) {
	c.wg.Wait()
	c.opts.Metrics.ConnectionClosed(reason.String())

	err := c.Err()
	if err != nil {
		log.Info("连接断开", "id", logger.TruncateID(c.id, 8), "reason", reason.String(), "err", err)
	} else {
		log.Debug("连接断开", "id", logger.TruncateID(c.id, 8), "reason", reason.String())
	}

	c.mu.Lock()
	cbs := c.disconnectCbs
	c.disconnectCbs = nil
	close(c.done)
	c.mu.Unlock()

	for _, fn := range cbs {
		fn(reason)
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// String 返回连接的简短描述
func (c *Connection) String() string {
	return fmt.Sprintf("conn(%s %s %s)", logger.TruncateID(c.id, 8), c.role, logger.TruncateID(c.remoteID, 8))
}
