package connection

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-offload/internal/core/frame"
	"github.com/dep2p/go-offload/pkg/types"
)

// Channel 连接上的逻辑通道
//
// 写入先进入写缓冲，由排空 goroutine 拆成不超过 MaxFrameSize 的数据帧；
// 读取从按到达顺序排列的段队列中取数据。
type Channel struct {
	id   uint16
	conn *Connection

	// sendMu 上层消息的独占发送锁
	sendMu sync.Mutex

	wmu     sync.Mutex
	wbuf    []byte
	drainMu sync.Mutex
	kick    chan struct{}
	wclosed atomic.Bool

	rmu      sync.Mutex
	segments [][]byte
	notify   chan struct{}
	signaled bool
	eof      bool
	blocking atomic.Bool

	stop      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

func newChannel(conn *Connection, id uint16) *Channel {
	ch := &Channel{
		id:     id,
		conn:   conn,
		kick:   make(chan struct{}, 1),
		notify: make(chan struct{}),
		stop:   make(chan struct{}),
	}
	ch.blocking.Store(true)
	ch.wg.Add(1)
	go ch.drainLoop()
	return ch
}

// ID 返回通道 ID
func (ch *Channel) ID() types.ChannelID {
	return types.ChannelID(ch.id)
}

// Connection 返回所属连接
func (ch *Channel) Connection() *Connection {
	return ch.conn
}

// Lock 获取独占发送锁
func (ch *Channel) Lock() {
	ch.sendMu.Lock()
}

// Unlock 释放独占发送锁
func (ch *Channel) Unlock() {
	ch.sendMu.Unlock()
}

// SetBlockingReads 设置 Read 在无数据时是否阻塞（默认阻塞）
func (ch *Channel) SetBlockingReads(blocking bool) {
	ch.blocking.Store(blocking)
}

// ============================================================================
//                              写
// ============================================================================

// Write 追加到写缓冲并唤醒排空 goroutine
//
// 关闭标记在 wmu 下检查，成功返回的写入一定在 Close 的最后一次排空之前入缓冲。
func (ch *Channel) Write(p []byte) (int, error) {
	ch.wmu.Lock()
	if ch.wclosed.Load() {
		ch.wmu.Unlock()
		return 0, ErrChannelClosed
	}
	ch.wbuf = append(ch.wbuf, p...)
	ch.wmu.Unlock()

	select {
	case ch.kick <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Flush 同步排空写缓冲，并等待数据写出到底层流
func (ch *Channel) Flush() error {
	if err := ch.drain(); err != nil {
		return err
	}
	return ch.conn.Flush(context.Background())
}

// drain 把写缓冲按 MaxFrameSize 切片送入连接出站队列
//
// drainMu 保证多次排空串行执行，写缓冲锁不跨越队列操作持有。
func (ch *Channel) drain() error {
	ch.drainMu.Lock()
	defer ch.drainMu.Unlock()

	maxSize := ch.conn.opts.MaxFrameSize
	for {
		ch.wmu.Lock()
		if len(ch.wbuf) == 0 {
			ch.wmu.Unlock()
			return nil
		}
		n := min(len(ch.wbuf), maxSize)
		chunk := make([]byte, n)
		copy(chunk, ch.wbuf[:n])
		if n == len(ch.wbuf) {
			ch.wbuf = ch.wbuf[:0]
		} else {
			ch.wbuf = ch.wbuf[n:]
		}
		ch.wmu.Unlock()

		if err := ch.conn.send(frame.NewData(ch.id, chunk)); err != nil {
			return err
		}
	}
}

func (ch *Channel) drainLoop() {
	defer ch.wg.Done()

	ticker := ch.conn.opts.Clock.Ticker(ch.conn.opts.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ch.stop:
			return
		case <-ch.kick:
		case <-ticker.C:
		}
		if err := ch.drain(); err != nil {
			return
		}
	}
}

// ============================================================================
//                              读
// ============================================================================

// deliver 读循环投递数据
func (ch *Channel) deliver(p []byte) {
	if len(p) == 0 {
		return
	}
	ch.rmu.Lock()
	defer ch.rmu.Unlock()
	if ch.eof {
		return
	}
	ch.segments = append(ch.segments, p)
	ch.signalLocked()
}

func (ch *Channel) signalLocked() {
	if !ch.signaled {
		ch.signaled = true
		close(ch.notify)
	}
}

// readNow 读取当前可用数据，不阻塞
func (ch *Channel) readNow(p []byte) (int, bool) {
	ch.rmu.Lock()
	defer ch.rmu.Unlock()

	n := 0
	for n < len(p) && len(ch.segments) > 0 {
		seg := ch.segments[0]
		c := copy(p[n:], seg)
		n += c
		if c == len(seg) {
			ch.segments[0] = nil
			ch.segments = ch.segments[1:]
		} else {
			ch.segments[0] = seg[c:]
		}
	}
	if len(ch.segments) == 0 && !ch.eof && ch.signaled {
		ch.signaled = false
		ch.notify = make(chan struct{})
	}
	return n, ch.eof && len(ch.segments) == 0
}

// Read 读取可用数据
//
// 阻塞模式下等待数据、通道关闭或连接断开（返回 io.EOF）；
// 非阻塞模式下没有数据时返回 0, nil。
func (ch *Channel) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, eof := ch.readNow(p)
		if n > 0 {
			return n, nil
		}
		if eof {
			return 0, io.EOF
		}
		if !ch.blocking.Load() {
			return 0, nil
		}
		<-ch.Readable()
	}
}

// ReadFull 读满 p，或直到 ctx 取消 / 通道结束
func (ch *Channel) ReadFull(ctx context.Context, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, eof := ch.readNow(p[total:])
		total += n
		if total == len(p) {
			break
		}
		if eof {
			if total == 0 {
				return 0, io.EOF
			}
			return total, io.ErrUnexpectedEOF
		}
		if n > 0 {
			continue
		}
		if err := ch.WaitReadable(ctx); err != nil {
			return total, err
		}
	}
	return total, nil
}

// Readable 返回一个在有数据可读或通道结束时关闭的 channel
func (ch *Channel) Readable() <-chan struct{} {
	ch.rmu.Lock()
	defer ch.rmu.Unlock()
	return ch.notify
}

// WaitReadable 等待可读或 ctx 取消
func (ch *Channel) WaitReadable(ctx context.Context) error {
	select {
	case <-ch.Readable():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Buffered 返回可读字节数
func (ch *Channel) Buffered() int {
	ch.rmu.Lock()
	defer ch.rmu.Unlock()
	n := 0
	for _, seg := range ch.segments {
		n += len(seg)
	}
	return n
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 排空写缓冲、停止排空 goroutine 并从连接注销
//
// 已收到未读取的数据仍可读出，之后 Read 返回 io.EOF。
func (ch *Channel) Close() error {
	ch.closeOnce.Do(func() {
		ch.closeWrites()
		if ch.conn.IsConnected() {
			ch.closeErr = ch.Flush()
		}
		ch.stopDrain()
		ch.conn.unregister(ch)
		ch.markEOF()
	})
	return ch.closeErr
}

// connectionClosed 连接断开时调用
func (ch *Channel) connectionClosed() {
	ch.closeWrites()
	ch.stopDrain()
	ch.markEOF()
}

func (ch *Channel) closeWrites() {
	ch.wmu.Lock()
	ch.wclosed.Store(true)
	ch.wmu.Unlock()
}

func (ch *Channel) stopDrain() {
	ch.stopOnce.Do(func() {
		close(ch.stop)
	})
	ch.wg.Wait()
}

func (ch *Channel) markEOF() {
	ch.rmu.Lock()
	defer ch.rmu.Unlock()
	ch.eof = true
	ch.signalLocked()
}
