package connection

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-offload/internal/core/frame"
	"github.com/dep2p/go-offload/pkg/types"
)

// readBufferSize 单次读取缓冲
const readBufferSize = 32 * 1024

// ============================================================================
//                              读循环
// ============================================================================

func (c *Connection) readLoop() {
	defer c.wg.Done()

	buf := make([]byte, readBufferSize)
	fb := frame.NewBuffer(c.opts.MaxFrameSize)

	for {
		if !c.IsConnected() {
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.lastRemoteTraffic.Store(c.opts.Clock.Now().UnixNano())
			_, _ = fb.Write(buf[:n])
			if !c.dispatchBuffered(fb) {
				return
			}
		}

		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if !c.checkLiveness() {
					return
				}
				continue
			}
			if !c.IsConnected() {
				return
			}
			// 写循环失败时会关闭底层流，断开原因以写错误为准
			werr := c.writeError()
			switch {
			case werr != nil:
				if !isClosedErr(err) {
					c.recordErr(err)
				}
				if isClosedErr(werr) {
					c.shutdown(types.ReasonDropped, nil)
				} else {
					c.shutdown(types.ReasonError, nil)
				}
			case isClosedErr(err):
				c.shutdown(types.ReasonDropped, nil)
			default:
				c.shutdown(types.ReasonError, err)
			}
			return
		}

		if !c.checkLiveness() {
			return
		}
	}
}

// dispatchBuffered 分发缓冲中所有完整帧，返回 false 表示连接已结束
func (c *Connection) dispatchBuffered(fb *frame.Buffer) bool {
	for {
		f, ok, err := fb.Next()
		if err != nil {
			c.shutdown(types.ReasonError, err)
			return false
		}
		if !ok {
			return true
		}
		c.opts.Metrics.FrameReceived(f.Size())
		if !c.dispatch(f) {
			return false
		}
	}
}

func (c *Connection) dispatch(f frame.Frame) bool {
	switch {
	case f.Type == frame.TypeHeartbeat:
		period, err := frame.HeartbeatPeriod(f)
		if err != nil {
			c.shutdown(types.ReasonError, err)
			return false
		}
		c.remotePeriod.Store(int64(period))

	case f.Type == frame.TypeDisconnect:
		c.shutdown(types.ReasonRemoteDisconnect, nil)
		return false

	case f.Type == frame.TypeDebug:
		log.Debug("收到调试帧", "conn", c.String(), "msg", string(f.Payload))
		if c.opts.OnDebug != nil {
			c.opts.OnDebug(string(f.Payload))
		}

	case f.Type == frame.TypeChannelData:
		ch, created := c.channel(f.ChannelID)
		ch.deliver(f.Payload)
		if created && c.opts.OnChannel != nil {
			c.opts.OnChannel(ch)
		}

	case f.Type >= frame.TypeApplication:
		if c.opts.OnMonitor != nil {
			c.opts.OnMonitor(f)
		}

	default:
		log.Warn("忽略未知保留帧类型", "conn", c.String(), "type", f.Type.String())
	}
	return true
}

// checkLiveness 对端静默超过两倍心跳周期则断开，返回 false 表示连接已结束
func (c *Connection) checkLiveness() bool {
	period := time.Duration(c.remotePeriod.Load())
	if period <= 0 {
		period = c.opts.HeartbeatPeriod
	}
	last := time.Unix(0, c.lastRemoteTraffic.Load())
	if silence := c.opts.Clock.Now().Sub(last); silence > 2*period {
		log.Info("对端静默超时", "conn", c.String(), "silence", silence, "period", period)
		c.shutdown(types.ReasonDropped, ErrPeerSilent)
		return false
	}
	return true
}

// ============================================================================
//                              写循环
// ============================================================================

func (c *Connection) writeLoop() {
	defer c.wg.Done()

	for {
		if c.heartbeatPending.CompareAndSwap(true, false) {
			if !c.write(frame.NewHeartbeat(c.opts.HeartbeatPeriod)) {
				return
			}
		}

		select {
		case <-c.closing:
			return
		case <-c.wake:
		case it := <-c.outbound:
			if c.heartbeatPending.CompareAndSwap(true, false) {
				if !c.write(frame.NewHeartbeat(c.opts.HeartbeatPeriod)) {
					return
				}
			}
			if it.done != nil {
				close(it.done)
				continue
			}
			if !c.write(it.f) {
				return
			}
		}
	}
}

// write 写出单帧，返回 false 表示连接已结束
func (c *Connection) write(f frame.Frame) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := frame.Encode(c.conn, f); err != nil {
		if !c.IsConnected() {
			if !isClosedErr(err) && !errors.Is(err, os.ErrDeadlineExceeded) {
				c.recordErr(err)
			}
			return false
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			c.shutdown(types.ReasonUnresponsive, ErrWriteTimeout)
			return false
		}
		// 读循环可能还持有已读入的断开帧，由它决定断开原因
		c.mu.Lock()
		c.writeErr = err
		if !isClosedErr(err) {
			multierr.AppendInto(&c.err, err)
		}
		c.mu.Unlock()
		_ = c.conn.Close()
		return false
	}
	c.opts.Metrics.FrameSent(f.Size())
	return true
}

func (c *Connection) writeError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeErr
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

// ============================================================================
//                              心跳
// ============================================================================

func (c *Connection) heartbeatLoop(ticker *clock.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()

	c.markHeartbeat()
	for {
		select {
		case <-ticker.C:
			c.markHeartbeat()
		case <-c.closing:
			return
		}
	}
}

// markHeartbeat 标记心跳待发并唤醒写循环
func (c *Connection) markHeartbeat() {
	c.heartbeatPending.Store(true)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
