// Package frame 定义连接上的最小传输单元及其编解码
//
// 线格式（大端序）：
//
//	+------+------------+------------+-----------------+
//	| type | channel id |   length   |     payload     |
//	|  1B  |     2B     |     4B     |   length bytes  |
//	+------+------------+------------+-----------------+
//
// 帧层不做拆分：超过 MaxFrameSize 的逻辑写入由 Channel 拆成多帧，
// 接收端按顺序拼接为连续字节流。
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// HeaderSize 帧头长度
const HeaderSize = 7

// DefaultMaxFrameSize 默认最大帧负载
const DefaultMaxFrameSize = 64 * 1024

// Type 帧类型
type Type byte

// 保留帧类型
const (
	// TypeHeartbeat 心跳，负载为 int32 周期（毫秒）
	TypeHeartbeat Type = 0x01
	// TypeDisconnect 断开通知，空负载
	TypeDisconnect Type = 0x02
	// TypeDebug 调试信息，UTF-8 负载
	TypeDebug Type = 0x03
	// TypeChannelData 逻辑通道数据
	TypeChannelData Type = 0x04

	// TypeApplication 起始的类型由应用定义，交给监控钩子处理
	TypeApplication Type = 0x10
)

// String 返回帧类型名
func (t Type) String() string {
	switch t {
	case TypeHeartbeat:
		return "heartbeat"
	case TypeDisconnect:
		return "disconnect"
	case TypeDebug:
		return "debug"
	case TypeChannelData:
		return "data"
	default:
		if t >= TypeApplication {
			return fmt.Sprintf("app(0x%02x)", byte(t))
		}
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// 错误定义
var (
	// ErrFrameTooLarge 帧长度为负或超过上限
	ErrFrameTooLarge = errors.New("frame: invalid frame length")

	// ErrInvalidHeartbeat 心跳负载格式错误
	ErrInvalidHeartbeat = errors.New("frame: invalid heartbeat payload")
)

// Frame 一个原子传输单元
type Frame struct {
	Type      Type
	ChannelID uint16
	Payload   []byte
}

// Len 返回负载长度
func (f Frame) Len() int {
	return len(f.Payload)
}

// Size 返回编码后的总长度
func (f Frame) Size() int {
	return HeaderSize + len(f.Payload)
}

// Append 将帧编码追加到 dst
func Append(dst []byte, f Frame) []byte {
	var hdr [HeaderSize]byte
	hdr[0] = byte(f.Type)
	binary.BigEndian.PutUint16(hdr[1:3], f.ChannelID)
	binary.BigEndian.PutUint32(hdr[3:7], uint32(int32(len(f.Payload))))
	dst = append(dst, hdr[:]...)
	return append(dst, f.Payload...)
}

// Encode 将帧写入 w（一次 Write 调用）
func Encode(w io.Writer, f Frame) error {
	_, err := w.Write(Append(make([]byte, 0, f.Size()), f))
	return err
}

// ReadFrame 从阻塞流中读取一个完整帧
func ReadFrame(r io.Reader, maxFrameSize int) (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	length := int32(binary.BigEndian.Uint32(hdr[3:7]))
	if length < 0 || int(length) > maxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d", ErrFrameTooLarge, length)
	}
	f := Frame{
		Type:      Type(hdr[0]),
		ChannelID: binary.BigEndian.Uint16(hdr[1:3]),
		Payload:   make([]byte, length),
	}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// ============================================================================
//                              保留帧构造
// ============================================================================

// NewHeartbeat 构造心跳帧
func NewHeartbeat(period time.Duration) Frame {
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, uint32(int32(period.Milliseconds())))
	return Frame{Type: TypeHeartbeat, Payload: p}
}

// HeartbeatPeriod 解析心跳帧中的周期
func HeartbeatPeriod(f Frame) (time.Duration, error) {
	if f.Type != TypeHeartbeat || len(f.Payload) != 4 {
		return 0, ErrInvalidHeartbeat
	}
	ms := int32(binary.BigEndian.Uint32(f.Payload))
	if ms <= 0 {
		return 0, ErrInvalidHeartbeat
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// NewDisconnect 构造断开帧
func NewDisconnect() Frame {
	return Frame{Type: TypeDisconnect}
}

// NewDebug 构造调试帧
func NewDebug(msg string) Frame {
	return Frame{Type: TypeDebug, Payload: []byte(msg)}
}

// NewData 构造通道数据帧
func NewData(channelID uint16, payload []byte) Frame {
	return Frame{Type: TypeChannelData, ChannelID: channelID, Payload: payload}
}
