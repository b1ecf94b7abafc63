package frame

import (
	"encoding/binary"
	"fmt"
)

// compactThreshold 已消费字节超过该值时压缩缓冲区
const compactThreshold = 64 * 1024

// Buffer 累积字节流并非破坏性地解码帧
//
// 读循环把读到的字节 Write 进来，然后反复调用 Next；
// 不足一个完整帧时 Next 返回 ok=false 且不移动读位置。
// Buffer 不是并发安全的，只由读循环使用。
type Buffer struct {
	buf          []byte
	off          int
	maxFrameSize int
}

// NewBuffer 创建解码缓冲区
func NewBuffer(maxFrameSize int) *Buffer {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Buffer{maxFrameSize: maxFrameSize}
}

// Write 追加字节（总是成功）
func (b *Buffer) Write(p []byte) (int, error) {
	if b.off > compactThreshold && b.off > len(b.buf)/2 {
		n := copy(b.buf, b.buf[b.off:])
		b.buf = b.buf[:n]
		b.off = 0
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Buffered 返回未消费的字节数
func (b *Buffer) Buffered() int {
	return len(b.buf) - b.off
}

// Next 尝试解码一个完整帧
//
// 字节不足时返回 ok=false、err=nil，读位置不变。
// 长度非法时返回 ErrFrameTooLarge，此后缓冲区内容不再可信。
func (b *Buffer) Next() (f Frame, ok bool, err error) {
	avail := b.buf[b.off:]
	if len(avail) < HeaderSize {
		return Frame{}, false, nil
	}

	length := int32(binary.BigEndian.Uint32(avail[3:7]))
	if length < 0 || int(length) > b.maxFrameSize {
		return Frame{}, false, fmt.Errorf("%w: %d (max %d)", ErrFrameTooLarge, length, b.maxFrameSize)
	}
	if len(avail) < HeaderSize+int(length) {
		return Frame{}, false, nil
	}

	payload := make([]byte, length)
	copy(payload, avail[HeaderSize:HeaderSize+int(length)])
	f = Frame{
		Type:      Type(avail[0]),
		ChannelID: binary.BigEndian.Uint16(avail[1:3]),
		Payload:   payload,
	}
	b.off += HeaderSize + int(length)
	if b.off == len(b.buf) {
		b.buf = b.buf[:0]
		b.off = 0
	}
	return f, true, nil
}
