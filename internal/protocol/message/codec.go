package message

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ============================================================================
//                              Writer
// ============================================================================

// Writer 消息体编码器
type Writer struct {
	buf []byte
}

// NewWriter 创建编码器
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes 返回已编码内容
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteUint8 写入 1 字节
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteBool 写入布尔值
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// WriteUint16 写入大端 uint16
func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteInt32 写入大端 int32
func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

// WriteInt64 写入大端 int64
func (w *Writer) WriteInt64(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

// WriteDuration 以毫秒 int64 写入时长
func (w *Writer) WriteDuration(d time.Duration) {
	w.WriteInt64(d.Milliseconds())
}

// WriteBytes 写入带 int32 长度前缀的字节数组
func (w *Writer) WriteBytes(b []byte) {
	w.WriteInt32(int32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString 写入带 int32 长度前缀的 UTF-8 字符串
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteStrings 写入字符串数组（int32 个数 + 各字符串）
func (w *Writer) WriteStrings(ss []string) {
	w.WriteInt32(int32(len(ss)))
	for _, s := range ss {
		w.WriteString(s)
	}
}

// ============================================================================
//                              Reader
// ============================================================================

// Reader 消息体解码器
//
// 错误是粘滞的：第一次失败后所有读取返回零值，Err() 返回该错误。
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader 创建解码器
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err 返回第一个解码错误
func (r *Reader) Err() error {
	return r.err
}

// Remaining 返回未读字节数
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.off, r.Remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// ReadUint8 读取 1 字节
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool 读取布尔值
func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

// ReadUint16 读取大端 uint16
func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// ReadInt32 读取大端 int32
func (r *Reader) ReadInt32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

// ReadInt64 读取大端 int64
func (r *Reader) ReadInt64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// ReadDuration 读取毫秒时长
func (r *Reader) ReadDuration() time.Duration {
	return time.Duration(r.ReadInt64()) * time.Millisecond
}

// ReadBytes 读取带长度前缀的字节数组（返回副本）
func (r *Reader) ReadBytes() []byte {
	n := r.ReadInt32()
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ReadString 读取带长度前缀的字符串
func (r *Reader) ReadString() string {
	n := r.ReadInt32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// ReadStrings 读取字符串数组
func (r *Reader) ReadStrings() []string {
	n := int(r.ReadInt32())
	if r.err != nil {
		return nil
	}
	// 每个元素至少 4 字节长度前缀
	if n < 0 || n > r.Remaining()/4 {
		r.err = fmt.Errorf("%w: bad string count %d", ErrMalformed, n)
		return nil
	}
	if n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.ReadString())
	}
	if r.err != nil {
		return nil
	}
	return out
}
