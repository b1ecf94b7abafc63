package message

import (
	"fmt"
	"sort"
	"sync"
)

// Message 可在通道上传输的消息
type Message interface {
	// Tag 稳定的版本化类型标识，例如 "offload.task.request.v1"
	Tag() string

	// Encode 编码消息体
	Encode(w *Writer)
}

// Decoder 从消息体解码出消息
type Decoder func(r *Reader) (Message, error)

// Registry 消息 tag 注册表
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry 创建注册表，ProtocolError 已预先注册
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	_ = r.Register(TagProtocolError, decodeProtocolError)
	return r
}

// Register 注册 tag 的解码函数
func (r *Registry) Register(tag string, dec Decoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[tag]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
	}
	r.decoders[tag] = dec
	return nil
}

// MustRegister 注册，重复时 panic（用于包初始化）
func (r *Registry) MustRegister(tag string, dec Decoder) {
	if err := r.Register(tag, dec); err != nil {
		panic(err)
	}
}

// Decode 解码消息体
func (r *Registry) Decode(tag string, body []byte) (Message, error) {
	r.mu.RLock()
	dec, ok := r.decoders[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, tag)
	}

	rd := NewReader(body)
	msg, err := dec(rd)
	if err != nil {
		return nil, err
	}
	if rd.Err() != nil {
		return nil, fmt.Errorf("解码 %s 失败: %w", tag, rd.Err())
	}
	return msg, nil
}

// Tags 返回已注册的 tag（有序）
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.decoders))
	for tag := range r.decoders {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ============================================================================
//                              ProtocolError
// ============================================================================

// TagProtocolError ProtocolError 的 tag
const TagProtocolError = "offload.protocol-error.v1"

// ProtocolError 通用协议错误，报告对端发来的消息无法处理
type ProtocolError struct {
	Detail string
}

// Tag 实现 Message
func (*ProtocolError) Tag() string { return TagProtocolError }

// Encode 实现 Message
func (m *ProtocolError) Encode(w *Writer) {
	w.WriteString(m.Detail)
}

// Error 实现 error
func (m *ProtocolError) Error() string {
	return "protocol error: " + m.Detail
}

func decodeProtocolError(r *Reader) (Message, error) {
	return &ProtocolError{Detail: r.ReadString()}, nil
}
