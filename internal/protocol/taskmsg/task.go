package taskmsg

import (
	"time"

	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/pkg/types"
)

// TaskMessage task 通道上的消息都携带任务 ID
type TaskMessage interface {
	message.Message
	Task() types.TaskID
}

// IsTerminal 是否为终态消息（Response / Error / Cancelled / Timeout）
func IsTerminal(msg message.Message) bool {
	switch msg.(type) {
	case *Response, *Error, *Cancelled, *Timeout:
		return true
	default:
		return false
	}
}

// Outcome 返回终态消息对应的任务终态
func Outcome(msg message.Message) types.TaskOutcome {
	switch msg.(type) {
	case *Response:
		return types.OutcomeCompleted
	case *Error:
		return types.OutcomeErrored
	case *Cancelled:
		return types.OutcomeCancelled
	case *Timeout:
		return types.OutcomeTimedOut
	default:
		return types.OutcomePending
	}
}

// ============================================================================
//                              Request
// ============================================================================

// Request 提交任务
type Request struct {
	TaskID  types.TaskID
	Payload []byte

	// Timeout 为 0 表示不限时
	Timeout time.Duration
}

func (*Request) Tag() string          { return TagRequest }
func (m *Request) Task() types.TaskID { return m.TaskID }

func (m *Request) Encode(w *message.Writer) {
	w.WriteString(string(m.TaskID))
	w.WriteBytes(m.Payload)
	w.WriteDuration(m.Timeout)
}

func decodeRequest(r *message.Reader) (message.Message, error) {
	return &Request{
		TaskID:  types.TaskID(r.ReadString()),
		Payload: r.ReadBytes(),
		Timeout: r.ReadDuration(),
	}, nil
}

// ============================================================================
//                              终态消息
// ============================================================================

// Response 任务正常完成
type Response struct {
	TaskID types.TaskID
	Result []byte
}

func (*Response) Tag() string          { return TagResponse }
func (m *Response) Task() types.TaskID { return m.TaskID }

func (m *Response) Encode(w *message.Writer) {
	w.WriteString(string(m.TaskID))
	w.WriteBytes(m.Result)
}

func decodeResponse(r *message.Reader) (message.Message, error) {
	return &Response{TaskID: types.TaskID(r.ReadString()), Result: r.ReadBytes()}, nil
}

// Error 任务失败
type Error struct {
	TaskID   types.TaskID
	Category types.ErrorCategory
	Detail   string
}

func (*Error) Tag() string          { return TagError }
func (m *Error) Task() types.TaskID { return m.TaskID }

func (m *Error) Encode(w *message.Writer) {
	w.WriteString(string(m.TaskID))
	w.WriteUint8(uint8(m.Category))
	w.WriteString(m.Detail)
}

func decodeError(r *message.Reader) (message.Message, error) {
	return &Error{
		TaskID:   types.TaskID(r.ReadString()),
		Category: types.ErrorCategory(r.ReadUint8()),
		Detail:   r.ReadString(),
	}, nil
}

// Cancelled 任务已取消
type Cancelled struct {
	TaskID types.TaskID
}

func (*Cancelled) Tag() string          { return TagCancelled }
func (m *Cancelled) Task() types.TaskID { return m.TaskID }

func (m *Cancelled) Encode(w *message.Writer) {
	w.WriteString(string(m.TaskID))
}

func decodeCancelled(r *message.Reader) (message.Message, error) {
	return &Cancelled{TaskID: types.TaskID(r.ReadString())}, nil
}

// Timeout 任务超时
type Timeout struct {
	TaskID types.TaskID
}

func (*Timeout) Tag() string          { return TagTimeout }
func (m *Timeout) Task() types.TaskID { return m.TaskID }

func (m *Timeout) Encode(w *message.Writer) {
	w.WriteString(string(m.TaskID))
}

func decodeTimeout(r *message.Reader) (message.Message, error) {
	return &Timeout{TaskID: types.TaskID(r.ReadString())}, nil
}

// ============================================================================
//                              Cancel
// ============================================================================

// Cancel 应用请求取消任务
type Cancel struct {
	TaskID types.TaskID
}

func (*Cancel) Tag() string          { return TagCancel }
func (m *Cancel) Task() types.TaskID { return m.TaskID }

func (m *Cancel) Encode(w *message.Writer) {
	w.WriteString(string(m.TaskID))
}

func decodeCancel(r *message.Reader) (message.Message, error) {
	return &Cancel{TaskID: types.TaskID(r.ReadString())}, nil
}
