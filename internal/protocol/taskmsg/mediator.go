package taskmsg

import (
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/pkg/types"
)

// RunnerRequest 应用向 Mediator 查找 Runner
type RunnerRequest struct {
	Platforms []string
	Label     string
	Tags      []string
}

func (*RunnerRequest) Tag() string { return TagRunnerRequest }

func (m *RunnerRequest) Encode(w *message.Writer) {
	w.WriteStrings(m.Platforms)
	w.WriteString(m.Label)
	w.WriteStrings(m.Tags)
}

// Criteria 转为选择条件
func (m *RunnerRequest) Criteria() types.RunnerRequest {
	return types.RunnerRequest{Platforms: m.Platforms, Label: m.Label, Tags: m.Tags}
}

func decodeRunnerRequest(r *message.Reader) (message.Message, error) {
	return &RunnerRequest{
		Platforms: r.ReadStrings(),
		Label:     r.ReadString(),
		Tags:      r.ReadStrings(),
	}, nil
}

// RunnerResponse 查找结果，Found 为 false 表示没有合适的 Runner
type RunnerResponse struct {
	Found    bool
	RunnerID types.RunnerID
	Endpoint string
	Label    string
	Platform string
}

func (*RunnerResponse) Tag() string { return TagRunnerResponse }

func (m *RunnerResponse) Encode(w *message.Writer) {
	w.WriteBool(m.Found)
	w.WriteString(string(m.RunnerID))
	w.WriteString(m.Endpoint)
	w.WriteString(m.Label)
	w.WriteString(m.Platform)
}

func decodeRunnerResponse(r *message.Reader) (message.Message, error) {
	return &RunnerResponse{
		Found:    r.ReadBool(),
		RunnerID: types.RunnerID(r.ReadString()),
		Endpoint: r.ReadString(),
		Label:    r.ReadString(),
		Platform: r.ReadString(),
	}, nil
}

// RunnerRegister Runner 向 Mediator 注册
//
// RunnerID 必须与 TLS 握手得到的对端身份一致。
type RunnerRegister struct {
	RunnerID       types.RunnerID
	Label          string
	Platform       string
	Tags           []string
	Endpoint       string
	MaxTasks       int32
	MaxQueueLength int32
	Status         RunnerStatus
}

func (*RunnerRegister) Tag() string { return TagRunnerRegister }

func (m *RunnerRegister) Encode(w *message.Writer) {
	w.WriteString(string(m.RunnerID))
	w.WriteString(m.Label)
	w.WriteString(m.Platform)
	w.WriteStrings(m.Tags)
	w.WriteString(m.Endpoint)
	w.WriteInt32(m.MaxTasks)
	w.WriteInt32(m.MaxQueueLength)
	m.Status.Encode(w)
}

// Descriptor 转为 Mediator 侧描述
func (m *RunnerRegister) Descriptor() *types.RunnerDescriptor {
	return &types.RunnerDescriptor{
		ID:             m.RunnerID,
		Label:          m.Label,
		Platform:       m.Platform,
		Tags:           m.Tags,
		Endpoint:       m.Endpoint,
		MaxTasks:       int(m.MaxTasks),
		MaxQueueLength: int(m.MaxQueueLength),
		State:          m.Status.State,
		ActiveTasks:    int(m.Status.ActiveTasks),
		QueueLength:    int(m.Status.QueueLength),
	}
}

func decodeRunnerRegister(r *message.Reader) (message.Message, error) {
	m := &RunnerRegister{
		RunnerID:       types.RunnerID(r.ReadString()),
		Label:          r.ReadString(),
		Platform:       r.ReadString(),
		Tags:           r.ReadStrings(),
		Endpoint:       r.ReadString(),
		MaxTasks:       r.ReadInt32(),
		MaxQueueLength: r.ReadInt32(),
	}
	m.Status.decode(r)
	return m, nil
}

// RunnerStatus Runner 周期性状态
type RunnerStatus struct {
	State       types.RunnerState
	ActiveTasks int32
	QueueLength int32
}

// NewRunnerStatus 从 types.RunnerStatus 构造
func NewRunnerStatus(s types.RunnerStatus) *RunnerStatus {
	return &RunnerStatus{
		State:       s.State,
		ActiveTasks: int32(s.ActiveTasks),
		QueueLength: int32(s.QueueLength),
	}
}

func (*RunnerStatus) Tag() string { return TagRunnerStatus }

func (m *RunnerStatus) Encode(w *message.Writer) {
	w.WriteUint8(uint8(m.State))
	w.WriteInt32(m.ActiveTasks)
	w.WriteInt32(m.QueueLength)
}

// Status 转为 types.RunnerStatus
func (m *RunnerStatus) Status() types.RunnerStatus {
	return types.RunnerStatus{
		State:       m.State,
		ActiveTasks: int(m.ActiveTasks),
		QueueLength: int(m.QueueLength),
	}
}

func (m *RunnerStatus) decode(r *message.Reader) {
	m.State = types.RunnerState(r.ReadUint8())
	m.ActiveTasks = r.ReadInt32()
	m.QueueLength = r.ReadInt32()
}

func decodeRunnerStatus(r *message.Reader) (message.Message, error) {
	m := &RunnerStatus{}
	m.decode(r)
	return m, nil
}
