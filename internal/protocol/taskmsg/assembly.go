package taskmsg

import (
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/pkg/types"
)

// AssemblyRequest Runner 请求应用解析依赖
type AssemblyRequest struct {
	RequestID int64
	TaskID    types.TaskID
	Name      string
}

func (*AssemblyRequest) Tag() string { return TagAssemblyRequest }

func (m *AssemblyRequest) Encode(w *message.Writer) {
	w.WriteInt64(m.RequestID)
	w.WriteString(string(m.TaskID))
	w.WriteString(m.Name)
}

func decodeAssemblyRequest(r *message.Reader) (message.Message, error) {
	return &AssemblyRequest{
		RequestID: r.ReadInt64(),
		TaskID:    types.TaskID(r.ReadString()),
		Name:      r.ReadString(),
	}, nil
}

// AssemblyResponse 依赖解析结果
//
// Found 为 false 且 Detail 为空表示应用不认识该依赖。
type AssemblyResponse struct {
	RequestID int64
	Found     bool
	Data      []byte
	Detail    string
}

func (*AssemblyResponse) Tag() string { return TagAssemblyResponse }

func (m *AssemblyResponse) Encode(w *message.Writer) {
	w.WriteInt64(m.RequestID)
	w.WriteBool(m.Found)
	w.WriteBytes(m.Data)
	w.WriteString(m.Detail)
}

func decodeAssemblyResponse(r *message.Reader) (message.Message, error) {
	return &AssemblyResponse{
		RequestID: r.ReadInt64(),
		Found:     r.ReadBool(),
		Data:      r.ReadBytes(),
		Detail:    r.ReadString(),
	}, nil
}

// FileRequest Runner 上的任务请求读取应用侧文件
type FileRequest struct {
	RequestID int64
	Path      string
}

func (*FileRequest) Tag() string { return TagFileRequest }

func (m *FileRequest) Encode(w *message.Writer) {
	w.WriteInt64(m.RequestID)
	w.WriteString(m.Path)
}

func decodeFileRequest(r *message.Reader) (message.Message, error) {
	return &FileRequest{RequestID: r.ReadInt64(), Path: r.ReadString()}, nil
}

// FileResponse 文件内容或错误描述
type FileResponse struct {
	RequestID int64
	Data      []byte
	Detail    string
}

func (*FileResponse) Tag() string { return TagFileResponse }

func (m *FileResponse) Encode(w *message.Writer) {
	w.WriteInt64(m.RequestID)
	w.WriteBytes(m.Data)
	w.WriteString(m.Detail)
}

func decodeFileResponse(r *message.Reader) (message.Message, error) {
	return &FileResponse{
		RequestID: r.ReadInt64(),
		Data:      r.ReadBytes(),
		Detail:    r.ReadString(),
	}, nil
}
