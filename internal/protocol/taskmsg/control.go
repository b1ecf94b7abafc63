package taskmsg

import "github.com/dep2p/go-offload/internal/protocol/message"

// Hello 应用发起协商，列出可用的负载编解码器
type Hello struct {
	Codecs []string
}

func (*Hello) Tag() string { return TagHello }

func (m *Hello) Encode(w *message.Writer) {
	w.WriteStrings(m.Codecs)
}

func decodeHello(r *message.Reader) (message.Message, error) {
	return &Hello{Codecs: r.ReadStrings()}, nil
}

// HelloAck Runner 的协商应答
//
// Accepted 为 true 时 Codec 是 Runner 选中的编解码器。
type HelloAck struct {
	Accepted bool
	Codec    string
	RunnerID string
	Detail   string
}

func (*HelloAck) Tag() string { return TagHelloAck }

func (m *HelloAck) Encode(w *message.Writer) {
	w.WriteBool(m.Accepted)
	w.WriteString(m.Codec)
	w.WriteString(m.RunnerID)
	w.WriteString(m.Detail)
}

func decodeHelloAck(r *message.Reader) (message.Message, error) {
	return &HelloAck{
		Accepted: r.ReadBool(),
		Codec:    r.ReadString(),
		RunnerID: r.ReadString(),
		Detail:   r.ReadString(),
	}, nil
}
