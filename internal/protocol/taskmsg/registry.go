package taskmsg

import "github.com/dep2p/go-offload/internal/protocol/message"

var decoders = map[string]message.Decoder{
	TagHello:            decodeHello,
	TagHelloAck:         decodeHelloAck,
	TagRequest:          decodeRequest,
	TagResponse:         decodeResponse,
	TagError:            decodeError,
	TagCancel:           decodeCancel,
	TagCancelled:        decodeCancelled,
	TagTimeout:          decodeTimeout,
	TagAssemblyRequest:  decodeAssemblyRequest,
	TagAssemblyResponse: decodeAssemblyResponse,
	TagFileRequest:      decodeFileRequest,
	TagFileResponse:     decodeFileResponse,
	TagRunnerRequest:    decodeRunnerRequest,
	TagRunnerResponse:   decodeRunnerResponse,
	TagRunnerRegister:   decodeRunnerRegister,
	TagRunnerStatus:     decodeRunnerStatus,
}

// NewRegistry 返回注册了全部任务协议消息的注册表
func NewRegistry() *message.Registry {
	r := message.NewRegistry()
	for tag, dec := range decoders {
		r.MustRegister(tag, dec)
	}
	return r
}
