package payload

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dep2p/go-offload/pkg/interfaces"
)

// CodecName 编解码器名称，参与控制通道协商
const CodecName = "offload.json-call.v1"

// Call 一次函数调用
type Call struct {
	Func string          `json:"func"`
	Args json.RawMessage `json:"args,omitempty"`
	Deps []string        `json:"deps,omitempty"`
}

// NewCall 构造调用，args 以 JSON 编码
func NewCall(name string, args any, deps ...string) (*Call, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("编码 %s 参数失败: %w", name, err)
	}
	return &Call{Func: name, Args: raw, Deps: deps}, nil
}

// Codec 基于 Registry 的 TaskPayloadCodec
type Codec struct {
	reg *Registry
}

var _ interfaces.TaskPayloadCodec = (*Codec)(nil)

// NewCodec 创建编解码器
func NewCodec(reg *Registry) *Codec {
	return &Codec{reg: reg}
}

// Name 实现 TaskPayloadCodec
func (c *Codec) Name() string {
	return CodecName
}

// Encode 实现 TaskPayloadCodec，payload 必须是 Call 或 *Call
func (c *Codec) Encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case *Call:
		return json.Marshal(p)
	case Call:
		return json.Marshal(&p)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, payload)
	}
}

// Decode 实现 TaskPayloadCodec
//
// 依赖按声明顺序检查，第一个缺失的依赖以 *MissingDependencyError 返回。
func (c *Codec) Decode(data []byte, env interfaces.Env) (interfaces.Invocable, error) {
	var call Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCall, err)
	}
	if call.Func == "" {
		return nil, fmt.Errorf("%w: empty function name", ErrInvalidCall)
	}
	f, ok := c.reg.lookup(call.Func)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, call.Func)
	}

	deps := make(map[string][]byte, len(call.Deps))
	for _, name := range call.Deps {
		var dep []byte
		var found bool
		if env != nil {
			dep, found = env.Dependency(name)
		}
		if !found {
			return nil, &interfaces.MissingDependencyError{Name: name}
		}
		deps[name] = dep
	}

	return &invocation{fn: f, args: call.Args, deps: deps}, nil
}

// invocation 解码后的可执行调用
type invocation struct {
	fn   fn
	args json.RawMessage
	deps map[string][]byte
}

func (i *invocation) Invoke(ctx context.Context) ([]byte, error) {
	return i.fn(context.WithValue(ctx, depsKey{}, i.deps), i.args)
}

type depsKey struct{}

// Dependency 在被调用函数内读取已解析的依赖
func Dependency(ctx context.Context, name string) ([]byte, bool) {
	deps, _ := ctx.Value(depsKey{}).(map[string][]byte)
	data, ok := deps[name]
	return data, ok
}
