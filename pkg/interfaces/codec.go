package interfaces

import (
	"context"
	"errors"
	"fmt"
)

// TaskPayloadCodec 任务负载编解码器
//
// 应用侧用 Encode 把一个可执行单元序列化为不透明字节；
// Runner 侧用 Decode 还原出 Invocable。
// Decode 发现缺少依赖时返回 *MissingDependencyError，
// 调用方解析该依赖并放入 Env 后重试。
type TaskPayloadCodec interface {
	// Name 编解码器名称，用于控制通道上的任务类型协商
	Name() string

	// Encode 编码负载
	Encode(payload any) ([]byte, error)

	// Decode 解码负载
	Decode(data []byte, env Env) (Invocable, error)
}

// Invocable 可执行单元
type Invocable interface {
	// Invoke 执行并返回序列化后的结果
	//
	// ctx 在任务被取消或超时后会被取消，实现应当轮询 ctx.Done()。
	Invoke(ctx context.Context) ([]byte, error)
}

// Env 解码环境，携带已解析的依赖
type Env interface {
	// Dependency 返回已解析的依赖内容
	Dependency(name string) ([]byte, bool)
}

// ErrMissingDependency 缺少依赖（用于 errors.Is）
var ErrMissingDependency = errors.New("interfaces: missing dependency")

// MissingDependencyError 负载解码时缺少依赖
type MissingDependencyError struct {
	Name string
}

// Error 实现 error 接口
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency %q", e.Name)
}

// Is 支持 errors.Is(err, ErrMissingDependency)
func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}

// MapEnv 基于 map 的 Env 实现
type MapEnv map[string][]byte

// Dependency 实现 Env 接口
func (m MapEnv) Dependency(name string) ([]byte, bool) {
	data, ok := m[name]
	return data, ok
}
