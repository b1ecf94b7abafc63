package offload

import (
	"context"
	"fmt"
	"io"

	"github.com/dep2p/go-offload/internal/payload"
	"github.com/dep2p/go-offload/internal/runner"
)

// ════════════════════════════════════════════════════════════════════════════
//                              函数注册
// ════════════════════════════════════════════════════════════════════════════

// NewFunctions 创建空函数表
func NewFunctions() *Functions {
	return payload.NewRegistry()
}

// Register 注册函数，参数与结果以 JSON 传输
func Register[A, R any](fns *Functions, name string, f func(ctx context.Context, args A) (R, error)) error {
	return payload.Register(fns, name, f)
}

// MustRegister 注册失败时 panic
func MustRegister[A, R any](fns *Functions, name string, f func(ctx context.Context, args A) (R, error)) {
	payload.MustRegister(fns, name, f)
}

// NewCodec 基于函数表的编解码器
//
// 应用侧只用于编码，传空函数表即可；Runner 侧必须包含要执行的函数。
func NewCodec(fns *Functions) TaskPayloadCodec {
	return payload.NewCodec(fns)
}

// NewCompressedCodec 负载超过 threshold 字节时用 zstd 压缩
//
// 两端必须使用相同的包装，否则协商失败。
func NewCompressedCodec(fns *Functions, threshold int) (TaskPayloadCodec, error) {
	return payload.Compressed(payload.NewCodec(fns), threshold)
}

// CloseCodec 释放编解码器持有的资源（如 zstd 编解码器）
//
// 在所有使用该编解码器的 Runner 和 Client 停止后调用。
func CloseCodec(codec TaskPayloadCodec) error {
	if c, ok := codec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Dependency 在被调用函数内读取已解析的依赖
func Dependency(ctx context.Context, name string) ([]byte, bool) {
	return payload.Dependency(ctx, name)
}

// ReadFile 在被调用函数内读取应用侧文件
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	return runner.ReadFile(ctx, path)
}

// ════════════════════════════════════════════════════════════════════════════
//                              调用
// ════════════════════════════════════════════════════════════════════════════

// Call 远程调用已注册的函数并解码结果
//
// deps 声明函数需要的依赖，Runner 缺少时会回头向 Client 的 AssemblyResolver 请求。
func Call[R any](ctx context.Context, c *Client, opts RunOptions, fn string, args any, deps ...string) (R, error) {
	var zero R
	call, err := payload.NewCall(fn, args, deps...)
	if err != nil {
		return zero, err
	}
	data, err := c.Run(ctx, call, opts)
	if err != nil {
		return zero, err
	}
	v, err := payload.DecodeResult[R](data)
	if err != nil {
		return zero, fmt.Errorf("解码 %s 结果失败: %w", fn, err)
	}
	return v, nil
}
