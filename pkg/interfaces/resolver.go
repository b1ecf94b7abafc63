package interfaces

import "context"

// AssemblyResolver 依赖解析器
//
// Runner 解码负载缺少依赖时，通过 assembly 通道向应用请求；
// 应用侧用 AssemblyResolver 应答。
type AssemblyResolver interface {
	// Resolve 返回依赖内容；found 为 false 表示应用也不知道该依赖
	Resolve(ctx context.Context, name string) (data []byte, found bool, err error)
}

// AssemblyResolverFunc 函数适配器
type AssemblyResolverFunc func(ctx context.Context, name string) ([]byte, bool, error)

// Resolve 实现 AssemblyResolver 接口
func (f AssemblyResolverFunc) Resolve(ctx context.Context, name string) ([]byte, bool, error) {
	return f(ctx, name)
}

// FileProvider 应用侧文件代理
//
// Runner 上的任务通过 file 通道读取应用侧文件。
type FileProvider interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}
