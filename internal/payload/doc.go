// Package payload 提供一个可用的 TaskPayloadCodec 实现
//
// 任务不是序列化的闭包，而是“预先注册的函数名 + JSON 参数”：
//
//	reg := payload.NewRegistry()
//	payload.Register(reg, "double", func(ctx context.Context, x int) (int, error) {
//	    return x * 2, nil
//	})
//	codec := payload.NewCodec(reg)
//
// 应用和 Runner 必须注册同名函数。Call 可以声明依赖名，
// Runner 解码时缺少依赖会返回 *interfaces.MissingDependencyError，
// 框架向应用解析后重试；函数内用 Dependency(ctx, name) 读取依赖内容。
//
// Compressed 在任意编解码器外包一层 zstd 压缩。
package payload
