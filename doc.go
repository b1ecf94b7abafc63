// Package offload 把任务卸载到远端 Runner 执行
//
// 三个角色：
//
//   - Runner: 接受任务、排队、执行，并可向 Mediator 注册
//   - Mediator: 维护 Runner 目录，按条件为应用选出最空闲的 Runner
//   - Client: 应用侧，定位 Runner、提交任务、等待唯一的终态
//
// 所有连接都是 TLS 1.3 双向认证的单条 TCP 连接，上面复用多个逻辑通道。
//
// # 快速开始
//
//	fns := offload.NewFunctions()
//	offload.MustRegister(fns, "double", func(_ context.Context, x int) (int, error) {
//	    return x * 2, nil
//	})
//
//	runner, _ := offload.NewRunner(offload.NewCodec(fns), offload.WithListenAddr(":7400"))
//	_ = runner.Start(ctx)
//	defer runner.Stop(ctx)
//
//	client, _ := offload.NewClient(offload.NewCodec(offload.NewFunctions()))
//	_ = client.Start(ctx)
//	defer client.Stop(ctx)
//
//	v, err := offload.Call[int](ctx, client, offload.RunOptions{Endpoint: runner.Endpoint()}, "double", 21)
//
// # 结果与错误
//
//	v, err := offload.Call[int](ctx, client, opts, "double", 21)
//	switch {
//	case errors.Is(err, offload.ErrTaskTimeout):
//	case errors.Is(err, offload.ErrCancelled):
//	case errors.As(err, &taskErr):
//	}
//
// RunnerBusy / RunnerNotAvailable / 查找超时在客户端内部按 MaxTries 重试，
// 任务超时与取消不会重试。
package offload
