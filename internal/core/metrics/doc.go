// Package metrics 提供 Prometheus 监控指标
//
// 每个进程一个 Metrics（独立的 prometheus.Registry），按组件分组：
//
//   - 连接: 帧数 / 字节数（按方向）、活跃连接、按原因统计的断开次数、吞吐速率
//   - Runner: 按终态统计的任务数、执行中任务数、排队长度
//   - Mediator: 已注册 Runner 数、按结果统计的查找次数
//   - 客户端: 按结果统计的提交尝试次数
//
// 所有记录方法都是 nil 安全的：组件拿到 nil *Metrics 时不记录任何内容。
//
// # 暴露指标
//
//	m := metrics.New()
//	go m.Serve(ctx, "127.0.0.1:9464")   // GET /metrics
//
// # Fx 模块
//
//	fx.New(
//	    fx.Supply(cfg),
//	    metrics.Module,
//	)
package metrics
