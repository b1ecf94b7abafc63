package offload

import (
	"context"

	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/runner"
)

// Runner 任务执行端
type Runner struct {
	lifecycle
	server  *runner.Server
	metrics *metrics.Metrics
}

// NewRunner 创建 Runner，codec 必须能解码应用提交的负载
func NewRunner(codec TaskPayloadCodec, opts ...Option) (*Runner, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	r := &Runner{lifecycle: lifecycle{name: "runner"}}
	app, err := buildFxApp(o, fxRunner(codec), &r.server, &r.metrics)
	if err != nil {
		return nil, err
	}
	r.app = app
	return r, nil
}

// Start 开始监听，配置了 Mediator 时同时注册
func (r *Runner) Start(ctx context.Context) error {
	return r.start(ctx)
}

// Stop 拒绝新任务，断开全部连接并等待任务结束
func (r *Runner) Stop(ctx context.Context) error {
	return r.stop(ctx)
}

// ID 返回 Runner ID（证书公钥指纹）
func (r *Runner) ID() string {
	return r.server.ID()
}

// Addr 返回实际监听地址
func (r *Runner) Addr() string {
	return r.server.Addr()
}

// Endpoint 返回应用直连地址
func (r *Runner) Endpoint() string {
	return r.server.Endpoint()
}

// State 返回当前状态
func (r *Runner) State() RunnerState {
	return r.server.State()
}

// Status 返回状态快照
func (r *Runner) Status() RunnerStatus {
	return r.server.Status()
}

// Pause 暂停接收新任务，已接收的任务继续执行
func (r *Runner) Pause() {
	r.server.Pause()
}

// Resume 恢复接收任务
func (r *Runner) Resume() {
	r.server.Resume()
}

// Metrics 返回指标集合
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}
