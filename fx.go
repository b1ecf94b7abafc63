package offload

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-offload/internal/client"
	"github.com/dep2p/go-offload/internal/core/identity"
	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/runner"
	"github.com/dep2p/go-offload/internal/util/logger"
)

var fxLog = logger.Logger("offload/fx")

// buildFxApp 构建 Fx 应用
//
// 公共部分：配置 → 身份 → TLS → 指标；role 为 runner / mediator / client 模块，
// populate 取出角色对象。
func buildFxApp(o *options, role fx.Option, populate ...any) (*fx.App, error) {
	modules := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Supply(o.config),
		identity.Module(),
		tls.Module(),
		metrics.Module,
		role,
	}
	if o.resolver != nil {
		r := o.resolver
		modules = append(modules, fx.Provide(func() AssemblyResolver { return r }))
	}
	if o.files != nil {
		f := o.files
		modules = append(modules, fx.Provide(func() FileProvider { return f }))
	}
	modules = append(modules, o.fxOptions...)
	modules = append(modules, fx.Populate(populate...))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return app, nil
}

// supplyCodec 以接口类型注入编解码器
func supplyCodec(codec TaskPayloadCodec) fx.Option {
	return fx.Provide(func() TaskPayloadCodec { return codec })
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// lifecycle 包装 fx.App 的启动与停止，只允许启动一次
type lifecycle struct {
	name string
	app  *fx.App

	mu      sync.Mutex
	started bool
	stopped bool
}

func (l *lifecycle) start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.stopped:
		return ErrStopped
	case l.started:
		return ErrAlreadyStarted
	}
	if err := l.app.Start(ctx); err != nil {
		fxLog.Error("启动失败", "role", l.name, "err", err)
		return fmt.Errorf("start %s: %w", l.name, err)
	}
	l.started = true
	fxLog.Debug("已启动", "role", l.name)
	return nil
}

func (l *lifecycle) stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if l.stopped {
		return nil
	}
	l.stopped = true
	if err := l.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop %s: %w", l.name, err)
	}
	fxLog.Debug("已停止", "role", l.name)
	return nil
}

func (l *lifecycle) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started && !l.stopped
}

func fxRunner(codec TaskPayloadCodec) fx.Option {
	return fx.Options(supplyCodec(codec), runner.Module())
}

func fxClient(codec TaskPayloadCodec) fx.Option {
	return fx.Options(supplyCodec(codec), client.Module())
}
