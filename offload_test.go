package offload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/identity"
	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/mediator"
	"github.com/dep2p/go-offload/internal/runner"
)

func doubleFunctions() *Functions {
	fns := NewFunctions()
	MustRegister(fns, "double", func(_ context.Context, x int) (int, error) {
		return x * 2, nil
	})
	MustRegister(fns, "greet", func(ctx context.Context, name string) (string, error) {
		prefix, _ := Dependency(ctx, "prefix")
		return string(prefix) + name, nil
	})
	return fns
}

func startRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithListenAddr("127.0.0.1:0")}, opts...)
	r, err := NewRunner(NewCodec(doubleFunctions()), opts...)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop(context.Background()) })
	return r
}

func startClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(NewCodec(NewFunctions()), opts...)
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCall_Direct(t *testing.T) {
	r := startRunner(t)
	c := startClient(t)

	v, err := Call[int](testCtx(t), c, RunOptions{Endpoint: r.Endpoint()}, "double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, RunnerReady, r.State())
	assert.NotNil(t, r.Metrics())

	t.Log("✅ double(21) = 42")
}

func TestCall_ViaMediator(t *testing.T) {
	m, err := NewMediator(WithListenAddr("127.0.0.1:0"))
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	r := startRunner(t, WithMediator(m.Addr()), WithLabel("cpu"), WithTags("fast"))
	assert.Eventually(t, func() bool { return len(m.Runners()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, r.ID(), string(m.Runners()[0].ID))

	resolver := AssemblyResolverFunc(func(_ context.Context, name string) ([]byte, bool, error) {
		return []byte("hi "), name == "prefix", nil
	})
	c := startClient(t, WithMediator(m.Addr()), WithResolver(resolver))

	v, err := Call[string](testCtx(t), c, RunOptions{
		Request: RunnerRequest{Label: "cpu", Tags: []string{"fast", "gpu"}},
	}, "greet", "ann", "prefix")
	require.NoError(t, err)
	assert.Equal(t, "hi ann", v)

	t.Log("✅ 通过 Mediator 调用成功")
}

func TestLifecycle(t *testing.T) {
	t.Run("未启动", func(t *testing.T) {
		c, err := NewClient(NewCodec(NewFunctions()))
		require.NoError(t, err)
		_, err = c.Run(context.Background(), nil, RunOptions{})
		assert.ErrorIs(t, err, ErrNotStarted)
		assert.ErrorIs(t, c.Stop(context.Background()), ErrNotStarted)
	})

	t.Run("重复启动", func(t *testing.T) {
		r := startRunner(t)
		assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyStarted)
		require.NoError(t, r.Stop(context.Background()))
		require.NoError(t, r.Stop(context.Background()))
		assert.ErrorIs(t, r.Start(context.Background()), ErrStopped)
	})

	t.Run("缺少编解码器", func(t *testing.T) {
		_, err := NewRunner(nil)
		assert.ErrorIs(t, err, ErrNilCodec)
		_, err = NewClient(nil)
		assert.ErrorIs(t, err, ErrNilCodec)
	})

	t.Run("无效配置", func(t *testing.T) {
		_, err := NewRunner(NewCodec(NewFunctions()), WithCapacity(-1, 0))
		assert.Error(t, err)
		_, err = NewClient(NewCodec(NewFunctions()), WithPinnedPeers())
		assert.Error(t, err)
	})
}

func TestOptions(t *testing.T) {
	o, err := newOptions([]Option{
		WithListenAddr("127.0.0.1:7400"),
		WithMediator("10.0.0.1:7401"),
		WithCapacity(4, -1),
		WithRetry(5, time.Second),
		WithPinnedPeers("abc"),
		WithMetrics("127.0.0.1:9999"),
	})
	require.NoError(t, err)
	cfg := o.config
	assert.Equal(t, "10.0.0.1:7401", cfg.Runner.MediatorAddr)
	assert.Equal(t, "10.0.0.1:7401", cfg.Client.MediatorAddr)
	assert.Equal(t, 4, cfg.Runner.MaxTasks)
	assert.Equal(t, -1, cfg.Runner.MaxQueueLength)
	assert.Equal(t, 5, cfg.Client.MaxTries)
	assert.Equal(t, time.Second, cfg.Client.RetryDelay.Duration())
	assert.Equal(t, config.PolicyPinned, cfg.Security.Policy)
	assert.True(t, cfg.Metrics.Enabled)
}

// TestModules_Fxtest 直接用内部模块组装 Runner 与 Mediator
func TestModules_Fxtest(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Transport.ListenAddr = "127.0.0.1:0"

	var med *mediator.Server
	medApp := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg),
		identity.Module(),
		tls.Module(),
		metrics.Module,
		mediator.Module(),
		fx.Populate(&med),
	)
	medApp.RequireStart()
	defer medApp.RequireStop()

	rcfg := config.NewConfig()
	rcfg.Transport.ListenAddr = "127.0.0.1:0"
	rcfg.Runner.MediatorAddr = med.Addr()

	var srv *runner.Server
	runnerApp := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(rcfg),
		identity.Module(),
		tls.Module(),
		metrics.Module,
		supplyCodec(NewCodec(doubleFunctions())),
		runner.Module(),
		fx.Populate(&srv),
	)
	runnerApp.RequireStart()
	defer runnerApp.RequireStop()

	assert.Eventually(t, func() bool { return med.Runners().Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, RunnerReady, srv.State())
}
