package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/identity"
	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/mediator"
	"github.com/dep2p/go-offload/internal/payload"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/runner"
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

// ============================================================================
// 测试辅助
// ============================================================================

func testFunctions() *payload.Registry {
	reg := payload.NewRegistry()
	payload.MustRegister(reg, "double", func(_ context.Context, x int) (int, error) {
		return x * 2, nil
	})
	payload.MustRegister(reg, "block", func(ctx context.Context, _ struct{}) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	payload.MustRegister(reg, "fail", func(_ context.Context, msg string) (int, error) {
		return 0, errors.New(msg)
	})
	payload.MustRegister(reg, "greet", func(ctx context.Context, name string) (string, error) {
		prefix, _ := payload.Dependency(ctx, "prefix")
		return string(prefix) + name, nil
	})
	payload.MustRegister(reg, "cat", func(ctx context.Context, path string) (string, error) {
		data, err := runner.ReadFile(ctx, path)
		return string(data), err
	})
	return reg
}

func newTestTransport(t *testing.T) *tls.Transport {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	sec, err := tls.NewTransport(id, config.DefaultSecurityConfig())
	require.NoError(t, err)
	return sec
}

func newTestRunner(t *testing.T, codec interfaces.TaskPayloadCodec, mod func(*config.Config)) *runner.Server {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Transport.ListenAddr = "127.0.0.1:0"
	cfg.Runner.MaxTasks = 2
	cfg.Runner.StatusInterval = config.Duration(100 * time.Millisecond)
	cfg.Runner.ReconnectInterval = config.Duration(100 * time.Millisecond)
	if mod != nil {
		mod(cfg)
	}
	if codec == nil {
		codec = payload.NewCodec(testFunctions())
	}

	srv, err := runner.NewServer(cfg, newTestTransport(t), codec)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func newTestMediator(t *testing.T) *mediator.Server {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Transport.ListenAddr = "127.0.0.1:0"
	med := mediator.NewServer(cfg, newTestTransport(t))
	require.NoError(t, med.Start(context.Background()))
	t.Cleanup(func() { _ = med.Stop(context.Background()) })
	return med
}

func newTestClient(t *testing.T, mod func(*config.Config), opts ...Option) *Client {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Client.LookupTimeout = config.Duration(2 * time.Second)
	cfg.Client.CancelGrace = config.Duration(2 * time.Second)
	if mod != nil {
		mod(cfg)
	}
	c, err := New(cfg, newTestTransport(t), payload.NewCodec(payload.NewRegistry()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func call(t *testing.T, fn string, args any, deps ...string) *payload.Call {
	t.Helper()
	c, err := payload.NewCall(fn, args, deps...)
	require.NoError(t, err)
	return c
}

func timeoutCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ============================================================================
// 测试用例
// ============================================================================

func TestClient_Direct(t *testing.T) {
	srv := newTestRunner(t, nil, nil)
	c := newTestClient(t, nil)

	t.Run("double(21)", func(t *testing.T) {
		data, err := c.Run(timeoutCtx(t), call(t, "double", 21), RunOptions{Endpoint: srv.Addr()})
		require.NoError(t, err)
		v, err := payload.DecodeResult[int](data)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("连接复用", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := c.Run(timeoutCtx(t), call(t, "double", i), RunOptions{Endpoint: srv.Addr()})
			require.NoError(t, err)
		}
		assert.Equal(t, 1, c.pool.Len())
		assert.Equal(t, 1, srv.Sessions())
	})

	t.Log("✅ 直连提交成功")
}

func TestClient_ViaMediator(t *testing.T) {
	med := newTestMediator(t)
	newTestRunner(t, nil, func(cfg *config.Config) {
		cfg.Runner.MediatorAddr = med.Addr()
		cfg.Runner.Label = "gpu"
	})
	assert.Eventually(t, func() bool { return med.Runners().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	c := newTestClient(t, func(cfg *config.Config) {
		cfg.Client.MediatorAddr = med.Addr()
		cfg.Client.MaxTries = 2
	})

	t.Run("按标签查找", func(t *testing.T) {
		data, err := c.Run(timeoutCtx(t), call(t, "double", 21), RunOptions{
			Request: types.RunnerRequest{Label: "gpu"},
		})
		require.NoError(t, err)
		assert.Equal(t, "42", string(data))
	})

	t.Run("没有匹配的 Runner", func(t *testing.T) {
		_, err := c.Run(timeoutCtx(t), call(t, "double", 1), RunOptions{
			Request: types.RunnerRequest{Label: "tpu"},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRunnerNotAvailable)
		assert.Contains(t, err.Error(), "2")
	})

	t.Log("✅ 通过 Mediator 提交成功")
}

func TestClient_NoMediator(t *testing.T) {
	c := newTestClient(t, nil)
	_, err := c.Run(timeoutCtx(t), call(t, "double", 1), RunOptions{})
	assert.ErrorIs(t, err, ErrNoMediator)
}

func TestClient_DialFailure(t *testing.T) {
	c := newTestClient(t, func(cfg *config.Config) {
		cfg.Client.MaxTries = 2
		cfg.Transport.DialTimeout = config.Duration(500 * time.Millisecond)
	})
	// 端口 1 上不会有 Runner
	_, err := c.Run(timeoutCtx(t), call(t, "double", 1), RunOptions{Endpoint: "127.0.0.1:1"})
	assert.ErrorIs(t, err, ErrRunnerNotAvailable)
}

func TestClient_RunnerBusy(t *testing.T) {
	srv := newTestRunner(t, nil, func(cfg *config.Config) {
		cfg.Runner.MaxTasks = 1
		cfg.Runner.MaxQueueLength = 0
	})
	c := newTestClient(t, func(cfg *config.Config) {
		cfg.Client.MaxTries = 3
	})
	opts := RunOptions{Endpoint: srv.Addr()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	blocked := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, call(t, "block", struct{}{}), opts)
		blocked <- err
	}()
	assert.Eventually(t, func() bool { return srv.Status().ActiveTasks == 1 }, 5*time.Second, 10*time.Millisecond)

	t.Run("重试后仍然繁忙", func(t *testing.T) {
		_, err := c.Run(timeoutCtx(t), call(t, "double", 1), opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRunnerBusy)
		assert.True(t, Retryable(err))
		assert.Contains(t, err.Error(), "3")
	})

	t.Run("取消运行中的任务", func(t *testing.T) {
		cancel()
		select {
		case err := <-blocked:
			assert.ErrorIs(t, err, ErrCancelled)
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("取消后没有返回")
		}
	})

	t.Run("容量恢复", func(t *testing.T) {
		assert.Eventually(t, func() bool { return srv.Status().ActiveTasks == 0 }, 5*time.Second, 10*time.Millisecond)
		data, err := c.Run(timeoutCtx(t), call(t, "double", 4), opts)
		require.NoError(t, err)
		assert.Equal(t, "8", string(data))
	})
}

func TestClient_TaskTimeout(t *testing.T) {
	srv := newTestRunner(t, nil, nil)
	c := newTestClient(t, func(cfg *config.Config) {
		cfg.Client.MaxTries = 3
	})

	_, err := c.Run(timeoutCtx(t), call(t, "block", struct{}{}), RunOptions{
		Endpoint: srv.Addr(),
		Timeout:  200 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskTimeout)
	assert.False(t, Retryable(err))
}

func TestClient_TaskErrors(t *testing.T) {
	srv := newTestRunner(t, nil, nil)
	c := newTestClient(t, nil)
	opts := RunOptions{Endpoint: srv.Addr()}

	t.Run("执行失败", func(t *testing.T) {
		_, err := c.Run(timeoutCtx(t), call(t, "fail", "boom"), opts)
		var taskErr *TaskError
		require.ErrorAs(t, err, &taskErr)
		assert.Equal(t, types.CategoryInvocation, taskErr.Category)
		assert.Contains(t, taskErr.Detail, "boom")
		assert.False(t, taskErr.Retryable())
		assert.False(t, Retryable(err))
	})

	t.Run("未知函数", func(t *testing.T) {
		_, err := c.Run(timeoutCtx(t), call(t, "missing", 1), opts)
		var taskErr *TaskError
		require.ErrorAs(t, err, &taskErr)
		assert.Equal(t, types.CategoryDeserialization, taskErr.Category)
	})

	t.Run("无法编码的负载", func(t *testing.T) {
		_, err := c.Run(timeoutCtx(t), "not a call", opts)
		assert.ErrorIs(t, err, payload.ErrUnsupportedPayload)
	})
}

func TestClient_NegotiationFailed(t *testing.T) {
	zstd, err := payload.Compressed(payload.NewCodec(testFunctions()), 0)
	require.NoError(t, err)
	srv := newTestRunner(t, zstd, nil)
	c := newTestClient(t, nil)

	_, err = c.Run(timeoutCtx(t), call(t, "double", 1), RunOptions{Endpoint: srv.Addr()})
	assert.ErrorIs(t, err, ErrNegotiationFailed)
}

func TestClient_Dependencies(t *testing.T) {
	srv := newTestRunner(t, nil, nil)
	var (
		mu    sync.Mutex
		asked []string
	)
	resolver := interfaces.AssemblyResolverFunc(func(_ context.Context, name string) ([]byte, bool, error) {
		mu.Lock()
		asked = append(asked, name)
		mu.Unlock()
		if name == "prefix" {
			return []byte("hello, "), true, nil
		}
		return nil, false, nil
	})
	c := newTestClient(t, nil, WithResolver(resolver))
	opts := RunOptions{Endpoint: srv.Addr()}

	t.Run("依赖由应用提供", func(t *testing.T) {
		data, err := c.Run(timeoutCtx(t), call(t, "greet", "bob", "prefix"), opts)
		require.NoError(t, err)
		v, err := payload.DecodeResult[string](data)
		require.NoError(t, err)
		assert.Equal(t, "hello, bob", v)
		mu.Lock()
		assert.Equal(t, []string{"prefix"}, asked)
		mu.Unlock()
	})

	t.Run("应用也没有的依赖", func(t *testing.T) {
		_, err := c.Run(timeoutCtx(t), call(t, "greet", "bob", "unknown"), opts)
		var taskErr *TaskError
		require.ErrorAs(t, err, &taskErr)
		assert.Contains(t, taskErr.Detail, "unknown")
	})
}

type mapFiles map[string]string

func (m mapFiles) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return []byte(data), nil
}

func TestClient_FileProvider(t *testing.T) {
	srv := newTestRunner(t, nil, nil)
	opts := RunOptions{Endpoint: srv.Addr()}

	t.Run("读取应用侧文件", func(t *testing.T) {
		c := newTestClient(t, nil, WithFileProvider(mapFiles{"/etc/motd": "hi"}))
		data, err := c.Run(timeoutCtx(t), call(t, "cat", "/etc/motd"), opts)
		require.NoError(t, err)
		assert.Equal(t, `"hi"`, string(data))
	})

	t.Run("未开启文件访问", func(t *testing.T) {
		c := newTestClient(t, nil)
		_, err := c.Run(timeoutCtx(t), call(t, "cat", "/etc/motd"), opts)
		var taskErr *TaskError
		require.ErrorAs(t, err, &taskErr)
		assert.Equal(t, types.CategoryInvocation, taskErr.Category)
	})
}

func TestClient_Close(t *testing.T) {
	srv := newTestRunner(t, nil, nil)
	c := newTestClient(t, nil)

	_, err := c.Run(timeoutCtx(t), call(t, "double", 1), RunOptions{Endpoint: srv.Addr()})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Run(timeoutCtx(t), call(t, "double", 1), RunOptions{Endpoint: srv.Addr()})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Eventually(t, func() bool { return srv.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestClient_PoolEvictionWaitsForTasks(t *testing.T) {
	release := make(chan struct{})
	reg := testFunctions()
	payload.MustRegister(reg, "hold", func(ctx context.Context, _ struct{}) (int, error) {
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	srvA := newTestRunner(t, payload.NewCodec(reg), nil)
	srvB := newTestRunner(t, nil, nil)
	c := newTestClient(t, func(cfg *config.Config) {
		cfg.Client.PoolSize = 1
	})

	held := make(chan error, 1)
	var result []byte
	ctx, hold := timeoutCtx(t), call(t, "hold", struct{}{})
	go func() {
		data, err := c.Run(ctx, hold, RunOptions{Endpoint: srvA.Addr()})
		result = data
		held <- err
	}()

	var rA *remote
	require.Eventually(t, func() bool {
		r, ok := c.pool.cache.Peek(srvA.Addr())
		if !ok || r.pending() == 0 {
			return false
		}
		rA = r
		return true
	}, 5*time.Second, 10*time.Millisecond)

	// 另一个 endpoint 挤掉 A 的连接
	data, err := c.Run(timeoutCtx(t), call(t, "double", 2), RunOptions{Endpoint: srvB.Addr()})
	require.NoError(t, err)
	assert.Equal(t, "4", string(data))
	_, ok := c.pool.cache.Peek(srvA.Addr())
	assert.False(t, ok)
	assert.True(t, rA.conn.IsConnected())

	close(release)
	select {
	case err := <-held:
		require.NoError(t, err)
		v, err := payload.DecodeResult[int](result)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	case <-time.After(5 * time.Second):
		t.Fatal("被淘汰连接上的任务没有返回")
	}

	assert.Eventually(t, func() bool { return !rA.conn.IsConnected() }, 5*time.Second, 10*time.Millisecond)
}

func TestRemote_ProtocolErrorFailsWaiters(t *testing.T) {
	r := &remote{endpoint: "test", waiters: make(map[types.TaskID]chan message.Message)}
	w1 := make(chan message.Message, 1)
	w2 := make(chan message.Message, 1)
	r.waiters["t1"] = w1
	r.waiters["t2"] = w2

	require.NoError(t, r.handleTask(context.Background(), &message.ProtocolError{Detail: "message: bad message body"}))

	for _, wait := range []chan message.Message{w1, w2} {
		select {
		case msg := <-wait:
			_, err := terminalResult(msg)
			assert.ErrorIs(t, err, ErrProtocol)
			assert.Contains(t, err.Error(), "bad message body")
			assert.False(t, Retryable(err))
		default:
			t.Fatal("等待者没有收到协议错误")
		}
	}
}

func TestNew_NilCodec(t *testing.T) {
	_, err := New(config.NewConfig(), newTestTransport(t), nil)
	assert.ErrorIs(t, err, ErrNilCodec)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("wrapped: %w", ErrRunnerBusy), true},
		{ErrRunnerNotAvailable, true},
		{ErrLookupTimeout, true},
		{ErrTaskTimeout, false},
		{ErrCancelled, false},
		{ErrConnectionLost, false},
		{&TaskError{Category: types.CategoryInvocation}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "busy", attemptResult(ErrRunnerBusy))
	assert.Equal(t, "task-error", attemptResult(&TaskError{}))
	assert.Equal(t, "completed", attemptResult(nil))
}
