package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

// ============================================================================
// 测试辅助
// ============================================================================

type invokeFunc func(ctx context.Context) ([]byte, error)

func (f invokeFunc) Invoke(ctx context.Context) ([]byte, error) { return f(ctx) }

type fakeCodec struct {
	decode func(data []byte, env interfaces.Env) (interfaces.Invocable, error)
}

func (*fakeCodec) Name() string                 { return "fake" }
func (*fakeCodec) Encode(p any) ([]byte, error) { return p.([]byte), nil }
func (c *fakeCodec) Decode(data []byte, env interfaces.Env) (interfaces.Invocable, error) {
	return c.decode(data, env)
}

func codecFor(f invokeFunc) *fakeCodec {
	return &fakeCodec{decode: func([]byte, interfaces.Env) (interfaces.Invocable, error) { return f, nil }}
}

type sink chan message.Message

func (s sink) send(msg message.Message) error {
	s <- msg
	return nil
}

func (s sink) next(t *testing.T) message.Message {
	t.Helper()
	select {
	case msg := <-s:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("没有收到终态消息")
		return nil
	}
}

func (s sink) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case msg := <-s:
		t.Fatalf("多余的消息: %s", msg.Tag())
	case <-time.After(d):
	}
}

func newWorker(codec interfaces.TaskPayloadCodec, timeout time.Duration, out sink, mod func(*WorkerConfig)) *TaskWorker {
	cfg := WorkerConfig{
		Codec:               codec,
		MaxDependencyRounds: 4,
		DependencyTimeout:   time.Second,
		Send:                out.send,
	}
	if mod != nil {
		mod(&cfg)
	}
	req := &taskmsg.Request{TaskID: types.NewTaskID(), Payload: []byte("p"), Timeout: timeout}
	return NewTaskWorker(context.Background(), req, cfg)
}

func waitDone(t *testing.T, w *TaskWorker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("执行 goroutine 未退出")
	}
}

// ============================================================================
// 终态
// ============================================================================

func TestTaskWorker_Completed(t *testing.T) {
	out := make(sink, 4)
	w := newWorker(codecFor(func(context.Context) ([]byte, error) {
		return []byte("42"), nil
	}), 0, out, nil)

	w.Start()
	msg := out.next(t)
	resp, ok := msg.(*taskmsg.Response)
	require.True(t, ok)
	assert.Equal(t, w.ID(), resp.TaskID)
	assert.Equal(t, []byte("42"), resp.Result)

	waitDone(t, w)
	assert.Equal(t, StateCompleted, w.State())
	out.none(t, 20*time.Millisecond)
}

// 超时先到：只发送一条 Timeout，执行迟到的结果被丢弃
func TestTaskWorker_TimeoutExclusive(t *testing.T) {
	clk := clock.NewMock()
	out := make(sink, 4)
	release := make(chan struct{})

	w := newWorker(codecFor(func(context.Context) ([]byte, error) {
		// 忽略取消，继续“忙碌” 2s
		<-release
		return []byte("late"), nil
	}), 500*time.Millisecond, out, func(c *WorkerConfig) { c.Clock = clk })

	w.Start()
	clk.Add(499 * time.Millisecond)
	out.none(t, 20*time.Millisecond)

	clk.Add(time.Millisecond)
	msg := out.next(t)
	_, ok := msg.(*taskmsg.Timeout)
	require.True(t, ok, "应当收到 Timeout，实际 %s", msg.Tag())
	assert.Equal(t, StateTimedOut, w.State())

	// 执行上下文已取消
	assert.Error(t, w.Context().Err())

	clk.Add(1500 * time.Millisecond)
	close(release)
	waitDone(t, w)
	out.none(t, 50*time.Millisecond)
	assert.Equal(t, StateTimedOut, w.State())

	t.Log("✅ 超时后不会再发送 Completed")
}

func TestTaskWorker_Cancel(t *testing.T) {
	t.Run("执行中取消", func(t *testing.T) {
		out := make(sink, 4)
		started := make(chan struct{})
		w := newWorker(codecFor(func(ctx context.Context) ([]byte, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}), 0, out, nil)

		w.Start()
		<-started
		w.Cancel()

		_, ok := out.next(t).(*taskmsg.Cancelled)
		assert.True(t, ok)
		waitDone(t, w)
		assert.Equal(t, StateCancelled, w.State())
	})

	t.Run("负载忽略取消仍报告 Cancelled", func(t *testing.T) {
		out := make(sink, 4)
		started := make(chan struct{})
		proceed := make(chan struct{})
		w := newWorker(codecFor(func(context.Context) ([]byte, error) {
			close(started)
			<-proceed
			return []byte("done anyway"), nil
		}), 0, out, nil)

		w.Start()
		<-started
		w.Cancel()
		close(proceed)

		_, ok := out.next(t).(*taskmsg.Cancelled)
		assert.True(t, ok)
		out.none(t, 20*time.Millisecond)
	})

	t.Run("开始前取消", func(t *testing.T) {
		out := make(sink, 4)
		invoked := false
		w := newWorker(codecFor(func(context.Context) ([]byte, error) {
			invoked = true
			return nil, nil
		}), 0, out, nil)

		w.Cancel()
		_, ok := out.next(t).(*taskmsg.Cancelled)
		assert.True(t, ok)

		w.Start()
		waitDone(t, w)
		assert.False(t, invoked)
		out.none(t, 20*time.Millisecond)
	})

	t.Run("重复取消", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(codecFor(func(ctx context.Context) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}), 0, out, nil)
		w.Start()
		w.Cancel()
		w.Cancel()
		out.next(t)
		waitDone(t, w)
		out.none(t, 20*time.Millisecond)
	})
}

// ============================================================================
// 错误类别
// ============================================================================

func TestTaskWorker_ErrorCategories(t *testing.T) {
	t.Run("解码失败", func(t *testing.T) {
		out := make(sink, 4)
		codec := &fakeCodec{decode: func([]byte, interfaces.Env) (interfaces.Invocable, error) {
			return nil, errors.New("bad payload")
		}}
		w := newWorker(codec, 0, out, nil)
		w.Start()

		e, ok := out.next(t).(*taskmsg.Error)
		require.True(t, ok)
		assert.Equal(t, types.CategoryDeserialization, e.Category)
		assert.Contains(t, e.Detail, "bad payload")
	})

	t.Run("解码 panic", func(t *testing.T) {
		out := make(sink, 4)
		codec := &fakeCodec{decode: func([]byte, interfaces.Env) (interfaces.Invocable, error) {
			panic("decoder exploded")
		}}
		w := newWorker(codec, 0, out, nil)
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryDeserialization, e.Category)
	})

	t.Run("执行失败", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(codecFor(func(context.Context) ([]byte, error) {
			return nil, errors.New("user code failed")
		}), 0, out, nil)
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryInvocation, e.Category)
		assert.Equal(t, "user code failed", e.Detail)
		waitDone(t, w)
		assert.Equal(t, StateErrored, w.State())
	})

	t.Run("执行 panic", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(codecFor(func(context.Context) ([]byte, error) {
			panic("boom")
		}), 0, out, nil)
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryInvocation, e.Category)
		assert.Contains(t, e.Detail, "boom")
	})

	t.Run("缺少编解码器", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(nil, 0, out, nil)
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryGeneral, e.Category)
	})
}

// ============================================================================
// 依赖解析
// ============================================================================

// depCodec 需要 deps 中全部依赖才能解码
func depCodec(deps ...string) *fakeCodec {
	return &fakeCodec{decode: func(_ []byte, env interfaces.Env) (interfaces.Invocable, error) {
		var joined []byte
		for _, name := range deps {
			data, ok := env.Dependency(name)
			if !ok {
				return nil, &interfaces.MissingDependencyError{Name: name}
			}
			joined = append(joined, data...)
		}
		return invokeFunc(func(context.Context) ([]byte, error) { return joined, nil }), nil
	}}
}

func TestTaskWorker_Dependencies(t *testing.T) {
	known := map[string][]byte{"a": []byte("A"), "b": []byte("B")}
	resolver := interfaces.AssemblyResolverFunc(func(_ context.Context, name string) ([]byte, bool, error) {
		data, ok := known[name]
		return data, ok, nil
	})

	t.Run("逐个解析后成功", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(depCodec("a", "b"), 0, out, func(c *WorkerConfig) { c.Resolver = resolver })
		w.Start()

		resp := out.next(t).(*taskmsg.Response)
		assert.Equal(t, []byte("AB"), resp.Result)
	})

	t.Run("应用不认识依赖", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(depCodec("missing"), 0, out, func(c *WorkerConfig) { c.Resolver = resolver })
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryDeserialization, e.Category)
		assert.Contains(t, e.Detail, "missing")
	})

	t.Run("轮数超限", func(t *testing.T) {
		out := make(sink, 4)
		w := newWorker(depCodec("a", "b"), 0, out, func(c *WorkerConfig) {
			c.Resolver = resolver
			c.MaxDependencyRounds = 1
		})
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryDeserialization, e.Category)
		assert.Contains(t, e.Detail, ErrTooManyDependencyRounds.Error())
	})

	t.Run("解析器出错", func(t *testing.T) {
		out := make(sink, 4)
		failing := interfaces.AssemblyResolverFunc(func(context.Context, string) ([]byte, bool, error) {
			return nil, false, errors.New("link down")
		})
		w := newWorker(depCodec("a"), 0, out, func(c *WorkerConfig) { c.Resolver = failing })
		w.Start()

		e := out.next(t).(*taskmsg.Error)
		assert.Equal(t, types.CategoryGeneral, e.Category)
	})
}

func TestTaskWorker_Close(t *testing.T) {
	out := make(sink, 4)
	w := newWorker(codecFor(func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 0, out, nil)
	w.Start()

	closed := make(chan struct{})
	go func() {
		w.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close 未返回")
	}

	t.Run("未开始的任务", func(t *testing.T) {
		w := newWorker(codecFor(func(context.Context) ([]byte, error) { return nil, nil }), 0, out, nil)
		w.Close()
		waitDone(t, w)
	})
}
