package payload

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-offload/pkg/interfaces"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, Register(reg, "double", func(_ context.Context, x int) (int, error) {
		return x * 2, nil
	}))
	require.NoError(t, Register(reg, "greet", func(ctx context.Context, name string) (string, error) {
		prefix, _ := Dependency(ctx, "prefix")
		return string(prefix) + name, nil
	}))
	require.NoError(t, Register(reg, "fail", func(context.Context, struct{}) (int, error) {
		return 0, errors.New("boom")
	}))
	return reg
}

func TestCodec_Invoke(t *testing.T) {
	codec := NewCodec(newTestRegistry(t))

	call, err := NewCall("double", 21)
	require.NoError(t, err)
	data, err := codec.Encode(call)
	require.NoError(t, err)

	inv, err := codec.Decode(data, nil)
	require.NoError(t, err)
	out, err := inv.Invoke(context.Background())
	require.NoError(t, err)

	result, err := DecodeResult[int](out)
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	t.Log("✅ double(21) = 42")
}

func TestCodec_Errors(t *testing.T) {
	reg := newTestRegistry(t)
	codec := NewCodec(reg)

	t.Run("重复注册", func(t *testing.T) {
		err := Register(reg, "double", func(context.Context, int) (int, error) { return 0, nil })
		assert.ErrorIs(t, err, ErrDuplicateFunction)
	})

	t.Run("未注册函数", func(t *testing.T) {
		data, err := codec.Encode(Call{Func: "nope"})
		require.NoError(t, err)
		_, err = codec.Decode(data, nil)
		assert.ErrorIs(t, err, ErrUnknownFunction)
	})

	t.Run("非法负载", func(t *testing.T) {
		_, err := codec.Encode(42)
		assert.ErrorIs(t, err, ErrUnsupportedPayload)

		_, err = codec.Decode([]byte("{"), nil)
		assert.ErrorIs(t, err, ErrInvalidCall)
	})

	t.Run("函数返回错误", func(t *testing.T) {
		data, err := codec.Encode(&Call{Func: "fail"})
		require.NoError(t, err)
		inv, err := codec.Decode(data, nil)
		require.NoError(t, err)
		_, err = inv.Invoke(context.Background())
		assert.EqualError(t, err, "boom")
	})

	t.Run("参数类型不匹配", func(t *testing.T) {
		call, err := NewCall("double", "not-a-number")
		require.NoError(t, err)
		data, _ := codec.Encode(call)
		inv, err := codec.Decode(data, nil)
		require.NoError(t, err)
		_, err = inv.Invoke(context.Background())
		assert.Error(t, err)
	})
}

func TestCodec_Dependencies(t *testing.T) {
	codec := NewCodec(newTestRegistry(t))

	call, err := NewCall("greet", "world", "prefix")
	require.NoError(t, err)
	data, err := codec.Encode(call)
	require.NoError(t, err)

	_, err = codec.Decode(data, interfaces.MapEnv{})
	var missing *interfaces.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "prefix", missing.Name)
	assert.ErrorIs(t, err, interfaces.ErrMissingDependency)

	inv, err := codec.Decode(data, interfaces.MapEnv{"prefix": []byte("hello ")})
	require.NoError(t, err)
	out, err := inv.Invoke(context.Background())
	require.NoError(t, err)

	greeting, err := DecodeResult[string](out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", greeting)
}

func TestCompressed(t *testing.T) {
	codec, err := Compressed(NewCodec(newTestRegistry(t)), 64)
	require.NoError(t, err)
	assert.Equal(t, CodecName+"+zstd", codec.Name())

	t.Run("小负载不压缩", func(t *testing.T) {
		call, _ := NewCall("double", 1)
		data, err := codec.Encode(call)
		require.NoError(t, err)
		assert.Equal(t, flagPlain, data[0])

		inv, err := codec.Decode(data, nil)
		require.NoError(t, err)
		out, err := inv.Invoke(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), out)
	})

	t.Run("大负载压缩", func(t *testing.T) {
		long := strings.Repeat("abc", 1000)
		call, _ := NewCall("greet", long, "prefix")
		data, err := codec.Encode(call)
		require.NoError(t, err)
		assert.Equal(t, flagZstd, data[0])
		assert.Less(t, len(data), len(long))

		inv, err := codec.Decode(data, interfaces.MapEnv{"prefix": nil})
		require.NoError(t, err)
		out, err := inv.Invoke(context.Background())
		require.NoError(t, err)
		assert.True(t, bytes.Contains(out, []byte(long)))
	})

	t.Run("损坏数据", func(t *testing.T) {
		_, err := codec.Decode([]byte{flagZstd, 1, 2, 3}, nil)
		assert.ErrorIs(t, err, ErrCorrupted)

		_, err = codec.Decode([]byte{9}, nil)
		assert.ErrorIs(t, err, ErrCorrupted)

		_, err = codec.Decode(nil, nil)
		assert.ErrorIs(t, err, ErrCorrupted)
	})
}

func TestCompressed_DecodeLimit(t *testing.T) {
	sender, err := newCompressed(NewCodec(newTestRegistry(t)), 64, MaxDecompressedSize)
	require.NoError(t, err)
	limited, err := newCompressed(NewCodec(newTestRegistry(t)), 64, 4096)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, sender.Close())
		assert.NoError(t, limited.Close())
	})

	// 高压缩比：几百字节解压成 64KB
	call, _ := NewCall("greet", strings.Repeat("a", 64<<10), "prefix")
	data, err := sender.Encode(call)
	require.NoError(t, err)
	require.Equal(t, flagZstd, data[0])
	assert.Less(t, len(data), 4096)

	// 同一份数据在上限内可以解码，超过上限报损坏
	_, err = limited.Decode(data, interfaces.MapEnv{"prefix": nil})
	assert.ErrorIs(t, err, ErrCorrupted)

	_, err = sender.Decode(data, interfaces.MapEnv{"prefix": nil})
	assert.NoError(t, err)
}
