package payload

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/pkg/interfaces"
)

const (
	flagPlain byte = 0
	flagZstd  byte = 1
)

// DefaultCompressThreshold 默认压缩阈值
const DefaultCompressThreshold = 1024

// MaxDecompressedSize 解压后的上限，与消息体上限一致
const MaxDecompressedSize = message.MaxBodySize

// compressed zstd 包装
type compressed struct {
	inner     interfaces.TaskPayloadCodec
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

// Compressed 包装编解码器，编码结果超过 threshold 字节时用 zstd 压缩
//
// 输出首字节为标志位：0 原样，1 zstd。名称追加 "+zstd"，两端必须同样包装。
// 解压结果超过 MaxDecompressedSize 视为损坏。返回值实现 io.Closer。
func Compressed(inner interfaces.TaskPayloadCodec, threshold int) (interfaces.TaskPayloadCodec, error) {
	c, err := newCompressed(inner, threshold, MaxDecompressedSize)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newCompressed(inner interfaces.TaskPayloadCodec, threshold int, maxSize uint64) (*compressed, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("创建 zstd 编码器失败: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSize))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("创建 zstd 解码器失败: %w", err)
	}
	if threshold < 0 {
		threshold = DefaultCompressThreshold
	}
	return &compressed{inner: inner, threshold: threshold, enc: enc, dec: dec}, nil
}

func (c *compressed) Name() string {
	return c.inner.Name() + "+zstd"
}

func (c *compressed) Encode(payload any) ([]byte, error) {
	data, err := c.inner.Encode(payload)
	if err != nil {
		return nil, err
	}
	if len(data) <= c.threshold {
		return append([]byte{flagPlain}, data...), nil
	}
	out := make([]byte, 1, len(data)/2+1)
	out[0] = flagZstd
	return c.enc.EncodeAll(data, out), nil
}

func (c *compressed) Decode(data []byte, env interfaces.Env) (interfaces.Invocable, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrCorrupted)
	}
	switch data[0] {
	case flagPlain:
		return c.inner.Decode(data[1:], env)
	case flagZstd:
		raw, err := c.dec.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
		}
		return c.inner.Decode(raw, env)
	default:
		return nil, fmt.Errorf("%w: flag %d", ErrCorrupted, data[0])
	}
}

// Close 释放 zstd 编解码器，之后不可再使用
func (c *compressed) Close() error {
	err := c.enc.Close()
	c.dec.Close()
	return err
}
