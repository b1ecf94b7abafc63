package frame

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFrame_RoundTrip 任意 (type, channelId, payload) 编码后解码保持不变
func TestFrame_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		payload := make([]byte, rng.Intn(DefaultMaxFrameSize+1))
		rng.Read(payload)
		f := Frame{
			Type:      Type(rng.Intn(256)),
			ChannelID: uint16(rng.Intn(1 << 16)),
			Payload:   payload,
		}

		b := NewBuffer(DefaultMaxFrameSize)
		_, _ = b.Write(Append(nil, f))
		got, ok, err := b.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, f.Type, got.Type)
		assert.Equal(t, f.ChannelID, got.ChannelID)
		assert.True(t, bytes.Equal(f.Payload, got.Payload))
		assert.Equal(t, 0, b.Buffered())
	}
}

func TestFrame_WireLayout(t *testing.T) {
	data := Append(nil, NewData(0x0102, []byte("hi")))
	assert.Equal(t, []byte{0x04, 0x01, 0x02, 0x00, 0x00, 0x00, 0x02, 'h', 'i'}, data)
}

// TestBuffer_Partial 字节不足时不移动读位置
func TestBuffer_Partial(t *testing.T) {
	data := Append(nil, NewData(7, []byte("hello world")))
	b := NewBuffer(0)

	for i := 0; i < len(data)-1; i++ {
		_, _ = b.Write(data[i : i+1])
		_, ok, err := b.Next()
		require.NoError(t, err)
		require.False(t, ok)
		assert.Equal(t, i+1, b.Buffered())
	}

	_, _ = b.Write(data[len(data)-1:])
	f, ok, err := b.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello world", string(f.Payload))
}

func TestBuffer_MultipleFrames(t *testing.T) {
	var data []byte
	data = Append(data, NewHeartbeat(500*time.Millisecond))
	data = Append(data, NewData(1, []byte("a")))
	data = Append(data, NewDisconnect())

	b := NewBuffer(0)
	_, _ = b.Write(data)

	var types []Type
	for {
		f, ok, err := b.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		types = append(types, f.Type)
	}
	assert.Equal(t, []Type{TypeHeartbeat, TypeChannelData, TypeDisconnect}, types)
}

func TestBuffer_TooLarge(t *testing.T) {
	b := NewBuffer(16)
	_, _ = b.Write(Append(nil, NewData(1, make([]byte, 17))))
	_, _, err := b.Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	neg := []byte{0x04, 0, 1, 0xff, 0xff, 0xff, 0xff}
	b = NewBuffer(16)
	_, _ = b.Write(neg)
	_, _, err = b.Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestHeartbeatPeriod(t *testing.T) {
	p, err := HeartbeatPeriod(NewHeartbeat(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, p)

	_, err = HeartbeatPeriod(NewDebug("x"))
	assert.ErrorIs(t, err, ErrInvalidHeartbeat)
}

func TestReadFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewDebug("trace")))
	f, err := ReadFrame(&buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, TypeDebug, f.Type)
	assert.Equal(t, "trace", string(f.Payload))
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "heartbeat", TypeHeartbeat.String())
	assert.Equal(t, "app(0x20)", Type(0x20).String())
}
