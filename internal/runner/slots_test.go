package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlots_AdmitQueueBusy(t *testing.T) {
	var changes int
	s := NewSlots(2, 1, func(int, int) { changes++ })

	t1, err := s.Admit()
	require.NoError(t, err)
	t2, err := s.Admit()
	require.NoError(t, err)
	assert.False(t, t1.Queued())
	assert.False(t, t2.Queued())

	t3, err := s.Admit()
	require.NoError(t, err)
	assert.True(t, t3.Queued())

	_, err = s.Admit()
	assert.ErrorIs(t, err, ErrRunnerBusy)

	active, queued := s.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 1, queued)

	// 释放一个槽位后排队任务获得执行权
	waited := make(chan error, 1)
	go func() { waited <- t3.Wait(context.Background()) }()
	t1.Release()

	select {
	case err := <-waited:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("排队任务未获得槽位")
	}
	active, queued = s.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 0, queued)

	t2.Release()
	t3.Release()
	t3.Release()
	active, _ = s.Counts()
	assert.Equal(t, 0, active)
	assert.Positive(t, changes)

	t.Log("✅ 槽位、队列、忙碌拒绝正确")
}

func TestSlots_UnlimitedQueue(t *testing.T) {
	s := NewSlots(1, -1, nil)
	_, err := s.Admit()
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		tk, err := s.Admit()
		require.NoError(t, err)
		assert.True(t, tk.Queued())
	}
	_, queued := s.Counts()
	assert.Equal(t, 100, queued)
}

func TestSlots_NoCapacity(t *testing.T) {
	s := NewSlots(0, -1, nil)
	_, err := s.Admit()
	assert.ErrorIs(t, err, ErrRunnerBusy)
}

func TestSlots_CancelQueued(t *testing.T) {
	s := NewSlots(1, 1, nil)
	_, err := s.Admit()
	require.NoError(t, err)
	queuedTicket, err := s.Admit()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, queuedTicket.Wait(ctx), context.Canceled)

	_, queued := s.Counts()
	assert.Equal(t, 0, queued)

	// 队列位置已归还
	_, err = s.Admit()
	require.NoError(t, err)
}
