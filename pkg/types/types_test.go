package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskID(t *testing.T) {
	a := NewTaskID()
	b := NewTaskID()
	assert.False(t, a.IsEmpty())
	assert.NotEqual(t, a, b)
}

func TestChannelIDFromName(t *testing.T) {
	id1, err := ChannelIDFromName("metrics")
	require.NoError(t, err)
	id2, err := ChannelIDFromName("metrics")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "同名必须得到相同 ID")
	assert.GreaterOrEqual(t, id1, NamedChannelBase)

	_, err = ChannelIDFromName("")
	assert.ErrorIs(t, err, ErrEmptyChannelName)
}

func TestRunnerDescriptor_Slots(t *testing.T) {
	d := &RunnerDescriptor{MaxTasks: 2, ActiveTasks: 2, MaxQueueLength: 1, QueueLength: 1}
	assert.False(t, d.HasTaskSlot())
	assert.False(t, d.HasQueueSlot())

	d.MaxQueueLength = -1
	assert.True(t, d.UnlimitedQueue())
	assert.True(t, d.HasQueueSlot())
	assert.Equal(t, 0, d.FreeSlots())
}

func TestRunnerDescriptor_Clone(t *testing.T) {
	d := &RunnerDescriptor{ID: "r1", Tags: []string{"gpu"}}
	c := d.Clone()
	c.Tags[0] = "cpu"
	assert.Equal(t, "gpu", d.Tags[0])
	assert.Nil(t, (*RunnerDescriptor)(nil).Clone())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "dropped", ReasonDropped.String())
	assert.Equal(t, "ready", RunnerReady.String())
	assert.Equal(t, "invocation", CategoryInvocation.String())
	assert.Equal(t, "timed-out", OutcomeTimedOut.String())
}
