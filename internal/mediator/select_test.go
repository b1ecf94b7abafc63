package mediator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-offload/pkg/types"
)

func desc(id string, maxTasks, active, maxQueue, queue int) *types.RunnerDescriptor {
	return &types.RunnerDescriptor{
		ID:             types.RunnerID(id),
		Platform:       "linux/amd64",
		Endpoint:       "127.0.0.1:1",
		State:          types.RunnerReady,
		MaxTasks:       maxTasks,
		ActiveTasks:    active,
		MaxQueueLength: maxQueue,
		QueueLength:    queue,
	}
}

func TestSelect_Ranking(t *testing.T) {
	t.Run("空闲槽位优先", func(t *testing.T) {
		busy := desc("a", 1, 1, 0, 0)
		idle := desc("b", 1, 0, 0, 0)
		got := Select([]*types.RunnerDescriptor{busy, idle}, types.RunnerRequest{})
		require.NotNil(t, got)
		assert.Equal(t, types.RunnerID("b"), got.ID)
	})

	t.Run("槽位相同时队列短者优先", func(t *testing.T) {
		longer := desc("a", 1, 1, 10, 5)
		shorter := desc("b", 1, 1, 10, 2)
		got := Select([]*types.RunnerDescriptor{longer, shorter}, types.RunnerRequest{})
		require.NotNil(t, got)
		assert.Equal(t, types.RunnerID("b"), got.ID)
	})

	t.Run("不限队列优先于满队列", func(t *testing.T) {
		full := desc("a", 1, 1, 3, 3)
		unlimited := desc("b", 1, 1, -1, 100)
		got := Select([]*types.RunnerDescriptor{full, unlimited}, types.RunnerRequest{})
		require.NotNil(t, got)
		assert.Equal(t, types.RunnerID("b"), got.ID)
	})

	t.Run("不限队列优先于有空位的有限队列", func(t *testing.T) {
		finite := desc("a", 2, 2, 10, 0)
		unlimited := desc("b", 2, 2, -1, 7)
		got := Select([]*types.RunnerDescriptor{finite, unlimited}, types.RunnerRequest{})
		assert.Equal(t, types.RunnerID("b"), got.ID)
	})

	t.Run("完全相同按 ID", func(t *testing.T) {
		got := Select([]*types.RunnerDescriptor{desc("z", 2, 0, 0, 0), desc("m", 2, 0, 0, 0)}, types.RunnerRequest{})
		assert.Equal(t, types.RunnerID("m"), got.ID)
	})

	t.Run("分散负载而非填满", func(t *testing.T) {
		a := desc("a", 4, 1, 0, 0)
		b := desc("b", 2, 0, 0, 0)
		got := Select([]*types.RunnerDescriptor{a, b}, types.RunnerRequest{})
		assert.Equal(t, types.RunnerID("a"), got.ID, "a 有 3 个空闲槽位")
	})
}

func TestSelect_Filtering(t *testing.T) {
	base := func() *types.RunnerDescriptor {
		d := desc("r", 2, 0, 0, 0)
		d.Label = "gpu"
		d.Tags = []string{"cuda", "fp16"}
		return d
	}

	cases := []struct {
		name string
		mod  func(*types.RunnerDescriptor)
		req  types.RunnerRequest
		want bool
	}{
		{"无条件", nil, types.RunnerRequest{}, true},
		{"未就绪", func(d *types.RunnerDescriptor) { d.State = types.RunnerPaused }, types.RunnerRequest{}, false},
		{"MaxTasks 为 0", func(d *types.RunnerDescriptor) { d.MaxTasks = 0 }, types.RunnerRequest{}, false},
		{"标签匹配", nil, types.RunnerRequest{Label: "gpu"}, true},
		{"标签不匹配", nil, types.RunnerRequest{Label: "cpu"}, false},
		{"平台命中", nil, types.RunnerRequest{Platforms: []string{"darwin/arm64", "linux/amd64"}}, true},
		{"平台未命中", nil, types.RunnerRequest{Platforms: []string{"windows/amd64"}}, false},
		{"Tags 有交集", nil, types.RunnerRequest{Tags: []string{"avx", "cuda"}}, true},
		{"Tags 无交集", nil, types.RunnerRequest{Tags: []string{"avx"}}, false},
		{"满载无队列", func(d *types.RunnerDescriptor) { d.ActiveTasks = 2 }, types.RunnerRequest{}, false},
		{"满载有队列空间", func(d *types.RunnerDescriptor) { d.ActiveTasks, d.MaxQueueLength = 2, 1 }, types.RunnerRequest{}, true},
		{"满载队列已满", func(d *types.RunnerDescriptor) {
			d.ActiveTasks, d.MaxQueueLength, d.QueueLength = 2, 1, 1
		}, types.RunnerRequest{}, false},
		{"满载队列不限", func(d *types.RunnerDescriptor) { d.ActiveTasks, d.MaxQueueLength = 2, -1 }, types.RunnerRequest{}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := base()
			if c.mod != nil {
				c.mod(d)
			}
			assert.Equal(t, c.want, Eligible(d, c.req))
		})
	}

	assert.Nil(t, Select(nil, types.RunnerRequest{}))
}
