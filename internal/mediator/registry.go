package mediator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-offload/internal/core/metrics"
	"github.com/dep2p/go-offload/internal/util/logger"
	"github.com/dep2p/go-offload/pkg/types"
)

// Registry 在线 Runner 表，以连接 ID 为键
type Registry struct {
	reserve bool
	clock   clock.Clock
	metrics *metrics.Metrics

	mu      sync.Mutex
	runners map[string]*types.RunnerDescriptor
}

// NewRegistry 创建 Runner 表；reserve 为 true 时选中后乐观占用槽位
func NewRegistry(reserve bool, clk clock.Clock, m *metrics.Metrics) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		reserve: reserve,
		clock:   clk,
		metrics: m,
		runners: make(map[string]*types.RunnerDescriptor),
	}
}

// Register 注册或替换连接上的 Runner
func (r *Registry) Register(connID string, desc *types.RunnerDescriptor) error {
	if desc == nil || desc.ID == "" || desc.Endpoint == "" {
		return ErrInvalidDescriptor
	}
	d := desc.Clone()
	d.UpdatedAt = r.clock.Now()

	r.mu.Lock()
	r.runners[connID] = d
	r.recordLocked()
	r.mu.Unlock()

	log.Info("Runner 已注册",
		"runner", d.ID.ShortString(),
		"endpoint", d.Endpoint,
		"label", d.Label,
		"platform", d.Platform,
		"maxTasks", d.MaxTasks)
	return nil
}

// Update 用状态上报覆盖 Runner 的负载信息（同时清除乐观占用）
func (r *Registry) Update(connID string, status types.RunnerStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.runners[connID]
	if !ok {
		return fmt.Errorf("%w: conn %s", ErrUnknownRunner, logger.TruncateID(connID, 8))
	}
	d.State = status.State
	d.ActiveTasks = status.ActiveTasks
	d.QueueLength = status.QueueLength
	d.UpdatedAt = r.clock.Now()
	r.recordLocked()
	return nil
}

// Remove 移除连接上的 Runner
func (r *Registry) Remove(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.runners[connID]
	if !ok {
		return false
	}
	delete(r.runners, connID)
	r.recordLocked()
	log.Info("Runner 已移除", "runner", d.ID.ShortString())
	return true
}

// Select 选择最合适的 Runner 并返回其副本
func (r *Registry) Select(req types.RunnerRequest) (*types.RunnerDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := Select(r.snapshotLocked(), req)
	if best == nil {
		r.metrics.Lookup("none")
		return nil, false
	}
	if r.reserve {
		if best.HasTaskSlot() {
			best.ActiveTasks++
		} else {
			best.QueueLength++
		}
	}
	r.metrics.Lookup("found")
	return best.Clone(), true
}

// Snapshot 返回按 ID 排序的副本
func (r *Registry) Snapshot() []*types.RunnerDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*types.RunnerDescriptor, 0, len(r.runners))
	for _, d := range r.snapshotLocked() {
		out = append(out, d.Clone())
	}
	return out
}

// Len 返回在线 Runner 数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runners)
}

// snapshotLocked 返回按 ID 排序的内部指针
func (r *Registry) snapshotLocked() []*types.RunnerDescriptor {
	out := make([]*types.RunnerDescriptor, 0, len(r.runners))
	for _, d := range r.runners {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) recordLocked() {
	if r.metrics == nil {
		return
	}
	counts := map[types.RunnerState]int{
		types.RunnerStarting: 0,
		types.RunnerReady:    0,
		types.RunnerPaused:   0,
		types.RunnerStopping: 0,
	}
	for _, d := range r.runners {
		counts[d.State]++
	}
	for state, n := range counts {
		r.metrics.SetRunners(state.String(), n)
	}
}
