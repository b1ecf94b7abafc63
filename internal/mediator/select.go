package mediator

import (
	"slices"

	"github.com/dep2p/go-offload/pkg/types"
)

// Eligible 判断 Runner 是否满足请求
func Eligible(d *types.RunnerDescriptor, req types.RunnerRequest) bool {
	if d.State != types.RunnerReady || d.MaxTasks <= 0 {
		return false
	}
	if req.Label != "" && d.Label != req.Label {
		return false
	}
	if len(req.Platforms) > 0 && !slices.Contains(req.Platforms, d.Platform) {
		return false
	}
	if len(req.Tags) > 0 && !intersects(d.Tags, req.Tags) {
		return false
	}
	return d.HasTaskSlot() || d.HasQueueSlot()
}

// MoreAvailable a 是否比 b 更空闲
func MoreAvailable(a, b *types.RunnerDescriptor) bool {
	if fa, fb := a.FreeSlots(), b.FreeSlots(); fa != fb {
		return fa > fb
	}
	switch {
	case a.UnlimitedQueue() && b.UnlimitedQueue():
		return false
	case a.UnlimitedQueue():
		return true
	case b.UnlimitedQueue():
		return false
	default:
		return a.QueueLength < b.QueueLength
	}
}

// Select 从候选中选出最空闲的 Runner，没有合适的返回 nil
//
// 完全相同的候选按 ID 排序取第一个。
func Select(runners []*types.RunnerDescriptor, req types.RunnerRequest) *types.RunnerDescriptor {
	var best *types.RunnerDescriptor
	for _, d := range runners {
		if !Eligible(d, req) {
			continue
		}
		if best == nil || MoreAvailable(d, best) || (!MoreAvailable(best, d) && d.ID < best.ID) {
			best = d
		}
	}
	return best
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
