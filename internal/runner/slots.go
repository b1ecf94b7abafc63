package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Slots 任务容量：maxTasks 个执行槽位 + 有界等待队列
//
// maxQueue < 0 表示队列不限长度，0 表示不排队。
type Slots struct {
	sem      *semaphore.Weighted
	maxTasks int
	maxQueue int

	mu       sync.Mutex
	active   int
	queued   int
	onChange func(active, queued int)
}

// NewSlots 创建容量管理
//
// onChange 在持有内部锁时调用，不能回调 Slots。
func NewSlots(maxTasks, maxQueue int, onChange func(active, queued int)) *Slots {
	if onChange == nil {
		onChange = func(int, int) {}
	}
	weight := int64(maxTasks)
	if weight < 1 {
		weight = 1
	}
	return &Slots{
		sem:      semaphore.NewWeighted(weight),
		maxTasks: maxTasks,
		maxQueue: maxQueue,
		onChange: onChange,
	}
}

// Ticket 一个任务持有的容量凭证
type Ticket struct {
	s      *Slots
	mu     sync.Mutex
	queued bool
	active bool
	done   bool
}

// Admit 为新任务申请容量
//
// 有空闲槽位时直接占用；否则在队列有空间时排队；都没有返回 ErrRunnerBusy。
func (s *Slots) Admit() (*Ticket, error) {
	if s.maxTasks <= 0 {
		return nil, ErrRunnerBusy
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Ticket{s: s}
	// TryAcquire 在有等待者时失败，保证排队任务先于新任务
	if s.sem.TryAcquire(1) {
		s.active++
		t.active = true
		s.onChange(s.active, s.queued)
		return t, nil
	}
	if s.maxQueue >= 0 && s.queued >= s.maxQueue {
		return nil, ErrRunnerBusy
	}
	s.queued++
	t.queued = true
	s.onChange(s.active, s.queued)
	return t, nil
}

// Queued 是否仍在排队
func (t *Ticket) Queued() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queued
}

// Wait 排队的任务等待执行槽位，已占用槽位时立即返回
func (t *Ticket) Wait(ctx context.Context) error {
	t.mu.Lock()
	if !t.queued {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	err := t.s.sem.Acquire(ctx, 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.done {
		// Release 已在等待期间调用
		if err == nil {
			t.s.sem.Release(1)
		}
		return ErrSessionClosed
	}
	t.queued = false
	t.s.queued--
	if err != nil {
		t.done = true
		t.s.onChange(t.s.active, t.s.queued)
		return err
	}
	t.active = true
	t.s.active++
	t.s.onChange(t.s.active, t.s.queued)
	return nil
}

// Release 释放凭证，可重复调用
func (t *Ticket) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.active {
		t.active = false
		t.s.active--
		t.s.sem.Release(1)
	}
	if t.queued {
		t.queued = false
		t.s.queued--
	}
	t.s.onChange(t.s.active, t.s.queued)
}

// Counts 返回执行中与排队中的任务数
func (s *Slots) Counts() (active, queued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.queued
}

// MaxTasks 返回执行槽位数
func (s *Slots) MaxTasks() int {
	return s.maxTasks
}

// MaxQueue 返回队列上限
func (s *Slots) MaxQueue() int {
	return s.maxQueue
}
