package metrics

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "offload"

// 方向标签值
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics 进程内全部指标
type Metrics struct {
	registry *prometheus.Registry

	// 连接
	frames       *prometheus.CounterVec
	bytes        *prometheus.CounterVec
	connections  prometheus.Gauge
	disconnects  *prometheus.CounterVec
	bytesInRate  *RateMeter
	bytesOutRate *RateMeter

	// Runner
	tasks       *prometheus.CounterVec
	activeTasks prometheus.Gauge
	queueLength prometheus.Gauge

	// Mediator
	runners *prometheus.GaugeVec
	lookups *prometheus.CounterVec

	// 客户端
	attempts *prometheus.CounterVec
}

// New 创建指标集合
func New() *Metrics {
	return NewWithClock(clock.New())
}

// NewWithClock 使用指定时钟创建指标集合（速率计算使用）
func NewWithClock(clk clock.Clock) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connection", Name: "frames_total",
			Help: "Frames written or read, by direction.",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connection", Name: "bytes_total",
			Help: "Frame bytes written or read including headers, by direction.",
		}, []string{"direction"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "connection", Name: "active",
			Help: "Currently connected connections.",
		}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connection", Name: "disconnects_total",
			Help: "Disconnects by reason.",
		}, []string{"reason"}),
		bytesInRate:  NewRateMeter(clk),
		bytesOutRate: NewRateMeter(clk),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "runner", Name: "tasks_total",
			Help: "Tasks finished on this runner, by outcome.",
		}, []string{"outcome"}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "runner", Name: "active_tasks",
			Help: "Tasks currently executing.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "runner", Name: "queue_length",
			Help: "Tasks waiting for an execution slot.",
		}),
		runners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "mediator", Name: "runners",
			Help: "Registered runners, by state.",
		}, []string{"state"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mediator", Name: "lookups_total",
			Help: "Runner lookups, by result.",
		}, []string{"result"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "client", Name: "attempts_total",
			Help: "Task submission attempts, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.frames, m.bytes, m.connections, m.disconnects,
		m.tasks, m.activeTasks, m.queueLength,
		m.runners, m.lookups,
		m.attempts,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "connection", Name: "bytes_in_per_second",
			Help: "Average inbound byte rate over the last minute.",
		}, m.bytesInRate.Rate),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "connection", Name: "bytes_out_per_second",
			Help: "Average outbound byte rate over the last minute.",
		}, m.bytesOutRate.Rate),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ============================================================================
//                              连接
// ============================================================================

// FrameSent 记录写出的帧
func (m *Metrics) FrameSent(size int) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(DirectionOut).Inc()
	m.bytes.WithLabelValues(DirectionOut).Add(float64(size))
	m.bytesOutRate.Add(int64(size))
}

// FrameReceived 记录读入的帧
func (m *Metrics) FrameReceived(size int) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(DirectionIn).Inc()
	m.bytes.WithLabelValues(DirectionIn).Add(float64(size))
	m.bytesInRate.Add(int64(size))
}

// ConnectionOpened 记录连接建立
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed 记录连接断开
func (m *Metrics) ConnectionClosed(reason string) {
	if m == nil {
		return
	}
	m.connections.Dec()
	m.disconnects.WithLabelValues(reason).Inc()
}

// ============================================================================
//                              Runner
// ============================================================================

// TaskFinished 记录任务终态
func (m *Metrics) TaskFinished(outcome string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(outcome).Inc()
}

// SetActiveTasks 设置执行中任务数
func (m *Metrics) SetActiveTasks(n int) {
	if m == nil {
		return
	}
	m.activeTasks.Set(float64(n))
}

// SetQueueLength 设置排队长度
func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}

// ============================================================================
//                              Mediator
// ============================================================================

// SetRunners 设置某状态下的 Runner 数
func (m *Metrics) SetRunners(state string, n int) {
	if m == nil {
		return
	}
	m.runners.WithLabelValues(state).Set(float64(n))
}

// Lookup 记录一次查找结果
func (m *Metrics) Lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

// ============================================================================
//                              客户端
// ============================================================================

// Attempt 记录一次提交尝试结果
func (m *Metrics) Attempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}
