package connection

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/core/frame"
	"github.com/dep2p/go-offload/internal/core/metrics"
)

// Options 连接参数
type Options struct {
	// MaxFrameSize 最大帧负载
	MaxFrameSize int

	// HeartbeatPeriod 本端心跳周期
	HeartbeatPeriod time.Duration

	// ReadTimeout 单次读取超时，决定存活检查粒度
	ReadTimeout time.Duration

	// WriteTimeout 单帧写入超时
	WriteTimeout time.Duration

	// OutboundQueueSize 出站队列容量
	OutboundQueueSize int

	// DrainInterval 通道写缓冲的兜底排空间隔
	DrainInterval time.Duration

	// Clock 心跳与存活判断使用的时钟
	Clock clock.Clock

	// Metrics 指标，可为 nil
	Metrics *metrics.Metrics

	// OnChannel 对端首次在某通道上发送数据时回调（在读循环中执行，不要阻塞）
	OnChannel func(*Channel)

	// OnMonitor 收到应用自定义类型帧时回调
	OnMonitor func(frame.Frame)

	// OnDebug 收到调试帧时回调
	OnDebug func(msg string)
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConnectionConfig())
}

// OptionsFromConfig 从配置创建参数
func OptionsFromConfig(cfg config.ConnectionConfig) Options {
	return Options{
		MaxFrameSize:      cfg.MaxFrameSize,
		HeartbeatPeriod:   cfg.HeartbeatPeriod.Duration(),
		ReadTimeout:       cfg.ReadTimeout.Duration(),
		WriteTimeout:      cfg.WriteTimeout.Duration(),
		OutboundQueueSize: cfg.OutboundQueueSize,
		DrainInterval:     cfg.DrainInterval.Duration(),
	}
}

func (o *Options) applyDefaults() {
	d := config.DefaultConnectionConfig()
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = d.MaxFrameSize
	}
	if o.HeartbeatPeriod <= 0 {
		o.HeartbeatPeriod = d.HeartbeatPeriod.Duration()
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = d.ReadTimeout.Duration()
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout.Duration()
	}
	if o.OutboundQueueSize <= 0 {
		o.OutboundQueueSize = d.OutboundQueueSize
	}
	if o.DrainInterval <= 0 {
		o.DrainInterval = d.DrainInterval.Duration()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}
