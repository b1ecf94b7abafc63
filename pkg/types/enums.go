package types

// ============================================================================
//                              DisconnectReason - 断开原因
// ============================================================================

// DisconnectReason 连接断开原因
type DisconnectReason int

const (
	// ReasonNone 连接仍然存活
	ReasonNone DisconnectReason = iota
	// ReasonLocalDisconnect 本端主动断开
	ReasonLocalDisconnect
	// ReasonRemoteDisconnect 收到对端的断开帧
	ReasonRemoteDisconnect
	// ReasonDropped 对端静默超过两倍心跳周期，或流在没有断开帧的情况下结束
	ReasonDropped
	// ReasonUnresponsive 写入超时，对端不再消费数据
	ReasonUnresponsive
	// ReasonError 其他 I/O、握手或帧格式错误
	ReasonError
)

// String 返回断开原因的字符串表示
func (r DisconnectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonLocalDisconnect:
		return "local-disconnect"
	case ReasonRemoteDisconnect:
		return "remote-disconnect"
	case ReasonDropped:
		return "dropped"
	case ReasonUnresponsive:
		return "unresponsive"
	case ReasonError:
		return "error"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              RunnerState - Runner 状态
// ============================================================================

// RunnerState Runner 生命周期状态
type RunnerState uint8

const (
	// RunnerStarting 启动中
	RunnerStarting RunnerState = iota
	// RunnerReady 可接收任务
	RunnerReady
	// RunnerPaused 暂停接收新任务
	RunnerPaused
	// RunnerStopping 停止中
	RunnerStopping
)

// String 返回状态的字符串表示
func (s RunnerState) String() string {
	switch s {
	case RunnerStarting:
		return "starting"
	case RunnerReady:
		return "ready"
	case RunnerPaused:
		return "paused"
	case RunnerStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              ErrorCategory - 任务错误类别
// ============================================================================

// ErrorCategory 任务错误类别
//
// 让应用区分“你的代码失败了”和“框架根本没能启动你的代码”。
type ErrorCategory uint8

const (
	// CategoryGeneral 其他框架错误
	CategoryGeneral ErrorCategory = iota
	// CategoryDeserialization 负载解码失败
	CategoryDeserialization
	// CategoryInvocation 负载执行失败
	CategoryInvocation
	// CategoryRunnerBusy Runner 没有空闲槽位和队列空间
	CategoryRunnerBusy
	// CategoryProtocol 协议错误（未协商、未知消息等）
	CategoryProtocol
)

// String 返回类别的字符串表示
func (c ErrorCategory) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryDeserialization:
		return "deserialization"
	case CategoryInvocation:
		return "invocation"
	case CategoryRunnerBusy:
		return "runner-busy"
	case CategoryProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              TaskOutcome - 任务终态
// ============================================================================

// TaskOutcome 任务终态
type TaskOutcome uint8

const (
	// OutcomePending 尚未产生终态
	OutcomePending TaskOutcome = iota
	// OutcomeCompleted 正常完成
	OutcomeCompleted
	// OutcomeErrored 执行出错
	OutcomeErrored
	// OutcomeCancelled 被取消
	OutcomeCancelled
	// OutcomeTimedOut 超时
	OutcomeTimedOut
)

// String 返回终态的字符串表示
func (o TaskOutcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeErrored:
		return "errored"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}
