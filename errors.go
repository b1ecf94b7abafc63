package offload

import (
	"errors"

	"github.com/dep2p/go-offload/internal/client"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 尚未启动
	ErrNotStarted = errors.New("offload: not started")

	// ErrAlreadyStarted 已经启动
	ErrAlreadyStarted = errors.New("offload: already started")

	// ErrStopped 已停止，不能再次启动
	ErrStopped = errors.New("offload: stopped")

	// ErrNilCodec 未提供负载编解码器
	ErrNilCodec = client.ErrNilCodec

	// ────────────────────────────────────────────────────────────────────────
	// 调度错误（客户端内部重试）
	// ────────────────────────────────────────────────────────────────────────

	// ErrRunnerBusy Runner 没有空闲容量
	ErrRunnerBusy = client.ErrRunnerBusy

	// ErrRunnerNotAvailable 没有可用 Runner
	ErrRunnerNotAvailable = client.ErrRunnerNotAvailable

	// ErrLookupTimeout Mediator 查找超时
	ErrLookupTimeout = client.ErrLookupTimeout

	// ────────────────────────────────────────────────────────────────────────
	// 终态错误（不重试）
	// ────────────────────────────────────────────────────────────────────────

	// ErrTaskTimeout 任务超时
	ErrTaskTimeout = client.ErrTaskTimeout

	// ErrCancelled 任务已取消
	ErrCancelled = client.ErrCancelled

	// ErrConnectionLost 等待结果时连接断开
	ErrConnectionLost = client.ErrConnectionLost

	// ErrProtocol Runner 报告协议错误
	ErrProtocol = client.ErrProtocol

	// ErrNegotiationFailed Runner 不支持本端的编解码器
	ErrNegotiationFailed = client.ErrNegotiationFailed

	// ErrNoMediator 既没有 Endpoint 也没有配置 Mediator
	ErrNoMediator = client.ErrNoMediator

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = client.ErrClosed
)

// TaskError Runner 报告的任务错误
type TaskError = client.TaskError

// IsRetryable 错误是否属于调度类（容量不足、无可用 Runner、查找超时）
func IsRetryable(err error) bool {
	return client.Retryable(err)
}
