package client

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-offload/pkg/types"
)

var (
	// ErrRunnerBusy Runner 没有空闲容量（可重试）
	ErrRunnerBusy = errors.New("client: runner busy")

	// ErrRunnerNotAvailable 没有可用 Runner 或无法连接（可重试）
	ErrRunnerNotAvailable = errors.New("client: runner not available")

	// ErrLookupTimeout Mediator 查找超时（可重试）
	ErrLookupTimeout = errors.New("client: runner lookup timed out")

	// ErrTaskTimeout 任务在 Runner 上超时
	ErrTaskTimeout = errors.New("client: task timed out")

	// ErrCancelled 任务已取消
	ErrCancelled = errors.New("client: task cancelled")

	// ErrConnectionLost 等待终态时连接断开
	ErrConnectionLost = errors.New("client: connection lost")

	// ErrProtocol Runner 报告协议错误，任务结果未知
	ErrProtocol = errors.New("client: protocol error")

	// ErrNegotiationFailed Runner 不接受本端的编解码器
	ErrNegotiationFailed = errors.New("client: task type negotiation failed")

	// ErrNoMediator 既没有 Endpoint 也没有配置 Mediator
	ErrNoMediator = errors.New("client: no endpoint and no mediator configured")

	// ErrNilCodec 未提供编解码器
	ErrNilCodec = errors.New("client: nil payload codec")

	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("client: closed")
)

// TaskError Runner 报告的任务错误
type TaskError struct {
	TaskID   types.TaskID
	Category types.ErrorCategory
	Detail   string
}

// Error 实现 error 接口
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed (%s): %s", e.TaskID, e.Category, e.Detail)
}

// Retryable 只有容量不足可以重试
func (e *TaskError) Retryable() bool {
	return e.Category == types.CategoryRunnerBusy
}

// Retryable 判断错误是否由重试循环消化
func Retryable(err error) bool {
	return errors.Is(err, ErrRunnerBusy) ||
		errors.Is(err, ErrRunnerNotAvailable) ||
		errors.Is(err, ErrLookupTimeout)
}
