package runner

import "errors"

var (
	// ErrRunnerBusy 没有空闲槽位也没有队列空间
	ErrRunnerBusy = errors.New("runner: busy")

	// ErrNotReady Runner 未处于 Ready 状态
	ErrNotReady = errors.New("runner: not ready")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("runner: already started")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("runner: not started")

	// ErrNilCodec 未提供负载编解码器
	ErrNilCodec = errors.New("runner: nil payload codec")

	// ErrDependencyNotFound 应用无法解析依赖
	ErrDependencyNotFound = errors.New("runner: dependency not found")

	// ErrTooManyDependencyRounds 依赖解析轮数超限
	ErrTooManyDependencyRounds = errors.New("runner: too many dependency rounds")

	// ErrNoFileProvider 任务上下文没有文件代理
	ErrNoFileProvider = errors.New("runner: no file provider in context")

	// ErrSessionClosed 连接已断开
	ErrSessionClosed = errors.New("runner: session closed")
)
