package offload

import (
	"github.com/dep2p/go-offload/internal/client"
	"github.com/dep2p/go-offload/internal/payload"
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// RunOptions 单次提交参数
	RunOptions = client.RunOptions

	// RunnerRequest Mediator 查找条件
	RunnerRequest = types.RunnerRequest

	// RunnerDescriptor Mediator 记录的 Runner
	RunnerDescriptor = types.RunnerDescriptor

	// RunnerStatus Runner 状态
	RunnerStatus = types.RunnerStatus

	// RunnerState Runner 生命周期状态
	RunnerState = types.RunnerState

	// ErrorCategory 任务错误分类
	ErrorCategory = types.ErrorCategory

	// TaskPayloadCodec 负载编解码器
	TaskPayloadCodec = interfaces.TaskPayloadCodec

	// AssemblyResolver 依赖解析器
	AssemblyResolver = interfaces.AssemblyResolver

	// AssemblyResolverFunc 函数形式的依赖解析器
	AssemblyResolverFunc = interfaces.AssemblyResolverFunc

	// FileProvider 应用侧文件代理
	FileProvider = interfaces.FileProvider

	// Functions 可远程调用的函数表
	Functions = payload.Registry

	// FunctionCall 一次函数调用
	FunctionCall = payload.Call
)

// Runner 状态
const (
	RunnerStarting = types.RunnerStarting
	RunnerReady    = types.RunnerReady
	RunnerPaused   = types.RunnerPaused
	RunnerStopping = types.RunnerStopping
)

// 任务错误分类
const (
	CategoryGeneral         = types.CategoryGeneral
	CategoryDeserialization = types.CategoryDeserialization
	CategoryInvocation      = types.CategoryInvocation
	CategoryRunnerBusy      = types.CategoryRunnerBusy
	CategoryProtocol        = types.CategoryProtocol
)
