package mediator

import "errors"

var (
	// ErrUnknownRunner 连接上没有注册 Runner
	ErrUnknownRunner = errors.New("mediator: runner not registered")

	// ErrIdentityMismatch 注册的 RunnerID 与 TLS 身份不一致
	ErrIdentityMismatch = errors.New("mediator: runner id does not match peer identity")

	// ErrInvalidDescriptor 注册信息不完整
	ErrInvalidDescriptor = errors.New("mediator: invalid runner descriptor")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("mediator: already started")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("mediator: not started")
)
