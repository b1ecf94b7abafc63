package payload

import "errors"

var (
	// ErrUnknownFunction 函数未注册
	ErrUnknownFunction = errors.New("payload: unknown function")

	// ErrDuplicateFunction 函数重复注册
	ErrDuplicateFunction = errors.New("payload: duplicate function")

	// ErrUnsupportedPayload Encode 收到的不是 Call
	ErrUnsupportedPayload = errors.New("payload: unsupported payload type")

	// ErrInvalidCall Call 格式错误
	ErrInvalidCall = errors.New("payload: invalid call")

	// ErrCorrupted 压缩数据损坏
	ErrCorrupted = errors.New("payload: corrupted data")
)
