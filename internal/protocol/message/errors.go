package message

import "errors"

// 错误定义
var (
	// ErrUnknownMessage 未注册的消息 tag
	ErrUnknownMessage = errors.New("message: unknown message tag")

	// ErrUnexpectedMessage 收到当前交互不期望的消息
	ErrUnexpectedMessage = errors.New("message: unexpected message")

	// ErrMalformed 消息格式错误
	ErrMalformed = errors.New("message: malformed message")

	// ErrBadBody 信封完整但消息体解码失败，流仍然对齐
	ErrBadBody = errors.New("message: bad message body")

	// ErrTimeout 等待消息超时
	ErrTimeout = errors.New("message: receive timeout")

	// ErrClosed 通道已结束
	ErrClosed = errors.New("message: channel closed")

	// ErrHandlerInstalled 已安装回调时不能同步接收
	ErrHandlerInstalled = errors.New("message: handler installed")

	// ErrDuplicateTag tag 重复注册
	ErrDuplicateTag = errors.New("message: duplicate tag")
)
