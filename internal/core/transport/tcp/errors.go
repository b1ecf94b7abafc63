package tcp

import "errors"

var (
	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("tcp: listener closed")

	// ErrEmptyAddress 地址为空
	ErrEmptyAddress = errors.New("tcp: empty address")
)
