package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-offload/internal/core/security/tls"
	"github.com/dep2p/go-offload/internal/core/transport/tcp"
)

// Serve 接受连接、完成握手并交给 handle，直到 ctx 取消或监听器关闭
//
// 每个握手在独立 goroutine 中进行，返回前等待全部握手结束。
// 握手失败只记录日志，不影响后续连接。
func Serve(ctx context.Context, ln *tcp.Listener, sec *tls.Transport, opts Options, handle func(*Connection)) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if errors.Is(err, tcp.ErrListenerClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := Accept(ctx, raw, sec, opts)
			if err != nil {
				log.Debug("入站握手失败", "addr", addrString(raw.RemoteAddr()), "err", err)
				return
			}
			if ctx.Err() != nil {
				c.Disconnect()
				return
			}
			handle(c)
		}()
	}
}
