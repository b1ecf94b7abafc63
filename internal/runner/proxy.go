package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/pkg/interfaces"
	"github.com/dep2p/go-offload/pkg/types"
)

// appProxy 通过 assembly / file 通道向应用发起请求
type appProxy struct {
	assembly *message.Channel
	files    *message.Channel
	closed   <-chan struct{}

	next atomic.Int64

	mu           sync.Mutex
	pendingAsm   map[int64]chan *taskmsg.AssemblyResponse
	pendingFiles map[int64]chan *taskmsg.FileResponse
}

func newAppProxy(assembly, files *message.Channel, closed <-chan struct{}) *appProxy {
	return &appProxy{
		assembly:     assembly,
		files:        files,
		closed:       closed,
		pendingAsm:   make(map[int64]chan *taskmsg.AssemblyResponse),
		pendingFiles: make(map[int64]chan *taskmsg.FileResponse),
	}
}

// resolver 返回绑定到某个任务的依赖解析器
func (p *appProxy) resolver(task types.TaskID) interfaces.AssemblyResolver {
	return interfaces.AssemblyResolverFunc(func(ctx context.Context, name string) ([]byte, bool, error) {
		return p.resolve(ctx, task, name)
	})
}

func (p *appProxy) resolve(ctx context.Context, task types.TaskID, name string) ([]byte, bool, error) {
	id := p.next.Add(1)
	ch := make(chan *taskmsg.AssemblyResponse, 1)

	p.mu.Lock()
	p.pendingAsm[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pendingAsm, id)
		p.mu.Unlock()
	}()

	if err := p.assembly.Send(&taskmsg.AssemblyRequest{RequestID: id, TaskID: task, Name: name}); err != nil {
		return nil, false, err
	}

	select {
	case resp := <-ch:
		if resp.Detail != "" {
			return nil, false, errors.New(resp.Detail)
		}
		return resp.Data, resp.Found, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-p.closed:
		return nil, false, ErrSessionClosed
	}
}

// ReadFile 实现 interfaces.FileProvider
func (p *appProxy) ReadFile(ctx context.Context, path string) ([]byte, error) {
	id := p.next.Add(1)
	ch := make(chan *taskmsg.FileResponse, 1)

	p.mu.Lock()
	p.pendingFiles[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pendingFiles, id)
		p.mu.Unlock()
	}()

	if err := p.files.Send(&taskmsg.FileRequest{RequestID: id, Path: path}); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Detail != "" {
			return nil, errors.New(resp.Detail)
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, ErrSessionClosed
	}
}

// handleAssembly assembly 通道回调
func (p *appProxy) handleAssembly(_ context.Context, msg message.Message) error {
	resp, ok := msg.(*taskmsg.AssemblyResponse)
	if !ok {
		return unexpected(msg)
	}
	p.mu.Lock()
	ch, found := p.pendingAsm[resp.RequestID]
	p.mu.Unlock()
	if found {
		select {
		case ch <- resp:
		default:
		}
	}
	return nil
}

// handleFile file 通道回调
func (p *appProxy) handleFile(_ context.Context, msg message.Message) error {
	resp, ok := msg.(*taskmsg.FileResponse)
	if !ok {
		return unexpected(msg)
	}
	p.mu.Lock()
	ch, found := p.pendingFiles[resp.RequestID]
	p.mu.Unlock()
	if found {
		select {
		case ch <- resp:
		default:
		}
	}
	return nil
}
