package offload

import (
	"context"

	"github.com/dep2p/go-offload/internal/client"
)

// Client 应用侧任务提交
type Client struct {
	lifecycle
	client *client.Client
}

// NewClient 创建 Client，codec 用于编码提交的负载
func NewClient(codec TaskPayloadCodec, opts ...Option) (*Client, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	c := &Client{lifecycle: lifecycle{name: "client"}}
	app, err := buildFxApp(o, fxClient(codec), &c.client)
	if err != nil {
		return nil, err
	}
	c.app = app
	return c, nil
}

// Start 启动客户端
func (c *Client) Start(ctx context.Context) error {
	return c.start(ctx)
}

// Stop 断开全部连接
func (c *Client) Stop(ctx context.Context) error {
	return c.stop(ctx)
}

// Run 提交任务并等待结果
//
// payload 由编解码器编码，返回 Runner 给出的结果字节。
func (c *Client) Run(ctx context.Context, payload any, opts RunOptions) ([]byte, error) {
	if !c.running() {
		return nil, ErrNotStarted
	}
	return c.client.Run(ctx, payload, opts)
}
