package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-offload/internal/core/connection"
	"github.com/dep2p/go-offload/internal/protocol/message"
	"github.com/dep2p/go-offload/internal/protocol/taskmsg"
	"github.com/dep2p/go-offload/pkg/types"
)

// reporter 向 Mediator 注册并上报状态，断开后按 ReconnectInterval 重连
type reporter struct {
	srv     *Server
	addr    string
	limiter *rate.Limiter
}

func newReporter(srv *Server) *reporter {
	cfg := srv.cfg.Runner
	// 状态变化触发的上报在一个周期内最多 StatusBurst 次
	every := cfg.StatusInterval.Duration() / time.Duration(cfg.StatusBurst)
	return &reporter{
		srv:     srv,
		addr:    cfg.MediatorAddr,
		limiter: rate.NewLimiter(rate.Every(every), cfg.StatusBurst),
	}
}

func (r *reporter) run(ctx context.Context) {
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Warn("Mediator 连接中断，稍后重连", "mediator", r.addr, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-r.srv.clock.After(r.srv.cfg.Runner.ReconnectInterval.Duration()):
		}
	}
}

// session 一次 Mediator 连接的生命周期，返回断开原因
func (r *reporter) session(ctx context.Context) error {
	conn, err := connection.Dial(ctx, r.addr, r.srv.sec, r.srv.cfg.Transport.DialTimeout.Duration(), r.srv.connOptions())
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	ch := message.New(conn.Channel(taskmsg.ChannelRunnerMediator), r.srv.registry)
	ch.SetHandler(func(_ context.Context, msg message.Message) error {
		if pe, ok := msg.(*message.ProtocolError); ok {
			log.Warn("Mediator 报告协议错误", "detail", pe.Detail)
		}
		return nil
	})
	if err := ch.Send(r.registration()); err != nil {
		return err
	}
	log.Info("已向 Mediator 注册", "mediator", r.addr, "endpoint", r.srv.Endpoint())

	ticker := r.srv.clock.Ticker(r.srv.cfg.Runner.StatusInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-conn.Done():
			return conn.Err()
		case <-ticker.C:
			if err := r.report(ch); err != nil {
				return err
			}
		case <-r.srv.changed:
			if !r.limiter.Allow() {
				// 下一个周期上报
				continue
			}
			if err := r.report(ch); err != nil {
				return err
			}
		}
	}
}

func (r *reporter) report(ch *message.Channel) error {
	return ch.Send(taskmsg.NewRunnerStatus(r.srv.Status()))
}

func (r *reporter) registration() *taskmsg.RunnerRegister {
	cfg := r.srv.cfg.Runner
	return &taskmsg.RunnerRegister{
		RunnerID:       types.RunnerID(r.srv.ID()),
		Label:          cfg.Label,
		Platform:       cfg.Platform,
		Tags:           cfg.Tags,
		Endpoint:       r.srv.Endpoint(),
		MaxTasks:       int32(cfg.MaxTasks),
		MaxQueueLength: int32(cfg.MaxQueueLength),
		Status:         *taskmsg.NewRunnerStatus(r.srv.Status()),
	}
}
