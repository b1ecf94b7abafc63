package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-offload"
)

var mediatorFlags struct {
	listen  string
	metrics string
}

var mediatorCmd = &cobra.Command{
	Use:   "mediator",
	Short: "启动 Mediator",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := commonOptions()
		if mediatorFlags.listen != "" {
			opts = append(opts, offload.WithListenAddr(mediatorFlags.listen))
		}
		if mediatorFlags.metrics != "" {
			opts = append(opts, offload.WithMetrics(mediatorFlags.metrics))
		}

		m, err := offload.NewMediator(opts...)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := m.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mediator %s 监听 %s\n", m.ID(), m.Addr())
		log.Info("Mediator 已启动", "id", m.ID(), "addr", m.Addr())

		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.Stop(stopCtx)
	},
}

func init() {
	mediatorCmd.Flags().StringVar(&mediatorFlags.listen, "listen", "", "监听地址，如 0.0.0.0:7401")
	mediatorCmd.Flags().StringVar(&mediatorFlags.metrics, "metrics", "", "Prometheus 指标监听地址")
	rootCmd.AddCommand(mediatorCmd)
}
