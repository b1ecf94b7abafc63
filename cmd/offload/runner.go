package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-offload"
	"github.com/dep2p/go-offload/config"
)

var runnerFlags struct {
	listen    string
	advertise string
	label     string
	platform  string
	tags      []string
	maxTasks  int
	maxQueue  int
	metrics   string
	zstdAbove int
}

var runnerCmd = &cobra.Command{
	Use:   "runner",
	Short: "启动 Runner，执行内置函数（double / sum / upper / sha256）",
	RunE:  runRunner,
}

func init() {
	f := runnerCmd.Flags()
	f.StringVar(&runnerFlags.listen, "listen", "", "监听地址，如 0.0.0.0:7400")
	f.StringVar(&runnerFlags.advertise, "advertise", "", "向 Mediator 公布的地址")
	f.StringVar(&runnerFlags.label, "label", "", "Runner 标签")
	f.StringVar(&runnerFlags.platform, "platform", "", "平台标识，默认 GOOS/GOARCH")
	f.StringSliceVar(&runnerFlags.tags, "tag", nil, "能力标签，可重复")
	f.IntVar(&runnerFlags.maxTasks, "max-tasks", 0, "最大并发任务数（0 = 使用配置）")
	f.IntVar(&runnerFlags.maxQueue, "max-queue", 0, "最大排队长度，-1 不限")
	f.StringVar(&runnerFlags.metrics, "metrics", "", "Prometheus 指标监听地址")
	f.IntVar(&runnerFlags.zstdAbove, "zstd-above", -1, "负载超过该字节数时 zstd 压缩，-1 关闭")
	rootCmd.AddCommand(runnerCmd)
}

func runRunner(cmd *cobra.Command, _ []string) error {
	opts := commonOptions()
	flags := cmd.Flags()
	if runnerFlags.listen != "" {
		opts = append(opts, offload.WithListenAddr(runnerFlags.listen))
	}
	if runnerFlags.advertise != "" {
		opts = append(opts, offload.WithAdvertiseAddr(runnerFlags.advertise))
	}
	if runnerFlags.label != "" {
		opts = append(opts, offload.WithLabel(runnerFlags.label))
	}
	if runnerFlags.platform != "" {
		opts = append(opts, offload.WithPlatform(runnerFlags.platform))
	}
	if len(runnerFlags.tags) > 0 {
		opts = append(opts, offload.WithTags(runnerFlags.tags...))
	}
	if flags.Changed("max-tasks") || flags.Changed("max-queue") {
		opts = append(opts, withCapacityOverride(runnerFlags.maxTasks, runnerFlags.maxQueue, flags.Changed("max-tasks"), flags.Changed("max-queue")))
	}
	if runnerFlags.metrics != "" {
		opts = append(opts, offload.WithMetrics(runnerFlags.metrics))
	}

	codec, err := cliCodec(builtinFunctions(), runnerFlags.zstdAbove)
	if err != nil {
		return err
	}
	defer offload.CloseCodec(codec)
	r, err := offload.NewRunner(codec, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := r.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Runner %s 监听 %s\n", r.ID(), r.Endpoint())
	log.Info("Runner 已启动", "id", r.ID(), "endpoint", r.Endpoint())

	<-ctx.Done()
	log.Info("正在停止 Runner")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.Stop(stopCtx)
}

func cliCodec(fns *offload.Functions, zstdAbove int) (offload.TaskPayloadCodec, error) {
	if zstdAbove < 0 {
		return offload.NewCodec(fns), nil
	}
	return offload.NewCompressedCodec(fns, zstdAbove)
}

// withCapacityOverride 只覆盖命令行显式给出的容量
func withCapacityOverride(maxTasks, maxQueue int, setTasks, setQueue bool) offload.Option {
	return offload.WithConfigHook(func(cfg *config.Config) {
		if setTasks {
			cfg.Runner.MaxTasks = maxTasks
		}
		if setQueue {
			cfg.Runner.MaxQueueLength = maxQueue
		}
	})
}
