package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-offload"
)

var callFlags struct {
	endpoint  string
	label     string
	platforms []string
	tags      []string
	timeout   time.Duration
	wait      time.Duration
	fileRoot  string
	zstdAbove int
}

var callCmd = &cobra.Command{
	Use:   "call FUNC [JSON-ARGS]",
	Short: "提交一次调用并打印 JSON 结果",
	Example: `  offload call --endpoint 127.0.0.1:7400 double 21
  offload call --mediator 127.0.0.1:7401 --label gpu sum '[1,2,3]'
  offload call --endpoint 127.0.0.1:7400 --file-root . sha256 '"go.mod"'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func init() {
	f := callCmd.Flags()
	f.StringVar(&callFlags.endpoint, "endpoint", "", "直连 Runner 地址，为空时通过 Mediator 查找")
	f.StringVar(&callFlags.label, "label", "", "要求的 Runner 标签")
	f.StringSliceVar(&callFlags.platforms, "platform", nil, "可接受的平台，可重复")
	f.StringSliceVar(&callFlags.tags, "tag", nil, "要求的能力标签（任一），可重复")
	f.DurationVar(&callFlags.timeout, "timeout", 0, "任务执行超时")
	f.DurationVar(&callFlags.wait, "wait", time.Minute, "整体等待上限")
	f.StringVar(&callFlags.fileRoot, "file-root", "", "允许 Runner 读取的本地目录")
	f.IntVar(&callFlags.zstdAbove, "zstd-above", -1, "与 Runner 一致的 zstd 阈值，-1 关闭")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	raw := json.RawMessage("null")
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("参数不是合法 JSON: %s", args[1])
		}
		raw = json.RawMessage(args[1])
	}

	opts := commonOptions()
	if callFlags.fileRoot != "" {
		opts = append(opts, offload.WithFileProvider(dirFiles{root: os.DirFS(callFlags.fileRoot)}))
	}
	codec, err := cliCodec(offload.NewFunctions(), callFlags.zstdAbove)
	if err != nil {
		return err
	}
	defer offload.CloseCodec(codec)
	c, err := offload.NewClient(codec, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), callFlags.wait)
	defer cancel()
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Stop(context.Background())

	result, err := offload.Call[json.RawMessage](ctx, c, offload.RunOptions{
		Endpoint: callFlags.endpoint,
		Request: offload.RunnerRequest{
			Platforms: callFlags.platforms,
			Label:     callFlags.label,
			Tags:      callFlags.tags,
		},
		Timeout: callFlags.timeout,
	}, args[0], raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(result))
	return nil
}

// dirFiles 只暴露 root 下的文件
type dirFiles struct {
	root fs.FS
}

func (d dirFiles) ReadFile(_ context.Context, name string) ([]byte, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		clean = "."
	}
	return fs.ReadFile(d.root, clean)
}
