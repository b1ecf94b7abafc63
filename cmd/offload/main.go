// Package main 提供 offload 命令行入口
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-offload"
	"github.com/dep2p/go-offload/internal/util/logger"
)

var log = logger.Logger("offload/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 全局参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：本次运行的覆盖
//   配置文件：  长期运行的固定配置（JSON / YAML）
//
var (
	cfgFile      string
	identityFile string
	mediatorAddr string
)

var rootCmd = &cobra.Command{
	Use:   "offload",
	Short: "把任务卸载到远端 Runner 执行",
	Long: `offload 提供三个角色：

  runner    接受并执行任务，可向 Mediator 注册
  mediator  维护 Runner 目录，为应用选择 Runner
  call      作为应用提交一次调用并打印结果`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（.json / .yaml）")
	rootCmd.PersistentFlags().StringVar(&identityFile, "identity", "", "身份密钥文件路径，不存在时自动生成")
	rootCmd.PersistentFlags().StringVar(&mediatorAddr, "mediator", "", "Mediator 地址")
}

// commonOptions 把全局参数转换为选项，配置文件最先应用
func commonOptions() []offload.Option {
	var opts []offload.Option
	if cfgFile != "" {
		opts = append(opts, offload.WithConfigFile(cfgFile))
	}
	if identityFile != "" {
		opts = append(opts, offload.WithIdentityKeyFile(identityFile))
	}
	if mediatorAddr != "" {
		opts = append(opts, offload.WithMediator(mediatorAddr))
	}
	return opts
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
