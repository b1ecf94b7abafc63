package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-offload"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), offload.VersionInfo())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
