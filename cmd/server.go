package cmd

import (
	"NawaxRadio/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动电台服务器",
	Long:  `启动 Nawax Radio 的 HTTP 服务器，提供频道、正在播放、音频流和实时推送接口`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
