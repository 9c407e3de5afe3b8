package cmd

import (
	"LumiFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动LumiFM服务器",
	Long:  `启动LumiFM电台的HTTP服务器，提供播放控制API、歌词接口和WebSocket状态推送`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
