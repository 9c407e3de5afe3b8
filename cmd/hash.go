package cmd

import (
	"fmt"
	"log"

	"LumiFM/core/auth"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <password>",
	Short: "生成管理员密码哈希",
	Long:  `用bcrypt生成管理员密码哈希，写入环境变量 ADMIN_PASSWORD_HASH 后即可启用歌词编辑接口。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		hashed, err := auth.HashPassword(args[0])
		if err != nil {
			log.Fatalf("生成哈希失败: %v", err)
		}
		fmt.Println(hashed)
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
