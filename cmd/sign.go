package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"NawaxRadio/server"

	"github.com/spf13/cobra"
)

var signCmd = &cobra.Command{
	Use:   "sign <locator>",
	Short: "解析歌曲地址",
	Long:  `把歌曲的存储引用 (gs://, s3://, 控制台链接, 公共链接) 解析成可直接访问的 URL。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fetchable, err := server.NewResolver(cfg).Resolve(ctx, args[0])
		if err != nil {
			log.Fatalf("解析失败: %v", err)
		}
		fmt.Println(fetchable)
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
}
