package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"NawaxRadio/cache"
	"NawaxRadio/db"

	"github.com/spf13/cobra"
)

var redisClearSnapshot bool

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，进行基本读写操作，并显示目录快照信息。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始测试Redis连接...")
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		defer func() {
			if err := db.CloseRedis(); err != nil {
				log.Printf("关闭Redis连接时发生错误: %v", err)
			}
		}()
		fmt.Println("Redis连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := db.CheckRedis(ctx, client); err != nil {
			log.Fatalf("Redis操作测试失败: %v", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		snapshot := cache.NewCatalogSnapshot(client, cfg.CatalogSnapshotTTL)
		if redisClearSnapshot {
			if err := snapshot.Clear(ctx); err != nil {
				log.Fatalf("清除目录快照失败: %v", err)
			}
			fmt.Println("目录快照已清除。")
			return
		}

		info, err := snapshot.Info(ctx)
		if err != nil {
			log.Fatalf("读取目录快照失败: %v", err)
		}
		if info == nil {
			fmt.Println("没有目录快照。")
			return
		}
		fmt.Printf("目录快照: %d 首歌曲, 更新于 %s, 剩余 %s\n",
			info.Songs, info.UpdatedAt.Format(time.RFC3339), info.TTL.Round(time.Second))
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
	redisCmd.Flags().BoolVar(&redisClearSnapshot, "clear-snapshot", false, "删除目录快照")
}
