package cmd

import (
	"context"
	"fmt"
	"log"

	"NawaxRadio/core/catalog"
	"NawaxRadio/server"

	"github.com/spf13/cobra"
)

var syncSnapshot bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "同步歌曲目录",
	Long:  `从配置的目录源 (mysql / firestore) 拉取歌曲，打印统计信息，可选写入 Redis 快照。`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		fmt.Printf("目录源: %s\n", cfg.CatalogSource)

		source, closeSource, err := server.NewCatalogSource(ctx, cfg)
		if err != nil {
			log.Fatalf("无法打开目录源: %v", err)
		}
		defer closeSource()

		var snapshot catalog.SnapshotStore
		if syncSnapshot {
			store, closeSnapshot := server.NewSnapshotStore(cfg)
			defer closeSnapshot()
			if store == nil {
				log.Fatal("Redis 未配置或不可用，无法写入快照")
			}
			snapshot = store
		}

		songs := catalog.New()
		res, err := catalog.NewSyncer(songs, source, snapshot).SyncNow(ctx)
		if err != nil {
			log.Fatalf("同步失败: %v", err)
		}

		fmt.Printf("拉取: %d, 写入: %d, 可播放: %d\n", res.Fetched, res.Upserted, res.Active)
		jingles := 0
		for _, s := range songs.ActiveTracks() {
			if s.IsJingle {
				jingles++
			}
		}
		fmt.Printf("其中 jingle: %d\n", jingles)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncSnapshot, "snapshot", false, "同步后写入 Redis 目录快照")
}
