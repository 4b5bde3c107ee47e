package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"NawaxRadio/repository"
	"NawaxRadio/server"

	"github.com/spf13/cobra"
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "目录源歌曲管理",
	Long:  `直接读写配置的目录源 (mysql / firestore)。运行中的服务在下一次同步后生效。`,
}

var songsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "按 ID 查看歌曲",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		repo, closeSource := openSongSource(ctx)
		defer closeSource()

		song, err := repo.GetByID(ctx, args[0])
		if err != nil {
			log.Fatalf("查询失败: %v", err)
		}
		if song == nil {
			fmt.Printf("歌曲不存在: %s\n", args[0])
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(song, "", "  ")
		fmt.Println(string(out))
	},
}

var songsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "从 JSON 文件导入歌曲",
	Long:  `读取歌曲 JSON 数组并逐条写入目录源，已存在的 ID 会被更新。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			log.Fatalf("无法打开文件: %v", err)
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		repo, closeSource := openSongSource(ctx)
		defer closeSource()

		saved, err := repository.ImportSongs(ctx, repo, f)
		for _, s := range saved {
			fmt.Printf("已写入: %s  %s - %s\n", s.ID, s.Singer, s.Name)
		}
		if err != nil {
			log.Fatalf("导入中断: %v", err)
		}
		fmt.Printf("共导入 %d 首歌曲\n", len(saved))
	},
}

func openSongSource(ctx context.Context) (repository.SongRepository, func()) {
	if cfg.CatalogSource == "" || cfg.CatalogSource == "none" {
		log.Fatal("未配置目录源 (CATALOG_SOURCE)")
	}
	repo, closeSource, err := server.NewCatalogSource(ctx, cfg)
	if err != nil {
		log.Fatalf("无法打开目录源: %v", err)
	}
	return repo, closeSource
}

func init() {
	rootCmd.AddCommand(songsCmd)
	songsCmd.AddCommand(songsGetCmd)
	songsCmd.AddCommand(songsImportCmd)
}
