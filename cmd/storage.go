package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"NawaxRadio/core/resolver"
	"NawaxRadio/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix   string
	storageAll      bool
	storagePingOnly bool
)

var storageCmd = &cobra.Command{
	Use:   "storage <bucket>",
	Short: "存储桶音频文件查看",
	Long:  `连接 S3 兼容存储 (GCS 互操作端点 / MinIO / S3)，列出存储桶中的音频文件及其 locator。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bucket := resolver.CleanBucket(args[0])
		fmt.Printf("存储配置: %s, Bucket: %s\n", cfg.MinioEndpoint, bucket)

		signer, err := storage.NewMinioSigner(cfg)
		if err != nil {
			log.Fatalf("创建存储客户端失败: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := signer.Ping(ctx, bucket); err != nil {
			log.Fatalf("无法访问存储桶: %v", err)
		}
		fmt.Println("存储连接成功！")
		if storagePingOnly {
			return
		}

		objects, stats, err := signer.ListAudioObjects(ctx, bucket, storagePrefix, !storageAll)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}
		storage.PrintObjects(os.Stdout, bucket, storagePrefix, objects, stats)
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "按前缀过滤文件")
	storageCmd.Flags().BoolVarP(&storageAll, "all", "a", false, "显示所有文件，而不仅是音频")
	storageCmd.Flags().BoolVar(&storagePingOnly, "ping", false, "只检查存储桶是否可访问")

	storageCmd.Example = `  # 列出所有音频文件
  nawaxradio storage nawax-songs

  # 按前缀过滤文件
  nawaxradio storage nawax-songs -p "songs/2024/"`
}
