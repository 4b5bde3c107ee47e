package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	AudioObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo describes one stored object and the locator tracks can use for it.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
	Locator      string // gs://bucket/key
}

// ListAudioObjects lists objects under prefix. With audioOnly set, objects
// that do not look like audio are skipped but still counted in the stats.
func (s *MinioSigner) ListAudioObjects(ctx context.Context, bucket, prefix string, audioOnly bool) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}

		contentType := object.ContentType
		if contentType == "" {
			contentType = inferContentType(object.Key)
		}
		isAudio := strings.HasPrefix(contentType, "audio")
		if isAudio {
			stats.AudioObjects++
		}
		if audioOnly && !isAudio {
			continue
		}

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  contentType,
			ETag:         object.ETag,
			Locator:      "gs://" + bucket + "/" + object.Key,
		})
	}
	return objects, stats, nil
}

// PrintObjects writes a listing in the same layout the CLI uses.
func PrintObjects(w io.Writer, bucket, prefix string, objects []ObjectInfo, stats *BucketStats) {
	fmt.Fprintf(w, "\n📊 存储桶状态报告: %s\n", bucket)
	fmt.Fprintf(w, "🔍 前缀过滤: %s\n", prefix)
	fmt.Fprintf(w, "📝 总文件数: %d (audio: %d)\n", stats.TotalObjects, stats.AudioObjects)
	fmt.Fprintf(w, "💾 总存储大小: %s\n", formatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "🕒 最后更新时间: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "\n📋 文件列表:\n")
	for _, obj := range objects {
		fmt.Fprintf(w, "  ├─ %s\n", obj.Key)
		fmt.Fprintf(w, "  │  ├─ 大小: %s\n", formatSize(obj.Size))
		fmt.Fprintf(w, "  │  ├─ 类型: %s\n", obj.ContentType)
		fmt.Fprintf(w, "  │  └─ locator: %s\n", obj.Locator)
	}
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// inferContentType 从文件名推断内容类型
func inferContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".jpg", ".jpeg", ".png", ".webp":
		return "image"
	default:
		return "other"
	}
}
