package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"NawaxRadio/model"

	"github.com/go-redis/redis/v8"
)

const (
	catalogSnapshotKey = "nawaxradio:catalog:snapshot"      // String: []Song JSON
	catalogMetaKey     = "nawaxradio:catalog:snapshot:meta" // Hash: songs, updated_at
	defaultSnapshotTTL = 24 * time.Hour
)

// SnapshotInfo describes the stored snapshot.
type SnapshotInfo struct {
	Songs     int
	UpdatedAt time.Time
	TTL       time.Duration
}

// CatalogSnapshot 目录快照缓存，进程重启后用于预热
type CatalogSnapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogSnapshot 创建目录快照缓存
func NewCatalogSnapshot(client *redis.Client, ttl time.Duration) *CatalogSnapshot {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &CatalogSnapshot{client: client, ttl: ttl}
}

// Store 保存目录快照
func (c *CatalogSnapshot) Store(ctx context.Context, songs []model.Song) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(songs)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog snapshot: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, catalogSnapshotKey, data, c.ttl)
	pipe.HSet(ctx, catalogMetaKey, map[string]interface{}{
		"songs":      len(songs),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, catalogMetaKey, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Load 读取目录快照，不存在时返回 nil, nil
func (c *CatalogSnapshot) Load(ctx context.Context) ([]model.Song, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, catalogSnapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var songs []model.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog snapshot: %w", err)
	}
	return songs, nil
}

// Info 返回快照元数据，不存在时返回 nil, nil
func (c *CatalogSnapshot) Info(ctx context.Context) (*SnapshotInfo, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	result, err := c.client.HGetAll(ctx, catalogMetaKey).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	info := &SnapshotInfo{}
	if v, ok := result["songs"]; ok {
		info.Songs, _ = strconv.Atoi(v)
	}
	if v, ok := result["updated_at"]; ok {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.UpdatedAt = time.Unix(unix, 0)
		}
	}
	if ttl, err := c.client.TTL(ctx, catalogSnapshotKey).Result(); err == nil && ttl > 0 {
		info.TTL = ttl
	}
	return info, nil
}

// Clear 删除目录快照
func (c *CatalogSnapshot) Clear(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return c.client.Del(ctx, catalogSnapshotKey, catalogMetaKey).Err()
}
