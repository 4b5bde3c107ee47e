package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.HistorySize)
	assert.Equal(t, 5, cfg.JingleCadence)
	assert.Equal(t, 120*time.Second, cfg.NowPlayingFloor)
	assert.Equal(t, 200, cfg.LatestCap)
	assert.Equal(t, 2*time.Hour, cfg.SignedURLTTL)
	assert.Equal(t, "range", cfg.UpstreamHeadMode)
	assert.Equal(t, "none", cfg.CatalogSource)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HISTORY_SIZE", "2")
	t.Setenv("JINGLE_CADENCE", "0")
	t.Setenv("NOW_PLAYING_FLOOR", "45")
	t.Setenv("SIGNED_URL_TTL", "30m")
	t.Setenv("PRIVATE_BUCKETS", " nawax-audio , ,other ")
	t.Setenv("UPSTREAM_HEAD_MODE", "HEAD")
	t.Setenv("REDIS_HOST", "redis.local")
	t.Setenv("MINIO_ACCESS_KEY", "ak")
	t.Setenv("MINIO_SECRET_KEY", "sk")
	t.Setenv("MINIO_USE_SSL", "not-a-bool")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2, cfg.HistorySize)
	assert.Equal(t, 5, cfg.JingleCadence, "cadence below 1 falls back to the default")
	assert.Equal(t, 45*time.Second, cfg.NowPlayingFloor)
	assert.Equal(t, 30*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, []string{"nawax-audio", "other"}, cfg.PrivateBuckets)
	assert.Equal(t, "head", cfg.UpstreamHeadMode)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.SignerEnabled())
	assert.True(t, cfg.MinioUseSSL)
}

func TestHistorySizeBelowOneUsesDefault(t *testing.T) {
	for _, v := range []string{"0", "-3"} {
		t.Setenv("HISTORY_SIZE", v)
		assert.Equal(t, 5, Load().HistorySize, "HISTORY_SIZE=%s", v)
	}
}
