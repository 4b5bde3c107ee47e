package repository

import (
	"context"
	"testing"
	"time"

	"NawaxRadio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&model.Song{}))
	return gdb
}

func TestGormSongRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSongRepository(newTestDB(t))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	bitrate := 320
	older := &model.Song{
		ID:          "old",
		Name:        "Gole Maryam",
		Singer:      "Singer A",
		Year:        1985,
		Type:        "pop",
		Mood:        model.StringList{"ghery", "blue"},
		AudioURL:    "gs://radio/old.mp3",
		IsActive:    false,
		CreatedAt:   base,
		BitrateKbps: &bitrate,
	}
	newer := &model.Song{
		Name:      "Bandari Mix",
		Type:      "bandari",
		AudioURL:  "https://cdn.example.com/b.mp3",
		IsActive:  true,
		CreatedAt: base.Add(time.Hour),
	}
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))
	assert.NotEmpty(t, newer.ID, "id is assigned on save")
	assert.Equal(t, "fa", newer.Language)

	songs, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, newer.ID, songs[0].ID, "newest first")
	assert.Equal(t, model.StringList{"ghery", "blue"}, songs[1].Mood)
	assert.False(t, songs[1].IsActive, "inactive flag survives a round trip")
	require.NotNil(t, songs[1].BitrateKbps)
	assert.Equal(t, 320, *songs[1].BitrateKbps)

	got, err := repo.GetByID(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Gole Maryam", got.Name)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// saving again updates in place
	older.Name = "Gole Maryam (Live)"
	require.NoError(t, repo.Save(ctx, older))
	got, err = repo.GetByID(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "Gole Maryam (Live)", got.Name)

	songs, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 2)
}

func TestNoopSongRepository(t *testing.T) {
	repo := NewNoopSongRepository()
	songs, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, songs)

	s := &model.Song{Name: "x"}
	require.NoError(t, repo.Save(context.Background(), s))
	assert.NotEmpty(t, s.ID)
}
