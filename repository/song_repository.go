package repository

import (
	"context"
	"time"

	"NawaxRadio/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fetchLimit caps one catalog fetch.
const fetchLimit = 500

// SongRepository 歌曲数据访问接口
type SongRepository interface {
	FetchAll(ctx context.Context) ([]model.Song, error)
	GetByID(ctx context.Context, id string) (*model.Song, error)
	Save(ctx context.Context, song *model.Song) error
}

// prepareForSave assigns an id and creation time when missing.
func prepareForSave(song *model.Song) {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now().UTC()
	}
	if song.Language == "" {
		song.Language = "fa"
	}
}

// gormSongRepository GORM 实现
type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository 创建 GORM 歌曲仓库
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

// FetchAll 获取歌曲，最新的在前
func (r *gormSongRepository) FetchAll(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(fetchLimit).
		Find(&songs).Error
	if err != nil {
		return nil, err
	}
	return songs, nil
}

// GetByID 根据ID获取歌曲
func (r *gormSongRepository) GetByID(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&song).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &song, nil
}

// Save 创建或更新歌曲
func (r *gormSongRepository) Save(ctx context.Context, song *model.Song) error {
	prepareForSave(song)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(song).Error
}

// noopSongRepository is used when no catalog source is configured.
type noopSongRepository struct{}

// NewNoopSongRepository returns a repository with no songs that discards saves.
func NewNoopSongRepository() SongRepository {
	return noopSongRepository{}
}

func (noopSongRepository) FetchAll(ctx context.Context) ([]model.Song, error) {
	return nil, nil
}

func (noopSongRepository) GetByID(ctx context.Context, id string) (*model.Song, error) {
	return nil, nil
}

func (noopSongRepository) Save(ctx context.Context, song *model.Song) error {
	prepareForSave(song)
	return nil
}
