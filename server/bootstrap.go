package server

import (
	"context"
	"fmt"

	"NawaxRadio/cache"
	"NawaxRadio/config"
	"NawaxRadio/core/catalog"
	"NawaxRadio/core/channel"
	"NawaxRadio/core/resolver"
	"NawaxRadio/db"
	"NawaxRadio/logger"
	"NawaxRadio/repository"
	"NawaxRadio/storage"
)

// InitLogging configures the process logger from cfg.
func InitLogging(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
}

// NewCatalogSource opens the configured song source. The returned func
// releases its connections.
func NewCatalogSource(ctx context.Context, cfg *config.Config) (repository.SongRepository, func(), error) {
	switch cfg.CatalogSource {
	case "mysql":
		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrate(gdb); err != nil {
			db.CloseGormDB()
			return nil, nil, err
		}
		return repository.NewGormSongRepository(gdb), func() { db.CloseGormDB() }, nil
	case "firestore":
		client, err := repository.NewFirestoreHTTPClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewFirestoreSongRepository(client, "", cfg.FirestoreProjectID, cfg.FirestoreSongsCollection)
		return repo, func() {}, nil
	case "", "none":
		logger.Warn("no catalog source configured, the catalog starts empty")
		return repository.NewNoopSongRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}

// NewSnapshotStore connects the Redis catalog snapshot when Redis is
// configured. It returns nil when the snapshot is unavailable.
func NewSnapshotStore(cfg *config.Config) (catalog.SnapshotStore, func()) {
	if !cfg.RedisEnabled() {
		return nil, func() {}
	}
	client, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Warn("redis unavailable, catalog snapshot disabled", logger.ErrorField(err))
		return nil, func() {}
	}
	return cache.NewCatalogSnapshot(client, cfg.CatalogSnapshotTTL), func() { db.CloseRedis() }
}

// NewResolver builds the URL resolver. Without signer credentials storage
// references fail with SigningFailed and direct URLs still work.
func NewResolver(cfg *config.Config) *resolver.Resolver {
	var signer resolver.StorageSigner
	if cfg.SignerEnabled() {
		s, err := storage.NewMinioSigner(cfg)
		if err != nil {
			logger.Error("failed to create storage signer", logger.ErrorField(err))
		} else {
			signer = s
		}
	} else {
		logger.Warn("storage signer credentials missing, storage references cannot be signed")
	}
	return resolver.New(signer, cfg.SignedURLTTL, cfg.PrivateBuckets)
}

// NewChannelDirectory loads the channel set, from CHANNELS_FILE when set.
func NewChannelDirectory(cfg *config.Config) *channel.Directory {
	dir := channel.NewDirectory(channel.Defaults())
	if cfg.ChannelsFile == "" {
		return dir
	}
	channels, err := channel.LoadFile(cfg.ChannelsFile)
	if err != nil {
		logger.Warn("channel file rejected, using built-in channels",
			logger.String("path", cfg.ChannelsFile),
			logger.ErrorField(err))
		return dir
	}
	dir.Set(channels)
	logger.Info("channels loaded", logger.String("path", cfg.ChannelsFile), logger.Int("channels", dir.Len()))
	return dir
}
