package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NawaxRadio/logger"
	"NawaxRadio/metrics"
	"NawaxRadio/model"
)

// Source fetches the authoritative song list (document store, database).
type Source interface {
	FetchAll(ctx context.Context) ([]model.Song, error)
}

// SnapshotStore persists a copy of the catalog so restarts can warm up quickly.
type SnapshotStore interface {
	Load(ctx context.Context) ([]model.Song, error)
	Store(ctx context.Context, songs []model.Song) error
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Active   int `json:"active"`
}

// Syncer copies songs from a Source into the Catalog.
type Syncer struct {
	catalog  *Catalog
	source   Source
	snapshot SnapshotStore
	timeout  time.Duration

	mu   sync.Mutex // serializes sync runs
	done chan struct{}
}

// NewSyncer creates a syncer. snapshot may be nil.
func NewSyncer(c *Catalog, source Source, snapshot SnapshotStore) *Syncer {
	return &Syncer{
		catalog:  c,
		source:   source,
		snapshot: snapshot,
		timeout:  2 * time.Minute,
		done:     make(chan struct{}),
	}
}

// Start runs the startup sync once in the background. Requests are served
// against whatever the catalog holds meanwhile, possibly nothing.
func (s *Syncer) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		s.warmFromSnapshot(ctx)

		logger.Info("startup catalog sync started")
		res, err := s.SyncNow(ctx)
		if err != nil {
			logger.Error("startup catalog sync failed", logger.ErrorField(err))
			return
		}
		logger.Info("startup catalog sync done",
			logger.Int("fetched", res.Fetched),
			logger.Int("upserted", res.Upserted),
			logger.Int("active", res.Active))
	}()
}

// Done is closed once the startup sync finished, successfully or not.
func (s *Syncer) Done() <-chan struct{} {
	return s.done
}

// SyncNow fetches from the source and makes the result the catalog content.
// Songs missing from the source are dropped from the catalog and the snapshot.
// An empty fetch leaves both untouched.
func (s *Syncer) SyncNow(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fetched, err := s.source.FetchAll(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch songs: %w", err)
	}
	if len(fetched) == 0 {
		logger.Warn("catalog source returned no songs, keeping current catalog",
			logger.Int("songs", s.catalog.Len()))
		return SyncResult{Active: s.catalog.ActiveCount()}, nil
	}

	stored := s.catalog.Replace(fetched)
	res := SyncResult{
		Fetched:  len(fetched),
		Upserted: len(stored),
		Active:   s.catalog.ActiveCount(),
	}
	metrics.CatalogSongs.Set(float64(res.Active))

	if s.snapshot != nil {
		if err := s.snapshot.Store(ctx, stored); err != nil {
			logger.Warn("failed to store catalog snapshot", logger.ErrorField(err))
		}
	}
	return res, nil
}

func (s *Syncer) warmFromSnapshot(ctx context.Context) {
	if s.snapshot == nil || s.catalog.Len() > 0 {
		return
	}
	songs, err := s.snapshot.Load(ctx)
	if err != nil {
		logger.Warn("failed to load catalog snapshot", logger.ErrorField(err))
		return
	}
	if len(songs) == 0 {
		return
	}
	s.catalog.Upsert(songs...)
	metrics.CatalogSongs.Set(float64(s.catalog.ActiveCount()))
	logger.Info("catalog warmed from snapshot", logger.Int("songs", len(songs)))
}
