// Package catalog holds the in-process song catalog used for selection.
package catalog

import (
	"sort"
	"strings"
	"sync"
	"time"

	"NawaxRadio/model"

	"github.com/google/uuid"
)

// Catalog is a concurrency-safe in-memory song store keyed by song id.
type Catalog struct {
	mu    sync.RWMutex
	songs map[string]model.Song
	order []string // insertion order, keeps snapshots stable
	now   func() time.Time
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		songs: make(map[string]model.Song),
		now:   time.Now,
	}
}

// Upsert inserts or replaces songs by id. Songs without an id get a random one,
// songs without a creation time get the current time. It returns the stored copies.
func (c *Catalog) Upsert(songs ...model.Song) []model.Song {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsertLocked(songs)
}

// Replace swaps the whole catalog content in one step. Readers see either the
// old or the new content, never an empty catalog in between.
func (c *Catalog) Replace(songs []model.Song) []model.Song {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.songs = make(map[string]model.Song, len(songs))
	c.order = make([]string, 0, len(songs))
	return c.upsertLocked(songs)
}

func (c *Catalog) upsertLocked(songs []model.Song) []model.Song {
	stored := make([]model.Song, 0, len(songs))
	for _, s := range songs {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = c.now().UTC()
		}
		if _, exists := c.songs[s.ID]; !exists {
			c.order = append(c.order, s.ID)
		}
		c.songs[s.ID] = s
		stored = append(stored, s)
	}
	return stored
}

// GetByID returns an active song by id.
func (c *Catalog) GetByID(id string) (model.Song, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.songs[strings.TrimSpace(id)]
	if !ok || !s.IsActive {
		return model.Song{}, false
	}
	return s, true
}

// All returns every song, active or not, in insertion order.
func (c *Catalog) All() []model.Song {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Song, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.songs[id])
	}
	return out
}

// ActiveTracks returns a snapshot of the playable songs: active with a non-empty locator.
func (c *Catalog) ActiveTracks() []model.Song {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Song, 0, len(c.order))
	for _, id := range c.order {
		s := c.songs[id]
		if s.Playable() {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of stored songs.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.songs)
}

// ActiveCount returns the number of playable songs.
func (c *Catalog) ActiveCount() int {
	return len(c.ActiveTracks())
}

// Newest returns up to limit songs ordered by creation time, newest first.
// A limit of zero or less keeps all of them.
func Newest(songs []model.Song, limit int) []model.Song {
	out := make([]model.Song, len(songs))
	copy(out, songs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
