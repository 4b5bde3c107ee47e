// Package channel resolves channel keys to their selection filters.
package channel

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"NawaxRadio/model"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for unknown channel keys.
var ErrNotFound = errors.New("channel not found")

// Directory is the concurrency-safe channel lookup table.
type Directory struct {
	mu       sync.RWMutex
	channels map[string]model.Channel
}

// NewDirectory builds a directory from channels. Keys are normalized; later
// duplicates win.
func NewDirectory(channels []model.Channel) *Directory {
	d := &Directory{}
	d.Set(channels)
	return d
}

// Set replaces the directory content.
func (d *Directory) Set(channels []model.Channel) {
	m := make(map[string]model.Channel, len(channels))
	for _, ch := range channels {
		ch.Key = model.NormalizeChannelKey(ch.Key)
		if ch.Key == "" {
			continue
		}
		m[ch.Key] = ch
	}

	d.mu.Lock()
	d.channels = m
	d.mu.Unlock()
}

// Resolve looks up a channel by key, case-insensitively.
func (d *Directory) Resolve(key string) (model.Channel, error) {
	key = model.NormalizeChannelKey(key)

	d.mu.RLock()
	ch, ok := d.channels[key]
	d.mu.RUnlock()

	if !ok {
		return model.Channel{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return ch, nil
}

// All returns the channels ordered by SortOrder then key.
func (d *Directory) All() []model.Channel {
	d.mu.RLock()
	out := make([]model.Channel, 0, len(d.channels))
	for _, ch := range d.channels {
		out = append(out, ch)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Len returns the number of channels.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels)
}

type channelFile struct {
	Channels []model.Channel `yaml:"channels"`
}

// LoadFile reads a YAML channel file.
func LoadFile(path string) ([]model.Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel file: %w", err)
	}

	var f channelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse channel file: %w", err)
	}
	if len(f.Channels) == 0 {
		return nil, fmt.Errorf("channel file %s defines no channels", path)
	}

	seen := make(map[string]bool, len(f.Channels))
	for i, ch := range f.Channels {
		key := model.NormalizeChannelKey(ch.Key)
		if key == "" {
			return nil, fmt.Errorf("channel #%d has an empty key", i+1)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate channel key %q", key)
		}
		seen[key] = true
	}
	return f.Channels, nil
}

func intPtr(v int) *int { return &v }

// Defaults returns the built-in channel set.
func Defaults() []model.Channel {
	return []model.Channel{
		{ID: "1", Key: "main", Title: "Main Radio", Name: "Main Radio", Description: "ترکیب هیت‌های فارسی برای همه حال‌و‌هواها", Emoji: "📻", SortOrder: 1},
		{ID: "2", Key: "ghery", Title: "Ghery", Name: "Ghery", Description: "آهنگ‌های عشقولانه و گریه‌ای", Emoji: "💔", SortOrder: 2,
			Filter: model.ChannelFilter{Moods: []string{"ghery", "blue", "dep"}}},
		{ID: "3", Key: "party", Title: "Party", Name: "Party", Description: "آهنگ‌های شاد و انرژی‌دار", Emoji: "🎉", SortOrder: 3,
			Filter: model.ChannelFilter{Moods: []string{"party"}}},
		{ID: "4", Key: "genz", Title: "Gen Z", Name: "Gen Z", Description: "ترک‌های مدرن نسل Z", Emoji: "🧬", SortOrder: 4,
			Filter: model.ChannelFilter{Moods: []string{"genz"}, Types: []string{"trap", "modern"}}},
		{ID: "5", Key: "rap", Title: "Rap / HipHop", Name: "Rap / HipHop", Description: "رپ و هیپ‌هاپ فارسی", Emoji: "🎤", SortOrder: 5,
			Filter: model.ChannelFilter{Types: []string{"rap", "hiphop"}}},
		{ID: "6", Key: "bandari", Title: "Bandari", Name: "Bandari", Description: "جنوبی و بندری", Emoji: "🌊", SortOrder: 6,
			Filter: model.ChannelFilter{Types: []string{"bandari", "jonobi"}}},
		{ID: "7", Key: "dep", Title: "Dep Mood", Name: "Dep Mood", Description: "مود آبی و دپ", Emoji: "💙", SortOrder: 7,
			Filter: model.ChannelFilter{Moods: []string{"dep", "blue"}}},
		{ID: "8", Key: "energy", Title: "Energy", Name: "Energy", Description: "انرژی و ورزش", Emoji: "⚡", SortOrder: 8,
			Filter: model.ChannelFilter{Moods: []string{"energy"}}},
		{ID: "9", Key: "latest", Title: "Latest Hits", Name: "Latest Hits", Description: "جدیدترین آهنگ‌ها", Emoji: "🆕", SortOrder: 9,
			Filter: model.ChannelFilter{Latest: true}},
		{ID: "10", Key: "60s", Title: "60s", Name: "60s", Description: "نوستالژی و خاطره‌بازی", Emoji: "📼", SortOrder: 10,
			Filter: model.ChannelFilter{YearFrom: intPtr(1981), YearTo: intPtr(1990)}},
	}
}
