package model

import "strings"

// ChannelFilter narrows the catalog for a channel. Empty lists do not restrict.
type ChannelFilter struct {
	Types    []string `json:"type,omitempty" yaml:"type,omitempty"`
	Moods    []string `json:"mood,omitempty" yaml:"mood,omitempty"`
	YearFrom *int     `json:"yearFrom,omitempty" yaml:"yearFrom,omitempty"`
	YearTo   *int     `json:"yearTo,omitempty" yaml:"yearTo,omitempty"`
	Latest   bool     `json:"latest" yaml:"latest"` // order by recency instead of tag filtering
}

// HasYearRange reports whether either bound is set.
func (f ChannelFilter) HasYearRange() bool {
	return f.YearFrom != nil || f.YearTo != nil
}

// Matches applies the type, mood and year predicates to a song.
// A song with an unknown year never matches a year range.
func (f ChannelFilter) Matches(s *Song) bool {
	if len(f.Types) > 0 && !s.HasType(f.Types) {
		return false
	}
	if len(f.Moods) > 0 && !s.HasMood(f.Moods) {
		return false
	}
	if f.HasYearRange() {
		if s.Year <= 0 {
			return false
		}
		if f.YearFrom != nil && s.Year < *f.YearFrom {
			return false
		}
		if f.YearTo != nil && s.Year > *f.YearTo {
			return false
		}
	}
	return true
}

// Channel is a named content bucket with its own selection filter.
type Channel struct {
	ID          string        `json:"id" yaml:"id"`
	Key         string        `json:"key" yaml:"key"` // route slug, English, stable
	Title       string        `json:"title" yaml:"title"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Emoji       string        `json:"emoji" yaml:"emoji"`
	SortOrder   int           `json:"sortOrder" yaml:"sortOrder"`
	Filter      ChannelFilter `json:"filter" yaml:"filter"`
	MaxSongs    int           `json:"maxSongs,omitempty" yaml:"maxSongs,omitempty"`
}

// MainChannelKey selects from the whole active catalog without a directory lookup.
const MainChannelKey = "main"

// NormalizeChannelKey trims and case-folds a channel key.
func NormalizeChannelKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// NowPlaying is the client payload describing the current track of a channel.
type NowPlaying struct {
	AudioURL string `json:"audioUrl"`
	SongID   string `json:"songId"`
	Name     string `json:"name"`
	Singer   string `json:"singer"`
	Channel  string `json:"channel"`
	IsJingle bool   `json:"isJingle"`
}
