// Package radio picks what each channel plays and remembers it for the
// length of the track.
package radio

import (
	"math/rand"
	"strings"

	"NawaxRadio/core/catalog"
	"NawaxRadio/core/radioerr"
	"NawaxRadio/logger"
	"NawaxRadio/metrics"
	"NawaxRadio/model"
)

const (
	// DefaultJingleCadence makes every fifth pick of a channel a jingle.
	DefaultJingleCadence = 5
	// DefaultLatestCap bounds the candidate set of "latest" channels.
	DefaultLatestCap = 200
)

// Directory resolves a channel key to its configuration.
type Directory interface {
	Resolve(key string) (model.Channel, error)
}

// Selector picks the next track for a channel.
type Selector struct {
	directory Directory
	state     *StateStore
	cadence   int64
	latestCap int
	intn      func(n int) int
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithJingleCadence sets how often a jingle is picked. Values below 1 keep the default.
func WithJingleCadence(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.cadence = int64(n)
		}
	}
}

// WithLatestCap sets the candidate cap for channels ordered by recency.
func WithLatestCap(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.latestCap = n
		}
	}
}

// WithRandom replaces the random index source, mainly for tests.
func WithRandom(intn func(n int) int) SelectorOption {
	return func(s *Selector) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// NewSelector creates a selector over the given directory and state store.
func NewSelector(directory Directory, state *StateStore, opts ...SelectorOption) *Selector {
	s := &Selector{
		directory: directory,
		state:     state,
		cadence:   DefaultJingleCadence,
		latestCap: DefaultLatestCap,
		intn:      rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select picks the next track for channelKey out of songs and records it in
// the channel's history. songs is not modified.
func (s *Selector) Select(channelKey string, songs []model.Song) (model.Song, error) {
	key := model.NormalizeChannelKey(channelKey)
	song, err := s.pick(key, songs)
	if err != nil {
		metrics.SelectionFailures.WithLabelValues(radioerr.KindOf(err).Code()).Inc()
		return model.Song{}, err
	}
	metrics.ObserveSelection(key, song.IsJingle)
	return song, nil
}

func (s *Selector) pick(key string, songs []model.Song) (model.Song, error) {
	if key == "" {
		return model.Song{}, radioerr.New(radioerr.InvalidChannelKey, "channel key is empty")
	}

	ch, err := s.channel(key)
	if err != nil {
		return model.Song{}, err
	}

	play := s.state.NextPlay(key)
	jingle := play%s.cadence == 0

	candidates := s.candidates(ch, songs, jingle)
	if len(candidates) == 0 && jingle {
		candidates = s.candidates(ch, songs, false)
	}
	if len(candidates) == 0 && ch != nil {
		logger.Debug("channel filter matched nothing, using whole catalog",
			logger.String("channel", key))
		candidates = s.candidates(nil, songs, false)
	}
	if len(candidates) == 0 {
		return model.Song{}, radioerr.New(radioerr.NoPlayableContent, "no playable content").WithChannel(key)
	}

	candidates = s.withoutRecent(key, candidates)
	picked := candidates[s.intn(len(candidates))]
	s.state.Record(key, locator(&picked))
	return picked, nil
}

// ChannelSongs lists the playable non-jingle songs channelKey draws from.
// The channel's rotation state is left alone.
func (s *Selector) ChannelSongs(channelKey string, songs []model.Song) ([]model.Song, error) {
	key := model.NormalizeChannelKey(channelKey)
	if key == "" {
		return nil, radioerr.New(radioerr.InvalidChannelKey, "channel key is empty")
	}
	ch, err := s.channel(key)
	if err != nil {
		return nil, err
	}
	return s.candidates(ch, songs, false), nil
}

// channel resolves key through the directory. The main channel has no
// filter and resolves to nil.
func (s *Selector) channel(key string) (*model.Channel, error) {
	if key == model.MainChannelKey {
		return nil, nil
	}
	resolved, err := s.directory.Resolve(key)
	if err != nil {
		return nil, radioerr.Wrap(radioerr.ChannelNotFound, "unknown channel", err).WithChannel(key)
	}
	return &resolved, nil
}

// candidates returns the playable songs with the given jingle flag that pass
// ch's filter. A nil channel means no filter.
func (s *Selector) candidates(ch *model.Channel, songs []model.Song, jingle bool) []model.Song {
	out := make([]model.Song, 0, len(songs))
	for i := range songs {
		song := &songs[i]
		if !song.Playable() || song.IsJingle != jingle {
			continue
		}
		if ch != nil && !ch.Filter.Latest && !ch.Filter.Matches(song) {
			continue
		}
		out = append(out, *song)
	}
	if ch == nil {
		return out
	}

	limit := ch.MaxSongs
	if ch.Filter.Latest && (limit <= 0 || limit > s.latestCap) {
		limit = s.latestCap
	}
	if ch.Filter.Latest || (limit > 0 && len(out) > limit) {
		out = catalog.Newest(out, limit)
	}
	return out
}

// withoutRecent drops songs whose locator is in the channel's history unless
// that would leave nothing.
func (s *Selector) withoutRecent(key string, candidates []model.Song) []model.Song {
	history := s.state.History(key)
	if len(history) == 0 {
		return candidates
	}
	recent := make(map[string]struct{}, len(history))
	for _, l := range history {
		recent[l] = struct{}{}
	}

	fresh := make([]model.Song, 0, len(candidates))
	for _, song := range candidates {
		if _, seen := recent[locator(&song)]; !seen {
			fresh = append(fresh, song)
		}
	}
	if len(fresh) == 0 {
		return candidates
	}
	return fresh
}

func locator(s *model.Song) string {
	return strings.TrimSpace(s.AudioURL)
}
