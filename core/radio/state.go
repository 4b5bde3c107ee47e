package radio

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultHistorySize is how many recent locators a channel remembers.
const DefaultHistorySize = 5

type channelState struct {
	plays atomic.Int64

	mu      sync.Mutex
	history []string // most recent first
}

// StateStore keeps the per-channel play counter and play history for the
// lifetime of the process.
type StateStore struct {
	channels    *xsync.MapOf[string, *channelState]
	historySize int
}

// NewStateStore creates a store remembering historySize locators per channel.
func NewStateStore(historySize int) *StateStore {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	return &StateStore{
		channels:    xsync.NewMapOf[string, *channelState](),
		historySize: historySize,
	}
}

func (s *StateStore) channel(key string) *channelState {
	st, _ := s.channels.LoadOrCompute(key, func() *channelState {
		return &channelState{}
	})
	return st
}

// NextPlay increments and returns the channel's play counter.
func (s *StateStore) NextPlay(key string) int64 {
	return s.channel(key).plays.Add(1)
}

// Plays returns the current counter value without changing it.
func (s *StateStore) Plays(key string) int64 {
	if st, ok := s.channels.Load(key); ok {
		return st.plays.Load()
	}
	return 0
}

// History returns a copy of the channel's recent locators, most recent first.
func (s *StateStore) History(key string) []string {
	st, ok := s.channels.Load(key)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.history))
	copy(out, st.history)
	return out
}

// Record pushes locator to the front of the channel's history.
func (s *StateStore) Record(key, locator string) {
	st := s.channel(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	history := make([]string, 0, s.historySize)
	history = append(history, locator)
	for _, l := range st.history {
		if len(history) == s.historySize {
			break
		}
		history = append(history, l)
	}
	st.history = history
}

// HistorySize returns the configured bound.
func (s *StateStore) HistorySize() int {
	return s.historySize
}
