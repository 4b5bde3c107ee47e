package radio

import (
	"context"
	"time"

	"NawaxRadio/core/radioerr"
	"NawaxRadio/logger"
	"NawaxRadio/metrics"
	"NawaxRadio/model"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultNowPlayingFloor is the shortest time a pick stays current.
const DefaultNowPlayingFloor = 120 * time.Second

// Catalog provides the active tracks selection runs against.
type Catalog interface {
	ActiveTracks() []model.Song
	GetByID(id string) (model.Song, bool)
}

type nowPlayingEntry struct {
	song      model.Song
	expiresAt time.Time
}

// NowPlaying remembers each channel's current track until it would have
// finished playing, so metadata and stream requests agree on the song.
type NowPlaying struct {
	selector *Selector
	catalog  Catalog
	floor    time.Duration

	entries *xsync.MapOf[string, nowPlayingEntry]
	group   singleflight.Group
	now     func() time.Time
}

// NewNowPlaying creates the cache. A floor of zero or less uses DefaultNowPlayingFloor.
func NewNowPlaying(selector *Selector, catalog Catalog, floor time.Duration) *NowPlaying {
	if floor <= 0 {
		floor = DefaultNowPlayingFloor
	}
	return &NowPlaying{
		selector: selector,
		catalog:  catalog,
		floor:    floor,
		entries:  xsync.NewMapOf[string, nowPlayingEntry](),
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (n *NowPlaying) SetClock(now func() time.Time) {
	n.now = now
}

// GetOrSelect returns the channel's current track, picking a new one when
// there is none or it expired. Failures are not remembered.
func (n *NowPlaying) GetOrSelect(ctx context.Context, channelKey string) (model.Song, error) {
	key := model.NormalizeChannelKey(channelKey)
	if key == "" {
		metrics.NowPlayingLookups.WithLabelValues("error").Inc()
		return model.Song{}, radioerr.New(radioerr.InvalidChannelKey, "channel key is empty")
	}

	if song, ok := n.current(key); ok {
		metrics.NowPlayingLookups.WithLabelValues("hit").Inc()
		return song, nil
	}

	ch := n.group.DoChan(key, func() (interface{}, error) {
		// another flight may have stored an entry while we waited
		if song, ok := n.current(key); ok {
			return song, nil
		}
		song, err := n.selector.Select(key, n.catalog.ActiveTracks())
		if err != nil {
			return nil, err
		}
		n.entries.Store(key, nowPlayingEntry{
			song:      song,
			expiresAt: n.now().Add(n.ttl(&song)),
		})
		logger.Debug("now playing changed",
			logger.String("channel", key),
			logger.String("songId", song.ID),
			logger.Bool("jingle", song.IsJingle))
		return song, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			metrics.NowPlayingLookups.WithLabelValues("error").Inc()
			return model.Song{}, res.Err
		}
		metrics.NowPlayingLookups.WithLabelValues("miss").Inc()
		return res.Val.(model.Song), nil
	case <-ctx.Done():
		return model.Song{}, radioerr.Wrap(radioerr.ClientCancelled, "request cancelled", ctx.Err()).WithChannel(key)
	}
}

// Peek returns the channel's current track without selecting.
func (n *NowPlaying) Peek(channelKey string) (model.Song, bool) {
	return n.current(model.NormalizeChannelKey(channelKey))
}

// current returns the unexpired entry of key. An entry whose song left the
// catalog or was deactivated is dropped.
func (n *NowPlaying) current(key string) (model.Song, bool) {
	entry, ok := n.entries.Load(key)
	if !ok || !n.now().Before(entry.expiresAt) {
		return model.Song{}, false
	}
	if _, live := n.catalog.GetByID(entry.song.ID); !live {
		n.drop(key, entry.song.ID)
		logger.Debug("now playing song left the catalog",
			logger.String("channel", key),
			logger.String("songId", entry.song.ID))
		return model.Song{}, false
	}
	return entry.song, true
}

// drop deletes key's entry if it still holds songID.
func (n *NowPlaying) drop(key, songID string) {
	n.entries.Compute(key, func(old nowPlayingEntry, loaded bool) (nowPlayingEntry, bool) {
		return old, !loaded || old.song.ID == songID
	})
}

func (n *NowPlaying) ttl(song *model.Song) time.Duration {
	if d := song.Duration(); d > n.floor {
		return d
	}
	return n.floor
}
