package server

import (
	"context"
	"net/http"
	"time"

	"NawaxRadio/core/radioerr"
	"NawaxRadio/model"

	"github.com/gorilla/mux"
)

// NowPlayer returns the current track of a channel.
type NowPlayer interface {
	GetOrSelect(ctx context.Context, channelKey string) (model.Song, error)
	Peek(channelKey string) (model.Song, bool)
}

// URLResolver turns a song locator into a fetchable URL.
type URLResolver interface {
	Resolve(ctx context.Context, locator string) (string, error)
}

// Streamer relays the current track of a channel. A returned error means
// nothing was written yet.
type Streamer interface {
	Stream(w http.ResponseWriter, r *http.Request, channelKey string) error
}

// ChannelLister exposes the channel directory.
type ChannelLister interface {
	All() []model.Channel
	Resolve(key string) (model.Channel, error)
}

// CatalogStats reports catalog sizes for the health endpoint.
type CatalogStats interface {
	Len() int
	ActiveCount() int
}

// RadioHandler serves the channel, now-playing and stream endpoints.
type RadioHandler struct {
	nowPlaying NowPlayer
	resolver   URLResolver
	streamer   Streamer
	channels   ChannelLister
	catalog    CatalogStats
	syncDone   <-chan struct{}
	now        func() time.Time
}

// NewRadioHandler creates the radio handler. syncDone may be nil.
func NewRadioHandler(np NowPlayer, res URLResolver, streamer Streamer, channels ChannelLister, catalog CatalogStats, syncDone <-chan struct{}) *RadioHandler {
	return &RadioHandler{
		nowPlaying: np,
		resolver:   res,
		streamer:   streamer,
		channels:   channels,
		catalog:    catalog,
		syncDone:   syncDone,
		now:        time.Now,
	}
}

// channelSummary is the public listing shape of a channel.
type channelSummary struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

func summarize(ch model.Channel) channelSummary {
	return channelSummary{
		Slug:        ch.Key,
		Name:        ch.Name,
		Title:       ch.Title,
		Description: ch.Description,
		Emoji:       ch.Emoji,
	}
}

// RootHandler answers the liveness probe on "/".
func (h *RadioHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Nawax Radio API is running...\n"))
}

// HealthHandler reports process and catalog state.
func (h *RadioHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	synced := false
	if h.syncDone != nil {
		select {
		case <-h.syncDone:
			synced = true
		default:
		}
	}

	resp := map[string]interface{}{
		"status":      "OK",
		"timeUtc":     h.now().UTC(),
		"catalogSync": synced,
	}
	if h.catalog != nil {
		resp["songs"] = h.catalog.Len()
		resp["playable"] = h.catalog.ActiveCount()
	}
	if h.channels != nil {
		resp["channels"] = len(h.channels.All())
	}
	resp["nowPlaying"] = h.playing()
	writeJSON(w, http.StatusOK, resp)
}

// playing maps each channel with a current track to its song id. Nothing is
// selected here.
func (h *RadioHandler) playing() map[string]string {
	keys := []string{model.MainChannelKey}
	if h.channels != nil {
		for _, ch := range h.channels.All() {
			if ch.Key != model.MainChannelKey {
				keys = append(keys, ch.Key)
			}
		}
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if song, ok := h.nowPlaying.Peek(key); ok {
			out[key] = song.ID
		}
	}
	return out
}

// ListChannelsHandler lists the channels in display order.
func (h *RadioHandler) ListChannelsHandler(w http.ResponseWriter, r *http.Request) {
	all := h.channels.All()
	out := make([]channelSummary, 0, len(all))
	for _, ch := range all {
		out = append(out, summarize(ch))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetChannelHandler returns one channel including its filter.
func (h *RadioHandler) GetChannelHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	ch, err := h.channels.Resolve(key)
	if err != nil {
		writeError(w, r, radioerr.Wrap(radioerr.ChannelNotFound, "unknown channel", err).WithChannel(model.NormalizeChannelKey(key)))
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// NowHandler returns the current track of a channel with a fetchable URL.
func (h *RadioHandler) NowHandler(w http.ResponseWriter, r *http.Request) {
	key := model.NormalizeChannelKey(mux.Vars(r)["channelKey"])

	payload, err := h.nowPayload(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, payload)
}

// nowPayload looks up the channel's current track and resolves its locator.
func (h *RadioHandler) nowPayload(ctx context.Context, key string) (model.NowPlaying, error) {
	song, err := h.nowPlaying.GetOrSelect(ctx, key)
	if err != nil {
		if re, ok := radioerr.As(err); ok && re.Channel == "" {
			return model.NowPlaying{}, re.WithChannel(key)
		}
		return model.NowPlaying{}, err
	}

	audioURL, err := h.resolver.Resolve(ctx, song.AudioURL)
	if err != nil {
		re, ok := radioerr.As(err)
		if !ok {
			re = radioerr.Wrap(radioerr.LocatorDecodeFailed, "resolve locator", err)
		}
		return model.NowPlaying{}, re.WithChannel(key).WithSong(song.ID)
	}

	return model.NowPlaying{
		AudioURL: audioURL,
		SongID:   song.ID,
		Name:     song.Name,
		Singer:   song.Singer,
		Channel:  key,
		IsJingle: song.IsJingle,
	}, nil
}

// StreamHandler relays the channel's current track.
func (h *RadioHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["channelKey"]
	if err := h.streamer.Stream(w, r, key); err != nil {
		writeError(w, r, err)
	}
}
