package server

import (
	"net/http"
	"strings"

	"NawaxRadio/model"

	"github.com/gorilla/mux"
)

// SongCatalog is the read side of the song catalog.
type SongCatalog interface {
	All() []model.Song
	GetByID(id string) (model.Song, bool)
}

// ChannelSongLister narrows songs to what a channel plays.
type ChannelSongLister interface {
	ChannelSongs(channelKey string, songs []model.Song) ([]model.Song, error)
}

// SongHandler serves read-only catalog listings.
type SongHandler struct {
	catalog  SongCatalog
	channels ChannelSongLister
}

// NewSongHandler creates the song listing handler.
func NewSongHandler(catalog SongCatalog, channels ChannelSongLister) *SongHandler {
	return &SongHandler{catalog: catalog, channels: channels}
}

// ListHandler returns the active songs in catalog order.
func (h *SongHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	all := h.catalog.All()
	out := make([]model.Song, 0, len(all))
	for _, s := range all {
		if s.IsActive {
			out = append(out, s)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetHandler returns one active song.
func (h *SongHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	song, ok := h.catalog.GetByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "song_not_found", Message: "song not found", SongID: id})
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// ByChannelHandler returns the songs a channel rotates through.
func (h *SongHandler) ByChannelHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.channels.ChannelSongs(mux.Vars(r)["slug"], h.catalog.All())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}
