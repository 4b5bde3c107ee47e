package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"NawaxRadio/model"
)

// ImportSongs reads a JSON array of songs and saves each one. Songs that
// already exist by id are updated. It stops at the first failure and
// returns the songs saved so far.
func ImportSongs(ctx context.Context, repo SongRepository, r io.Reader) ([]model.Song, error) {
	var songs []model.Song
	if err := json.NewDecoder(r).Decode(&songs); err != nil {
		return nil, fmt.Errorf("decode songs: %w", err)
	}

	saved := make([]model.Song, 0, len(songs))
	for i := range songs {
		song := songs[i]
		if strings.TrimSpace(song.AudioURL) == "" {
			return saved, fmt.Errorf("song %d (%q) has no audioUrl", i, song.Name)
		}
		if err := repo.Save(ctx, &song); err != nil {
			return saved, fmt.Errorf("save song %d (%q): %w", i, song.Name, err)
		}
		saved = append(saved, song)
	}
	return saved, nil
}
