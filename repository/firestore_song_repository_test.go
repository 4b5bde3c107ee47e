package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NawaxRadio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runQueryResponse = `[
  {"document": {
    "name": "projects/p1/databases/(default)/documents/songs/doc-1",
    "fields": {
      "name": {"stringValue": "Baroon"},
      "singer": {"stringValue": "Singer A"},
      "year": {"integerValue": "1972"},
      "lengthSec": {"integerValue": "245"},
      "mood": {"arrayValue": {"values": [{"stringValue": "ghery"}, {"stringValue": " "}]}},
      "audioUrl": {"stringValue": "gs://radio/baroon.mp3"},
      "createdAt": {"timestampValue": "2024-03-01T12:30:00.5Z"},
      "bitrateKbps": {"integerValue": "192"}
    }
  }},
  {"document": {
    "name": "projects/p1/databases/(default)/documents/songs/doc-2",
    "fields": {
      "id": {"stringValue": "jingle-7"},
      "isJingle": {"booleanValue": true},
      "isActive": {"booleanValue": false},
      "type": {"stringValue": "jingle"},
      "language": {"stringValue": "en"}
    }
  }},
  {"readTime": "2024-03-02T00:00:00Z"}
]`

func TestFirestoreFetchAll(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, runQueryResponse)
	}))
	defer srv.Close()

	repo := NewFirestoreSongRepository(srv.Client(), srv.URL, "p1", "")
	songs, err := repo.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/projects/p1/databases/(default)/documents:runQuery", gotPath)
	query := gotBody["structuredQuery"].(map[string]interface{})
	assert.EqualValues(t, fetchLimit, query["limit"])

	require.Len(t, songs, 2)
	first := songs[0]
	assert.Equal(t, "doc-1", first.ID, "id falls back to the document name")
	assert.Equal(t, 1972, first.Year)
	assert.Equal(t, 245, first.LengthSec)
	assert.Equal(t, model.StringList{"ghery"}, first.Mood)
	assert.Equal(t, "unknown", first.Type)
	assert.Equal(t, "fa", first.Language)
	assert.True(t, first.IsActive, "active by default")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 500000000, time.UTC), first.CreatedAt)
	require.NotNil(t, first.BitrateKbps)
	assert.Equal(t, 192, *first.BitrateKbps)
	assert.Nil(t, first.FileSizeBytes)

	second := songs[1]
	assert.Equal(t, "jingle-7", second.ID)
	assert.True(t, second.IsJingle)
	assert.False(t, second.IsActive)
	assert.Equal(t, "en", second.Language)
}

func TestFirestoreFetchAllError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"denied"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	repo := NewFirestoreSongRepository(srv.Client(), srv.URL, "p1", "songs")
	_, err := repo.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = NewFirestoreSongRepository(srv.Client(), srv.URL, "", "songs").FetchAll(context.Background())
	assert.Error(t, err)
}

func TestFirestoreSave(t *testing.T) {
	var gotQuery string
	var gotPath string
	var payload struct {
		Fields map[string]firestoreValue `json:"fields"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("documentId")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	size := int64(4_200_000)
	song := &model.Song{
		Name:          "Bandari Mix",
		Type:          "bandari",
		Tags:          model.StringList{"south", ""},
		AudioURL:      "https://cdn.example.com/b.mp3",
		IsActive:      true,
		FileSizeBytes: &size,
	}
	repo := NewFirestoreSongRepository(srv.Client(), srv.URL, "p1", "songs")
	require.NoError(t, repo.Save(context.Background(), song))

	assert.NotEmpty(t, song.ID)
	assert.Equal(t, "/projects/p1/databases/(default)/documents/songs", gotPath)
	assert.Equal(t, song.ID, gotQuery)

	doc := firestoreDocument{Name: "songs/" + song.ID, Fields: payload.Fields}
	back := doc.toSong()
	assert.Equal(t, song.ID, back.ID)
	assert.Equal(t, "Bandari Mix", back.Name)
	assert.Equal(t, model.StringList{"south"}, back.Tags)
	assert.Equal(t, "fa", back.Language)
	require.NotNil(t, back.FileSizeBytes)
	assert.Equal(t, size, *back.FileSizeBytes)
	assert.Nil(t, back.BitrateKbps)
	assert.True(t, back.CreatedAt.Equal(song.CreatedAt))
}

func TestFirestoreGetByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/projects/p1/databases/(default)/documents/songs/found" {
			_, _ = io.WriteString(w, `{"name":"x/songs/found","fields":{"name":{"stringValue":"Hit"}}}`)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	repo := NewFirestoreSongRepository(srv.Client(), srv.URL, "p1", "songs")
	got, err := repo.GetByID(context.Background(), "found")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "found", got.ID)
	assert.Equal(t, "Hit", got.Name)

	missing, err := repo.GetByID(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
