package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NawaxRadio/model"

	"golang.org/x/oauth2/google"
)

const (
	firestoreBaseURL = "https://firestore.googleapis.com/v1"
	firestoreScope   = "https://www.googleapis.com/auth/datastore"
)

// NewFirestoreHTTPClient returns an HTTP client authorized with Application
// Default Credentials.
func NewFirestoreHTTPClient(ctx context.Context) (*http.Client, error) {
	client, err := google.DefaultClient(ctx, firestoreScope)
	if err != nil {
		return nil, fmt.Errorf("firestore credentials: %w", err)
	}
	client.Timeout = 30 * time.Second
	return client, nil
}

// firestoreSongRepository reads and writes songs through the Firestore REST API.
type firestoreSongRepository struct {
	client     *http.Client
	baseURL    string
	projectID  string
	collection string
}

// NewFirestoreSongRepository creates a Firestore backed repository. baseURL
// may be empty for the public endpoint.
func NewFirestoreSongRepository(client *http.Client, baseURL, projectID, collection string) SongRepository {
	if baseURL == "" {
		baseURL = firestoreBaseURL
	}
	if collection == "" {
		collection = "songs"
	}
	return &firestoreSongRepository{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		collection: collection,
	}
}

func (r *firestoreSongRepository) documentsURL() string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents", r.baseURL, url.PathEscape(r.projectID))
}

// FetchAll runs a collection query limited to fetchLimit documents.
func (r *firestoreSongRepository) FetchAll(ctx context.Context) ([]model.Song, error) {
	if r.projectID == "" {
		return nil, fmt.Errorf("firestore project id is not configured")
	}

	payload := map[string]interface{}{
		"structuredQuery": map[string]interface{}{
			"from":  []map[string]string{{"collectionId": r.collection}},
			"limit": fetchLimit,
		},
	}
	var results []struct {
		Document *firestoreDocument `json:"document"`
	}
	if err := r.post(ctx, r.documentsURL()+":runQuery", payload, &results); err != nil {
		return nil, fmt.Errorf("firestore runQuery: %w", err)
	}

	songs := make([]model.Song, 0, len(results))
	for _, res := range results {
		if res.Document == nil || res.Document.Fields == nil {
			continue
		}
		songs = append(songs, res.Document.toSong())
	}
	return songs, nil
}

// GetByID fetches one document.
func (r *firestoreSongRepository) GetByID(ctx context.Context, id string) (*model.Song, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", r.documentsURL(), url.PathEscape(r.collection), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("firestore get %s: status %d: %s", id, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc firestoreDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode firestore document: %w", err)
	}
	song := doc.toSong()
	return &song, nil
}

// Save creates a document named after the song id.
func (r *firestoreSongRepository) Save(ctx context.Context, song *model.Song) error {
	if r.projectID == "" {
		return fmt.Errorf("firestore project id is not configured")
	}
	prepareForSave(song)

	endpoint := fmt.Sprintf("%s/%s?documentId=%s", r.documentsURL(), url.PathEscape(r.collection), url.QueryEscape(song.ID))
	if err := r.post(ctx, endpoint, map[string]interface{}{"fields": songFields(song)}, nil); err != nil {
		return fmt.Errorf("firestore create: %w", err)
	}
	return nil
}

func (r *firestoreSongRepository) post(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// firestoreValue is one typed Firestore field value.
type firestoreValue struct {
	StringValue    *string              `json:"stringValue,omitempty"`
	IntegerValue   *string              `json:"integerValue,omitempty"`
	DoubleValue    *float64             `json:"doubleValue,omitempty"`
	BooleanValue   *bool                `json:"booleanValue,omitempty"`
	TimestampValue *string              `json:"timestampValue,omitempty"`
	ArrayValue     *firestoreArrayValue `json:"arrayValue,omitempty"`
	NullValue      *string              `json:"nullValue,omitempty"`
}

type firestoreArrayValue struct {
	Values []firestoreValue `json:"values"`
}

type firestoreDocument struct {
	Name   string                    `json:"name"`
	Fields map[string]firestoreValue `json:"fields"`
}

func (d *firestoreDocument) toSong() model.Song {
	f := d.Fields
	s := model.Song{
		ID:            getString(f, "id", ""),
		Name:          getString(f, "name", ""),
		Singer:        getString(f, "singer", ""),
		Year:          int(getInt(f, "year", 0)),
		Type:          getString(f, "type", "unknown"),
		LengthSec:     int(getInt(f, "lengthSec", 0)),
		Mood:          getStringArray(f, "mood"),
		Tags:          getStringArray(f, "tags"),
		AudioURL:      getString(f, "audioUrl", ""),
		CoverURL:      getString(f, "coverUrl", ""),
		UploadedBy:    getString(f, "uploadedBy", ""),
		IsJingle:      getBool(f, "isJingle", false),
		Language:      getString(f, "language", "fa"),
		IsActive:      getBool(f, "isActive", true),
		CreatedAt:     getTimestamp(f, "createdAt"),
		FileSizeBytes: getOptionalInt(f, "fileSizeBytes"),
	}
	if v := getOptionalInt(f, "bitrateKbps"); v != nil {
		b := int(*v)
		s.BitrateKbps = &b
	}
	if strings.TrimSpace(s.ID) == "" {
		s.ID = lastSegment(d.Name)
	}
	return s
}

func lastSegment(name string) string {
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func getString(f map[string]firestoreValue, key, fallback string) string {
	if v, ok := f[key]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return fallback
}

func getOptionalInt(f map[string]firestoreValue, key string) *int64 {
	v, ok := f[key]
	if !ok {
		return nil
	}
	switch {
	case v.IntegerValue != nil:
		if n, err := strconv.ParseInt(*v.IntegerValue, 10, 64); err == nil {
			return &n
		}
	case v.DoubleValue != nil:
		n := int64(*v.DoubleValue)
		return &n
	}
	return nil
}

func getInt(f map[string]firestoreValue, key string, fallback int64) int64 {
	if n := getOptionalInt(f, key); n != nil {
		return *n
	}
	return fallback
}

func getBool(f map[string]firestoreValue, key string, fallback bool) bool {
	if v, ok := f[key]; ok && v.BooleanValue != nil {
		return *v.BooleanValue
	}
	return fallback
}

func getStringArray(f map[string]firestoreValue, key string) model.StringList {
	v, ok := f[key]
	if !ok || v.ArrayValue == nil {
		return nil
	}
	var out model.StringList
	for _, item := range v.ArrayValue.Values {
		if item.StringValue != nil && strings.TrimSpace(*item.StringValue) != "" {
			out = append(out, *item.StringValue)
		}
	}
	return out
}

func getTimestamp(f map[string]firestoreValue, key string) time.Time {
	v, ok := f[key]
	if !ok || v.TimestampValue == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func stringValue(s string) firestoreValue { return firestoreValue{StringValue: &s} }
func boolValue(b bool) firestoreValue     { return firestoreValue{BooleanValue: &b} }
func intValue(n int64) firestoreValue {
	s := strconv.FormatInt(n, 10)
	return firestoreValue{IntegerValue: &s}
}

func arrayValue(values []string) firestoreValue {
	arr := &firestoreArrayValue{Values: []firestoreValue{}}
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			arr.Values = append(arr.Values, stringValue(v))
		}
	}
	return firestoreValue{ArrayValue: arr}
}

func songFields(s *model.Song) map[string]firestoreValue {
	ts := s.CreatedAt.UTC().Format(time.RFC3339Nano)
	songType := s.Type
	if songType == "" {
		songType = "unknown"
	}
	fields := map[string]firestoreValue{
		"id":         stringValue(s.ID),
		"name":       stringValue(s.Name),
		"singer":     stringValue(s.Singer),
		"year":       intValue(int64(s.Year)),
		"type":       stringValue(songType),
		"lengthSec":  intValue(int64(s.LengthSec)),
		"mood":       arrayValue(s.Mood),
		"tags":       arrayValue(s.Tags),
		"audioUrl":   stringValue(s.AudioURL),
		"coverUrl":   stringValue(s.CoverURL),
		"createdAt":  {TimestampValue: &ts},
		"uploadedBy": stringValue(s.UploadedBy),
		"isJingle":   boolValue(s.IsJingle),
		"language":   stringValue(s.Language),
		"isActive":   boolValue(s.IsActive),
	}
	if s.BitrateKbps != nil {
		fields["bitrateKbps"] = intValue(int64(*s.BitrateKbps))
	}
	if s.FileSizeBytes != nil {
		fields["fileSizeBytes"] = intValue(*s.FileSizeBytes)
	}
	return fields
}
