package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// StringList is a []string persisted as a JSON column.
type StringList []string

// Scan 实现 sql.Scanner 接口
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*s = nil
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value 实现 driver.Valuer 接口
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Song is a track in the radio catalog.
type Song struct {
	ID            string     `json:"id" gorm:"primaryKey;size:64"`
	Name          string     `json:"name" gorm:"size:255"`
	Singer        string     `json:"singer" gorm:"size:255"`
	Year          int        `json:"year"`
	Type          string     `json:"type" gorm:"size:64;index"` // genre: rap, bandari, pop...
	LengthSec     int        `json:"lengthSec"`
	Mood          StringList `json:"mood" gorm:"type:text"`
	Tags          StringList `json:"tags" gorm:"type:text"`
	AudioURL      string     `json:"audioUrl" gorm:"column:audio_url;size:2048"` // direct URL or storage reference
	CoverURL      string     `json:"coverUrl" gorm:"column:cover_url;size:2048"`
	CreatedAt     time.Time  `json:"createdAt" gorm:"index"`
	UploadedBy    string     `json:"uploadedBy" gorm:"size:64"`
	IsJingle      bool       `json:"isJingle" gorm:"index"`
	Language      string     `json:"language" gorm:"size:8;default:'fa'"`
	IsActive      bool       `json:"isActive" gorm:"index"`
	BitrateKbps   *int       `json:"bitrateKbps,omitempty"`
	FileSizeBytes *int64     `json:"fileSizeBytes,omitempty"`
}

// TableName 指定表名
func (Song) TableName() string {
	return "songs"
}

// Playable reports whether the song may take part in selection.
func (s *Song) Playable() bool {
	return s.IsActive && strings.TrimSpace(s.AudioURL) != ""
}

// Duration returns the song length, zero when unknown.
func (s *Song) Duration() time.Duration {
	if s.LengthSec <= 0 {
		return 0
	}
	return time.Duration(s.LengthSec) * time.Second
}

// HasMood reports whether any of the song's mood tags is in moods (case-insensitive).
func (s *Song) HasMood(moods []string) bool {
	for _, m := range s.Mood {
		if containsFold(moods, m) {
			return true
		}
	}
	return false
}

// HasType reports whether the song's type tag is one of types (case-insensitive).
func (s *Song) HasType(types []string) bool {
	return s.Type != "" && containsFold(types, s.Type)
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
