// Package radioerr defines the failure kinds shared by selection, resolution and streaming.
package radioerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	InvalidChannelKey
	ChannelNotFound
	NoPlayableContent
	EmptyLocator
	SigningFailed
	LocatorDecodeFailed
	UpstreamBadStatus
	UpstreamUnreachable
	ClientCancelled
)

var kindCodes = map[Kind]string{
	Unknown:             "internal_error",
	InvalidChannelKey:   "invalid_channel_key",
	ChannelNotFound:     "channel_not_found",
	NoPlayableContent:   "no_playable_content",
	EmptyLocator:        "empty_locator",
	SigningFailed:       "signing_failed",
	LocatorDecodeFailed: "locator_decode_failed",
	UpstreamBadStatus:   "upstream_failed",
	UpstreamUnreachable: "upstream_unreachable",
	ClientCancelled:     "client_cancelled",
}

// Code is the stable error code written to clients.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[Unknown]
}

func (k Kind) String() string {
	return k.Code()
}

// HTTPStatus maps a kind to the response status. ClientCancelled maps to 499,
// which is never written because the client is gone.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidChannelKey:
		return http.StatusBadRequest
	case ChannelNotFound:
		return http.StatusNotFound
	case NoPlayableContent:
		return http.StatusServiceUnavailable
	case EmptyLocator, UpstreamBadStatus, UpstreamUnreachable:
		return http.StatusBadGateway
	case ClientCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind plus the kind-specific payload.
type Error struct {
	Kind           Kind
	Channel        string
	SongID         string
	UpstreamStatus int // set for UpstreamBadStatus
	Msg            string
	Err            error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Code()
	}
	if e.Channel != "" {
		msg = fmt.Sprintf("%s (channel=%s)", msg, e.Channel)
	}
	if e.UpstreamStatus != 0 {
		msg = fmt.Sprintf("%s (upstream status %d)", msg, e.UpstreamStatus)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithChannel sets the channel key on a copy of e.
func (e *Error) WithChannel(channel string) *Error {
	cp := *e
	cp.Channel = channel
	return &cp
}

// WithSong sets the song id on a copy of e.
func (e *Error) WithSong(songID string) *Error {
	cp := *e
	cp.SongID = songID
	return &cp
}

// UpstreamStatusError reports a non-200/206 upstream response.
func UpstreamStatusError(status int) *Error {
	return &Error{
		Kind:           UpstreamBadStatus,
		Msg:            fmt.Sprintf("upstream returned %d", status),
		UpstreamStatus: status,
	}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// KindOf returns the kind of err, Unknown when err is not an *Error.
func KindOf(err error) Kind {
	if re, ok := As(err); ok {
		return re.Kind
	}
	return Unknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
