package server

import (
	"encoding/json"
	"net/http"

	"NawaxRadio/core/radioerr"
	"NawaxRadio/logger"
)

// errorResponse is the JSON body of every failed radio request.
type errorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	Channel        string `json:"channel,omitempty"`
	SongID         string `json:"songId,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to encode response", logger.ErrorField(err))
	}
}

// writeError maps err to a status and a JSON body. Cancelled requests get
// nothing because the client is gone.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	re, ok := radioerr.As(err)
	if !ok {
		re = radioerr.Wrap(radioerr.Unknown, "internal error", err)
	}

	if re.Kind == radioerr.ClientCancelled {
		logger.Debug("request cancelled by client",
			logger.String("path", r.URL.Path),
			logger.String("channel", re.Channel))
		return
	}

	status := re.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("radio request failed",
			logger.String("path", r.URL.Path),
			logger.String("code", re.Kind.Code()),
			logger.String("channel", re.Channel),
			logger.String("songId", re.SongID),
			logger.ErrorField(err))
	} else {
		logger.Warn("radio request rejected",
			logger.String("path", r.URL.Path),
			logger.String("code", re.Kind.Code()),
			logger.String("channel", re.Channel))
	}

	writeJSON(w, status, errorResponse{
		Error:          re.Kind.Code(),
		Message:        re.Error(),
		Channel:        re.Channel,
		SongID:         re.SongID,
		UpstreamStatus: re.UpstreamStatus,
	})
}
