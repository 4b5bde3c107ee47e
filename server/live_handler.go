package server

import (
	"context"
	"net/http"
	"time"

	"NawaxRadio/core/radioerr"
	"NawaxRadio/logger"
	"NawaxRadio/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	// WebSocket 配置
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultLivePoll = 5 * time.Second
)

// liveMessage is pushed to live listeners. Exactly one of NowPlaying or
// Error is set.
type liveMessage struct {
	Type       string            `json:"type"` // "now_playing" or "error"
	NowPlaying *model.NowPlaying `json:"nowPlaying,omitempty"`
	Error      *errorResponse    `json:"error,omitempty"`
}

// LiveHandler pushes now-playing changes of a channel over a websocket.
type LiveHandler struct {
	radio    *RadioHandler
	upgrader websocket.Upgrader
	poll     time.Duration
}

// NewLiveHandler creates the live feed handler.
func NewLiveHandler(radio *RadioHandler, poll time.Duration) *LiveHandler {
	if poll <= 0 {
		poll = defaultLivePoll
	}
	return &LiveHandler{
		radio: radio,
		poll:  poll,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the connection and streams updates until the client leaves.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := model.NormalizeChannelKey(mux.Vars(r)["channelKey"])
	if key != model.MainChannelKey {
		if _, err := h.radio.channels.Resolve(key); err != nil {
			writeError(w, r, radioerr.Wrap(radioerr.ChannelNotFound, "unknown channel", err).WithChannel(key))
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("live websocket upgrade failed", logger.String("channel", key), logger.ErrorField(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Debug("live listener connected", logger.String("channel", key))
	go h.readLoop(conn, cancel)
	h.writeLoop(ctx, conn, key)
	logger.Debug("live listener disconnected", logger.String("channel", key))
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *LiveHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("live websocket closed", logger.ErrorField(err))
			}
			return
		}
	}
}

func (h *LiveHandler) writeLoop(ctx context.Context, conn *websocket.Conn, key string) {
	poll := time.NewTicker(h.poll)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	lastSong := ""
	lastErr := ""
	push := func() bool {
		payload, err := h.radio.nowPayload(ctx, key)
		if err != nil {
			re, ok := radioerr.As(err)
			if ok && re.Kind == radioerr.ClientCancelled {
				return false
			}
			if !ok {
				re = radioerr.Wrap(radioerr.Unknown, "internal error", err)
			}
			if re.Kind.Code() == lastErr {
				return true
			}
			lastErr, lastSong = re.Kind.Code(), ""
			return h.send(conn, liveMessage{Type: "error", Error: &errorResponse{
				Error:   re.Kind.Code(),
				Message: re.Error(),
				Channel: key,
				SongID:  re.SongID,
			}})
		}
		if payload.SongID == lastSong {
			return true
		}
		lastSong, lastErr = payload.SongID, ""
		return h.send(conn, liveMessage{Type: "now_playing", NowPlaying: &payload})
	}

	if !push() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if !push() {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) send(conn *websocket.Conn, msg liveMessage) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		logger.Debug("live websocket write failed", logger.ErrorField(err))
		return false
	}
	return true
}
