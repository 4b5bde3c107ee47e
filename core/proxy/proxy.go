// Package proxy relays the current track of a channel from the blob store to
// the client without buffering whole files.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"NawaxRadio/core/radioerr"
	"NawaxRadio/logger"
	"NawaxRadio/metrics"
	"NawaxRadio/model"
)

const (
	relayBufferSize    = 32 * 1024
	defaultContentType = "audio/mpeg"

	// HeadModeRange answers HEAD with an upstream GET for byte 0.
	HeadModeRange = "range"
	// HeadModeHead forwards HEAD as HEAD.
	HeadModeHead = "head"

	HeaderSongID   = "X-Radio-Song-Id"
	HeaderChannel  = "X-Radio-Channel"
	HeaderIsJingle = "X-Radio-Is-Jingle"
)

// NowPlayer returns the current track of a channel.
type NowPlayer interface {
	GetOrSelect(ctx context.Context, channelKey string) (model.Song, error)
}

// URLResolver turns a locator into a fetchable URL.
type URLResolver interface {
	Resolve(ctx context.Context, locator string) (string, error)
}

// ErrorReporter receives failures that happen after the response started.
type ErrorReporter interface {
	CaptureException(err error, tags map[string]string)
}

// Options configures the upstream side of the proxy.
type Options struct {
	DialTimeout   time.Duration
	HeaderTimeout time.Duration
	// IdleTimeout aborts a body relay when the upstream sends nothing for this long.
	IdleTimeout time.Duration
	HeadMode    string

	// Client overrides the upstream client built from the timeouts above.
	Client   *http.Client
	Reporter ErrorReporter
}

// StreamProxy serves GET and HEAD for a channel's current track.
type StreamProxy struct {
	nowPlaying NowPlayer
	resolver   URLResolver
	client     *http.Client
	headMode   string
	idle       time.Duration
	reporter   ErrorReporter
}

// NewTransport builds the upstream transport. Compression is disabled so
// lengths and ranges pass through untouched.
func NewTransport(opts Options) *http.Transport {
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 10 * time.Second
	}
	header := opts.HeaderTimeout
	if header <= 0 {
		header = 20 * time.Second
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dial,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: header,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		DisableCompression:    true,
	}
}

// New creates a stream proxy.
func New(nowPlaying NowPlayer, resolver URLResolver, opts Options) *StreamProxy {
	client := opts.Client
	if client == nil {
		client = &http.Client{Transport: NewTransport(opts)}
	}
	mode := strings.ToLower(strings.TrimSpace(opts.HeadMode))
	if mode != HeadModeHead {
		mode = HeadModeRange
	}
	return &StreamProxy{
		nowPlaying: nowPlaying,
		resolver:   resolver,
		client:     client,
		headMode:   mode,
		idle:       opts.IdleTimeout,
		reporter:   opts.Reporter,
	}
}

// CloseIdleConnections closes idle upstream connections.
func (p *StreamProxy) CloseIdleConnections() {
	p.client.CloseIdleConnections()
}

// Stream serves the current track of channelKey. A returned error means
// nothing was written to w yet; failures after the headers went out are
// logged here and end the body early.
func (p *StreamProxy) Stream(w http.ResponseWriter, r *http.Request, channelKey string) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil
	}

	ctx := r.Context()
	key := model.NormalizeChannelKey(channelKey)

	song, err := p.nowPlaying.GetOrSelect(ctx, key)
	if err != nil {
		return withChannel(err, key)
	}

	target, err := p.resolver.Resolve(ctx, song.AudioURL)
	if err != nil {
		if re, ok := radioerr.As(err); ok {
			return re.WithChannel(key).WithSong(song.ID)
		}
		return radioerr.Wrap(radioerr.LocatorDecodeFailed, "resolve locator", err).WithChannel(key).WithSong(song.ID)
	}

	// the idle watchdog cancels this context when the upstream stalls
	upCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, substituted, err := p.upstreamRequest(upCtx, r, target)
	if err != nil {
		return radioerr.Wrap(radioerr.LocatorDecodeFailed, "build upstream request", err).WithChannel(key).WithSong(song.ID)
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return radioerr.Wrap(radioerr.ClientCancelled, "client went away", err).WithChannel(key).WithSong(song.ID)
		}
		logger.Warn("upstream unreachable",
			logger.String("channel", key),
			logger.String("songId", song.ID),
			logger.ErrorField(err))
		return radioerr.Wrap(radioerr.UpstreamUnreachable, "upstream request failed", err).WithChannel(key).WithSong(song.ID)
	}
	defer resp.Body.Close()

	metrics.UpstreamLatency.WithLabelValues(req.Method).Observe(time.Since(started).Seconds())
	metrics.ObserveUpstream(req.Method, resp.StatusCode)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		logger.Warn("upstream returned unexpected status",
			logger.String("channel", key),
			logger.String("songId", song.ID),
			logger.Int("status", resp.StatusCode))
		return radioerr.UpstreamStatusError(resp.StatusCode).WithChannel(key).WithSong(song.ID)
	}

	status := relayHeaders(w.Header(), resp, substituted)
	w.Header().Set(HeaderSongID, song.ID)
	w.Header().Set(HeaderChannel, key)
	w.Header().Set(HeaderIsJingle, strconv.FormatBool(song.IsJingle))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return nil
	}

	p.relayBody(ctx, w, resp.Body, cancel, key, song.ID)
	return nil
}

// upstreamRequest builds the upstream request. substituted is true when a
// client HEAD without Range became a GET for byte 0.
func (p *StreamProxy) upstreamRequest(ctx context.Context, r *http.Request, target string) (*http.Request, bool, error) {
	method := http.MethodGet
	clientRange := r.Header.Get("Range")
	substituted := false

	if r.Method == http.MethodHead {
		if p.headMode == HeadModeHead {
			method = http.MethodHead
		} else if clientRange == "" {
			substituted = true
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	switch {
	case substituted:
		req.Header.Set("Range", "bytes=0-0")
	case clientRange != "":
		req.Header.Set("Range", clientRange)
	}
	if ifRange := r.Header.Get("If-Range"); ifRange != "" && clientRange != "" {
		req.Header.Set("If-Range", ifRange)
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	return req, substituted, nil
}

// relayHeaders copies the headers clients need and returns the status to send.
func relayHeaders(h http.Header, resp *http.Response, substituted bool) int {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	for _, name := range []string{"Last-Modified", "ETag"} {
		if v := resp.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}

	if substituted {
		// report what a GET without Range would: the whole object
		if total, ok := totalFromContentRange(resp.Header.Get("Content-Range")); ok {
			h.Set("Content-Length", strconv.FormatInt(total, 10))
		} else if resp.StatusCode == http.StatusOK {
			copyContentLength(h, resp)
		}
		return http.StatusOK
	}

	copyContentLength(h, resp)
	if v := resp.Header.Get("Content-Range"); v != "" {
		h.Set("Content-Range", v)
	}
	return resp.StatusCode
}

func copyContentLength(h http.Header, resp *http.Response) {
	if v := resp.Header.Get("Content-Length"); v != "" {
		h.Set("Content-Length", v)
		return
	}
	if resp.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
}

// totalFromContentRange reads N from "bytes a-b/N".
func totalFromContentRange(v string) (int64, bool) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 || !strings.HasPrefix(strings.TrimSpace(v), "bytes") {
		return 0, false
	}
	total, err := strconv.ParseInt(strings.TrimSpace(v[i+1:]), 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}

// relayBody copies the upstream body to the client in fixed chunks, flushing
// after each one. Reads that stall longer than the idle timeout cancel the
// upstream request. The watchdog only runs while reading, so a slow client
// never counts as an idle upstream.
func (p *StreamProxy) relayBody(ctx context.Context, w http.ResponseWriter, body io.Reader, cancel context.CancelFunc, key, songID string) {
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	var stalled atomic.Bool
	var watchdog *time.Timer
	if p.idle > 0 {
		watchdog = time.AfterFunc(p.idle, func() {
			stalled.Store(true)
			cancel()
		})
		watchdog.Stop()
		defer watchdog.Stop()
	}

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, relayBufferSize)
	var written int64
	defer func() {
		metrics.StreamBytes.WithLabelValues(key).Add(float64(written))
	}()

	for {
		if watchdog != nil {
			watchdog.Reset(p.idle)
		}
		n, readErr := body.Read(buf)
		if watchdog != nil {
			watchdog.Stop()
		}
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				if ctx.Err() != nil || isConnectionClosedError(writeErr) {
					logger.Debug("client closed stream",
						logger.String("channel", key),
						logger.String("songId", songID),
						logger.Int64("bytes", written))
					return
				}
				p.fail(fmt.Errorf("write to client: %w", writeErr), key, songID, written)
				return
			}
			written += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			switch {
			case readErr == io.EOF:
				logger.Debug("stream finished",
					logger.String("channel", key),
					logger.String("songId", songID),
					logger.Int64("bytes", written))
			case stalled.Load():
				p.fail(fmt.Errorf("upstream idle for %s: %w", p.idle, readErr), key, songID, written)
			case ctx.Err() != nil || isConnectionClosedError(readErr):
				logger.Debug("client closed stream",
					logger.String("channel", key),
					logger.String("songId", songID),
					logger.Int64("bytes", written))
			default:
				p.fail(fmt.Errorf("read from upstream: %w", readErr), key, songID, written)
			}
			return
		}
	}
}

func (p *StreamProxy) fail(err error, key, songID string, written int64) {
	logger.Error("stream aborted after headers were sent",
		logger.String("channel", key),
		logger.String("songId", songID),
		logger.Int64("bytes", written),
		logger.ErrorField(err))
	if p.reporter != nil {
		p.reporter.CaptureException(err, map[string]string{
			"channel": key,
			"songId":  songID,
		})
	}
}

func withChannel(err error, key string) error {
	if re, ok := radioerr.As(err); ok {
		if re.Channel == "" {
			return re.WithChannel(key)
		}
		return re
	}
	return radioerr.Wrap(radioerr.Unknown, "now playing lookup failed", err).WithChannel(key)
}

// isConnectionClosedError reports whether err comes from the client hanging up.
func isConnectionClosedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "use of closed network connection")
}
