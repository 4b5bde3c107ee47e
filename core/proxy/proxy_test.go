package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"NawaxRadio/core/radioerr"
	"NawaxRadio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type fixedNowPlaying struct {
	song model.Song
	err  error
}

func (f *fixedNowPlaying) GetOrSelect(ctx context.Context, key string) (model.Song, error) {
	return f.song, f.err
}

// passthrough resolves every locator to itself unless err is set.
type passthrough struct {
	err error
}

func (p passthrough) Resolve(ctx context.Context, locator string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return locator, nil
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type upstreamCall struct {
	method, rangeHeader string
}

type audioUpstream struct {
	*httptest.Server
	data []byte

	mu    sync.Mutex
	calls []upstreamCall
}

func newAudioUpstream(t *testing.T, size int) *audioUpstream {
	t.Helper()
	u := &audioUpstream{data: bytes.Repeat([]byte("0123456789"), size/10)}
	modified := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.calls = append(u.calls, upstreamCall{r.Method, r.Header.Get("Range")})
		u.mu.Unlock()

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("ETag", `"v1"`)
		http.ServeContent(w, r, "", modified, bytes.NewReader(u.data))
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *audioUpstream) lastCall() upstreamCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.calls) == 0 {
		return upstreamCall{}
	}
	return u.calls[len(u.calls)-1]
}

func (u *audioUpstream) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func newTestProxy(t *testing.T, locator string, opts Options) *StreamProxy {
	t.Helper()
	np := &fixedNowPlaying{song: model.Song{ID: "song-1", AudioURL: locator, IsActive: true}}
	p := New(np, passthrough{}, opts)
	t.Cleanup(p.CloseIdleConnections)
	return p
}

func serve(p *StreamProxy, method, rangeHeader string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, "/radio/main/stream", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	err := p.Stream(rec, req, "Main")
	return rec, err
}

func TestStreamFullBody(t *testing.T) {
	up := newAudioUpstream(t, 1000)
	p := newTestProxy(t, up.URL+"/a.mp3", Options{})

	rec, err := serve(p, http.MethodGet, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, `"v1"`, rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))
	assert.Equal(t, "song-1", rec.Header().Get(HeaderSongID))
	assert.Equal(t, "main", rec.Header().Get(HeaderChannel))
	assert.Equal(t, "false", rec.Header().Get(HeaderIsJingle))
	assert.Equal(t, up.data, rec.Body.Bytes())
	assert.Equal(t, upstreamCall{http.MethodGet, ""}, up.lastCall())
}

func TestStreamRange(t *testing.T) {
	up := newAudioUpstream(t, 1000)
	p := newTestProxy(t, up.URL+"/a.mp3", Options{})

	rec, err := serve(p, http.MethodGet, "bytes=100-199")
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 100-199/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, 100, rec.Body.Len())
	assert.Equal(t, up.data[100:200], rec.Body.Bytes())
	assert.Equal(t, "bytes=100-199", up.lastCall().rangeHeader)
}

func TestHeadParity(t *testing.T) {
	t.Run("Range Mode", func(t *testing.T) {
		up := newAudioUpstream(t, 1000)
		p := newTestProxy(t, up.URL+"/a.mp3", Options{HeadMode: HeadModeRange})

		head, err := serve(p, http.MethodHead, "")
		require.NoError(t, err)
		assert.Equal(t, upstreamCall{http.MethodGet, "bytes=0-0"}, up.lastCall())

		get, err := serve(p, http.MethodGet, "")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, head.Code)
		assert.Equal(t, 0, head.Body.Len())
		assert.Empty(t, head.Header().Get("Content-Range"))
		assert.Equal(t, get.Header().Get("Content-Type"), head.Header().Get("Content-Type"))
		assert.Equal(t, get.Header().Get("Content-Length"), head.Header().Get("Content-Length"))
		assert.Equal(t, "1000", head.Header().Get("Content-Length"))
	})

	t.Run("Head Mode", func(t *testing.T) {
		up := newAudioUpstream(t, 500)
		p := newTestProxy(t, up.URL+"/a.mp3", Options{HeadMode: HeadModeHead})

		head, err := serve(p, http.MethodHead, "")
		require.NoError(t, err)
		assert.Equal(t, http.MethodHead, up.lastCall().method)
		assert.Equal(t, http.StatusOK, head.Code)
		assert.Equal(t, "500", head.Header().Get("Content-Length"))
		assert.Equal(t, 0, head.Body.Len())
	})

	t.Run("Head With Client Range", func(t *testing.T) {
		up := newAudioUpstream(t, 1000)
		p := newTestProxy(t, up.URL+"/a.mp3", Options{})

		head, err := serve(p, http.MethodHead, "bytes=0-99")
		require.NoError(t, err)
		assert.Equal(t, http.StatusPartialContent, head.Code)
		assert.Equal(t, "bytes 0-99/1000", head.Header().Get("Content-Range"))
		assert.Equal(t, "100", head.Header().Get("Content-Length"))
		assert.Equal(t, 0, head.Body.Len())
	})
}

func TestStreamUpstreamBadStatus(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer up.Close()
	p := newTestProxy(t, up.URL+"/private.mp3", Options{})

	rec, err := serve(p, http.MethodGet, "")
	require.Error(t, err)

	re, ok := radioerr.As(err)
	require.True(t, ok)
	assert.Equal(t, radioerr.UpstreamBadStatus, re.Kind)
	assert.Equal(t, http.StatusForbidden, re.UpstreamStatus)
	assert.Equal(t, "main", re.Channel)
	assert.Equal(t, "song-1", re.SongID)
	assert.Equal(t, 0, rec.Body.Len(), "nothing is written on failure")
	assert.Empty(t, rec.Header().Get(HeaderSongID))
}

func TestStreamUpstreamUnreachable(t *testing.T) {
	up := httptest.NewServer(http.NotFoundHandler())
	addr := up.URL
	up.Close()

	p := newTestProxy(t, addr+"/gone.mp3", Options{DialTimeout: time.Second})
	_, err := serve(p, http.MethodGet, "")
	require.Error(t, err)
	assert.Equal(t, radioerr.UpstreamUnreachable, radioerr.KindOf(err))
}

func TestStreamFailsBeforeUpstream(t *testing.T) {
	up := newAudioUpstream(t, 100)

	t.Run("Now Playing Error", func(t *testing.T) {
		np := &fixedNowPlaying{err: radioerr.New(radioerr.NoPlayableContent, "no playable content")}
		p := New(np, passthrough{}, Options{})
		_, err := serve(p, http.MethodGet, "")
		require.Error(t, err)
		re, ok := radioerr.As(err)
		require.True(t, ok)
		assert.Equal(t, radioerr.NoPlayableContent, re.Kind)
		assert.Equal(t, "main", re.Channel)
	})

	t.Run("Signing Error", func(t *testing.T) {
		np := &fixedNowPlaying{song: model.Song{ID: "s", AudioURL: "gs://b/o.mp3", IsActive: true}}
		p := New(np, passthrough{err: radioerr.New(radioerr.SigningFailed, "denied")}, Options{})
		_, err := serve(p, http.MethodGet, "")
		require.Error(t, err)
		re, ok := radioerr.As(err)
		require.True(t, ok)
		assert.Equal(t, radioerr.SigningFailed, re.Kind)
		assert.Equal(t, "s", re.SongID)
	})

	assert.Equal(t, 0, up.callCount())
}

func TestStreamMethodNotAllowed(t *testing.T) {
	up := newAudioUpstream(t, 100)
	p := newTestProxy(t, up.URL+"/a.mp3", Options{})

	rec, err := serve(p, http.MethodPost, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, up.callCount())
}

func TestStreamIdleUpstreamIsAborted(t *testing.T) {
	released := make(chan struct{})
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("first-chunk"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(released)
	}))
	defer up.Close()

	reporter := &recordingReporter{}
	p := newTestProxy(t, up.URL+"/slow.mp3", Options{IdleTimeout: 150 * time.Millisecond, Reporter: reporter})

	done := make(chan struct{})
	var rec *httptest.ResponseRecorder
	go func() {
		defer close(done)
		rec, _ = serve(p, http.MethodGet, "")
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stalled upstream was not aborted")
	}
	select {
	case <-released:
	case <-time.After(3 * time.Second):
		t.Fatal("upstream request was not cancelled")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "first-chunk", rec.Body.String())
	assert.Equal(t, 1, reporter.count())
}

// slowWriter is a client that takes longer to accept each chunk than the
// upstream idle timeout.
type slowWriter struct {
	*httptest.ResponseRecorder
	delay time.Duration
}

func (s *slowWriter) Write(b []byte) (int, error) {
	time.Sleep(s.delay)
	return s.ResponseRecorder.Write(b)
}

func TestStreamSlowClientIsNotIdle(t *testing.T) {
	up := newAudioUpstream(t, 64*1024)
	reporter := &recordingReporter{}
	p := newTestProxy(t, up.URL+"/song.mp3", Options{IdleTimeout: 100 * time.Millisecond, Reporter: reporter})

	w := &slowWriter{ResponseRecorder: httptest.NewRecorder(), delay: 150 * time.Millisecond}
	req := httptest.NewRequest(http.MethodGet, "/radio/main/stream", nil)
	require.NoError(t, p.Stream(w, req, "main"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(up.data), w.Body.Len())
	assert.True(t, bytes.Equal(up.data, w.Body.Bytes()))
	assert.Equal(t, 0, reporter.count())
}

func TestStreamClientCancelReleasesUpstream(t *testing.T) {
	upstreamDone := make(chan struct{})
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(upstreamDone)
		w.Header().Set("Content-Type", "audio/mpeg")
		chunk := bytes.Repeat([]byte{0xff}, 4096)
		for {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer up.Close()

	reporter := &recordingReporter{}
	p := newTestProxy(t, up.URL+"/endless.mp3", Options{Reporter: reporter})
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := p.Stream(w, r, "main"); err != nil {
			t.Errorf("unexpected stream error: %v", err)
		}
	}))
	defer front.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, front.URL, nil)
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()
	resp, err := client.Do(req)
	require.NoError(t, err)

	_, err = io.ReadFull(resp.Body, make([]byte, 8192))
	require.NoError(t, err)
	cancel()
	resp.Body.Close()

	select {
	case <-upstreamDone:
	case <-time.After(3 * time.Second):
		t.Fatal("upstream kept streaming after the client left")
	}
	assert.Equal(t, 0, reporter.count(), "client cancellation is not a failure")
}

func TestTotalFromContentRange(t *testing.T) {
	tests := []struct {
		in    string
		total int64
		ok    bool
	}{
		{"bytes 0-0/5242880", 5242880, true},
		{"bytes 100-199/1000", 1000, true},
		{"bytes 0-0/*", 0, false},
		{"", 0, false},
		{"items 0-0/10", 0, false},
	}
	for _, tt := range tests {
		total, ok := totalFromContentRange(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.total, total, tt.in)
	}
}

func TestIsConnectionClosedError(t *testing.T) {
	assert.False(t, isConnectionClosedError(nil))
	assert.True(t, isConnectionClosedError(context.Canceled))
	assert.True(t, isConnectionClosedError(errors.New("write tcp: broken pipe")))
	assert.True(t, isConnectionClosedError(errors.New("read: connection reset by peer")))
	assert.False(t, isConnectionClosedError(errors.New("unexpected EOF")))
}
