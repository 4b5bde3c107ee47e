// Package metrics holds the Prometheus collectors of the radio service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nawaxradio_selections_total",
			Help: "Tracks picked by the selection engine",
		},
		[]string{"channel", "jingle"},
	)
	SelectionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nawaxradio_selection_failures_total",
			Help: "Selections that ended without a track",
		},
		[]string{"kind"},
	)
	NowPlayingLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nawaxradio_now_playing_lookups_total",
			Help: "Now-playing lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
	UpstreamResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nawaxradio_upstream_responses_total",
			Help: "Upstream responses by request method and status",
		},
		[]string{"method", "status"},
	)
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nawaxradio_upstream_header_seconds",
			Help:    "Time until upstream response headers arrived",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	StreamBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nawaxradio_stream_bytes_total",
			Help: "Audio bytes relayed to clients",
		},
		[]string{"channel"},
	)
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nawaxradio_active_streams",
			Help: "Streams currently relaying a body",
		},
	)
	CatalogSongs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nawaxradio_catalog_songs",
			Help: "Playable songs in the catalog",
		},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Selections,
			SelectionFailures,
			NowPlayingLookups,
			UpstreamResponses,
			UpstreamLatency,
			StreamBytes,
			ActiveStreams,
			CatalogSongs,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSelection counts one successful pick.
func ObserveSelection(channel string, jingle bool) {
	Selections.WithLabelValues(channel, strconv.FormatBool(jingle)).Inc()
}

// ObserveUpstream counts one upstream response status.
func ObserveUpstream(method string, status int) {
	UpstreamResponses.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
