package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NawaxRadio/config"
	"NawaxRadio/core/catalog"
	"NawaxRadio/core/proxy"
	"NawaxRadio/core/radio"
	"NawaxRadio/logger"
	"NawaxRadio/metrics"
	"NawaxRadio/monitoring"

	"github.com/gorilla/mux"
)

// Version is reported to Sentry as the release.
var Version = "dev"

// NewRouter registers every route. songs, live and admin may be nil.
func NewRouter(radioHandler *RadioHandler, songs *SongHandler, live *LiveHandler, admin *AdminHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	router.HandleFunc("/", radioHandler.RootHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", radioHandler.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/channels", radioHandler.ListChannelsHandler).Methods(http.MethodGet)
	router.HandleFunc("/channels/{key}", radioHandler.GetChannelHandler).Methods(http.MethodGet)

	if songs != nil {
		router.HandleFunc("/songs", songs.ListHandler).Methods(http.MethodGet)
		router.HandleFunc("/songs/by-channel/{slug}", songs.ByChannelHandler).Methods(http.MethodGet)
		router.HandleFunc("/songs/{id}", songs.GetHandler).Methods(http.MethodGet)
	}

	router.HandleFunc("/radio/{channelKey}/now", radioHandler.NowHandler).Methods(http.MethodGet)
	router.HandleFunc("/radio/{channelKey}/stream", radioHandler.StreamHandler).Methods(http.MethodGet, http.MethodHead)
	if live != nil {
		router.Handle("/radio/{channelKey}/live", live).Methods(http.MethodGet)
	}

	if admin != nil {
		router.HandleFunc("/admin/sync", admin.RequireAdmin(admin.SyncHandler)).Methods(http.MethodPost)
	}

	// CORS preflight for every path
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}

// Start initializes and starts the HTTP server. It blocks until SIGINT or SIGTERM.
func Start(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Register()

	reporter, err := monitoring.Init(cfg.SentryDSN, cfg.Environment, Version)
	if err != nil {
		logger.Warn("sentry disabled", logger.ErrorField(err))
	}
	defer reporter.Flush(2 * time.Second)

	directory := NewChannelDirectory(cfg)
	if cfg.ChannelsFile != "" {
		if err := directory.Watch(ctx, cfg.ChannelsFile); err != nil {
			logger.Warn("channel file hot reload disabled", logger.ErrorField(err))
		}
	}

	source, closeSource, err := NewCatalogSource(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open catalog source",
			logger.String("source", cfg.CatalogSource),
			logger.ErrorField(err))
	}
	defer closeSource()

	snapshot, closeSnapshot := NewSnapshotStore(cfg)
	defer closeSnapshot()

	songs := catalog.New()
	syncer := catalog.NewSyncer(songs, source, snapshot)
	syncer.Start(ctx)

	state := radio.NewStateStore(cfg.HistorySize)
	selector := radio.NewSelector(directory, state,
		radio.WithJingleCadence(cfg.JingleCadence),
		radio.WithLatestCap(cfg.LatestCap))
	nowPlaying := radio.NewNowPlaying(selector, songs, cfg.NowPlayingFloor)
	urlResolver := NewResolver(cfg)

	streamProxy := proxy.New(nowPlaying, urlResolver, proxy.Options{
		DialTimeout:   cfg.UpstreamDialTimeout,
		HeaderTimeout: cfg.UpstreamHeaderTimeout,
		IdleTimeout:   cfg.UpstreamIdleTimeout,
		HeadMode:      cfg.UpstreamHeadMode,
		Reporter:      reporter,
	})
	defer streamProxy.CloseIdleConnections()

	radioHandler := NewRadioHandler(nowPlaying, urlResolver, streamProxy, directory, songs, syncer.Done())
	songHandler := NewSongHandler(songs, selector)
	liveHandler := NewLiveHandler(radioHandler, cfg.LivePollEvery)
	adminHandler := NewAdminHandler(cfg.AdminJWTSecret, syncer)

	// no WriteTimeout: streams last as long as the track
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(radioHandler, songHandler, liveHandler, adminHandler),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			logger.String("addr", srv.Addr),
			logger.String("catalogSource", cfg.CatalogSource),
			logger.Int("channels", directory.Len()),
			logger.Bool("adminSync", adminHandler.Enabled()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}
