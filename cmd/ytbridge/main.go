// SPDX-License-Identifier: MIT

// Command ytbridge runs the YouTube playback bridge: an HTTP service that
// resolves video ids via an external extractor and proxies, redirects or
// remuxes the media for a home-theatre consumer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ytbridge/internal/cache"
	"ytbridge/internal/config"
	"ytbridge/internal/extractor"
	"ytbridge/internal/httpapi"
	"ytbridge/internal/log"
	"ytbridge/internal/remux"
	"ytbridge/internal/streamproxy"
	"ytbridge/internal/telemetry"
)

var (
	version   = "v0.8.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Logger first so config parsing can already report its sources.
	log.Configure(log.Config{
		Level:   config.ParseString("LOG_LEVEL", "info"),
		Service: "ytbridge",
		Version: version,
	})
	logger := log.WithComponent("main")

	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "ytbridge",
		ServiceVersion: version,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	// Redis is preferred; an in-memory cache keeps the service usable when
	// it is absent.
	var probeCache cache.Cache
	if rc, err := cache.NewRedisCache(cfg.RedisURL, log.WithComponent("cache")); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory probe cache")
		probeCache = cache.NewMemoryCache(time.Minute)
	} else {
		probeCache = rc
		defer func() { _ = rc.Close() }()
	}

	ext := extractor.New(extractor.Config{
		Mode:         cfg.YTDLPMode,
		Command:      cfg.YTDLPCmd,
		RemoteURL:    cfg.YTDLPRemoteURL,
		ExtraArgs:    cfg.YTDLPArgs,
		Cookies:      cfg.Cookies,
		SponsorBlock: cfg.SponsorBlock,
		Net:          cfg.YTDLPNet,
		CacheTTL:     cfg.RedisTTL,
	}, probeCache, log.WithComponent("extractor"))

	pipeline := remux.New(cfg.FFmpegCmd, 8, log.WithComponent("remux"))

	proxy := streamproxy.New(
		streamproxy.Config{StreamMode: cfg.StreamMode},
		ext, pipeline, log.WithComponent("proxy"),
	)

	tracingService := ""
	if cfg.TracingEnabled {
		tracingService = "ytbridge"
	}
	router := httpapi.New(httpapi.Deps{
		Proxy:          proxy,
		Prober:         ext,
		TracingService: tracingService,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: proxied playback streams for hours.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.Port).
			Str("ytdlp_mode", cfg.YTDLPMode).
			Str("stream_mode", cfg.StreamMode).
			Msg("ytbridge listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed, closing")
		_ = srv.Close()
	}
	logger.Info().Msg("ytbridge stopped")
}
