// SPDX-License-Identifier: MIT

// Package extractor resolves a video id to a Probe record via an external
// yt-dlp style tool, either as a local subprocess or a remote HTTP service.
// Successful probes are cached; concurrent probes for the same id coalesce.
package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"ytbridge/internal/apierr"
	"ytbridge/internal/cache"
	"ytbridge/internal/config"
	"ytbridge/internal/metrics"
	"ytbridge/internal/probe"
)

const (
	watchURLPrefix = "https://www.youtube.com/watch?v="
	cacheKeyPrefix = "ytdlp:video:"

	remoteTimeout = 60 * time.Second
)

// Config selects and parameterises the extractor backend.
type Config struct {
	Mode         string   // config.ModeLocal or config.ModeRemote
	Command      string   // local binary, e.g. "yt-dlp"
	RemoteURL    string   // remote endpoint, required in remote mode
	ExtraArgs    []string // additional local args (whitespace-split YTDLP_ARGS)
	Cookies      string   // optional cookies file path
	SponsorBlock bool
	Net          string        // config.NetIPv4, NetIPv6 or NetAuto
	CacheTTL     time.Duration // probe cache TTL
}

// runFunc executes the local extractor command; a seam for tests.
type runFunc func(ctx context.Context, name string, args []string) (stdout, stderr []byte, exitCode int, err error)

// Extractor resolves video ids to probes.
type Extractor struct {
	cfg    Config
	cache  cache.Cache
	client *http.Client
	// limiter caps the request rate toward a remote extractor backend.
	limiter *rate.Limiter
	logger  zerolog.Logger
	group   singleflight.Group
	run     runFunc
}

// New creates an Extractor backed by the given cache.
func New(cfg Config, c cache.Cache, logger zerolog.Logger) *Extractor {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 43200 * time.Second
	}
	return &Extractor{
		cfg:     cfg,
		cache:   c,
		client:  &http.Client{Timeout: remoteTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  logger,
		run:     runCommand,
	}
}

// Probe resolves the video id to a Probe, serving from cache when possible.
// It never returns a nil or empty Probe without an error.
func (e *Extractor) Probe(ctx context.Context, id string) (*probe.Probe, error) {
	key := cacheKeyPrefix + id
	if p := e.cachedProbe(key); p != nil {
		metrics.IncCacheOp("hit")
		return p, nil
	}
	metrics.IncCacheOp("miss")

	return e.extractAndStore(ctx, id, key)
}

// Refresh bypasses and replaces the cached Probe; used after a signed URL
// from a previous probe has expired.
func (e *Extractor) Refresh(ctx context.Context, id string) (*probe.Probe, error) {
	key := cacheKeyPrefix + id
	e.cache.Delete(key)
	return e.extractAndStore(ctx, id, key)
}

func (e *Extractor) extractAndStore(ctx context.Context, id, key string) (*probe.Probe, error) {
	v, err, _ := e.group.Do(key, func() (any, error) {
		start := time.Now()
		p, err := e.extract(ctx, id)
		metrics.ObserveExtractorDuration(time.Since(start))
		if err != nil {
			metrics.IncExtractorRun(e.cfg.Mode, "failure")
			return nil, err
		}
		metrics.IncExtractorRun(e.cfg.Mode, "success")

		cache.SetJSON(e.cache, key, p, e.cfg.CacheTTL)
		metrics.IncCacheOp("store")
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*probe.Probe), nil
}

func (e *Extractor) extract(ctx context.Context, id string) (*probe.Probe, error) {
	url := watchURLPrefix + id
	if e.cfg.Mode == config.ModeRemote {
		return e.extractRemote(ctx, url)
	}
	return e.extractLocal(ctx, url)
}

// cachedProbe returns the cached Probe if it decodes as a non-empty object.
func (e *Extractor) cachedProbe(key string) *probe.Probe {
	raw, ok := e.cache.Get(key)
	if !ok || raw == "" {
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || len(obj) == 0 {
		return nil
	}

	var p probe.Probe
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil
	}
	return &p
}

// decodeProbeObject decodes a JSON blob that must be a non-empty object.
func decodeProbeObject(blob []byte) (*probe.Probe, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(blob, &obj); err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "extractor returned non-object JSON")
	}
	if len(obj) == 0 {
		return nil, apierr.New(apierr.KindBadGateway, "extractor returned an empty result")
	}
	var p probe.Probe
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "extractor JSON does not match the expected shape")
	}
	return &p, nil
}
