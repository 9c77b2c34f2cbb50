// SPDX-License-Identifier: MIT

// Package streamproxy serves the playback endpoints: it resolves a video id
// to a delivery via the extractor and selector, then redirects, proxies the
// origin bytes with range passthrough, serves an HLS manifest, or hands the
// request to the remux pipeline.
package streamproxy

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ytbridge/internal/apierr"
	"ytbridge/internal/config"
	"ytbridge/internal/headers"
	"ytbridge/internal/metrics"
	"ytbridge/internal/netutil"
	"ytbridge/internal/probe"
	"ytbridge/internal/selector"
)

const (
	preflightTimeout = 15 * time.Second
	manifestTimeout  = 15 * time.Second

	hlsContentType  = "application/vnd.apple.mpegurl"
	hlsCacheControl = "private, max-age=30"

	relayChunkSize = 64 * 1024
)

// originHeaderAllowlist names the origin response headers mirrored to the
// consumer on proxied muxed playback.
var originHeaderAllowlist = []string{
	"Content-Type",
	"Content-Length",
	"Accept-Ranges",
	"Content-Range",
	"Last-Modified",
	"ETag",
	"Cache-Control",
}

// Prober resolves a video id to a Probe; Refresh bypasses the cache after a
// signed URL expired.
type Prober interface {
	Probe(ctx context.Context, id string) (*probe.Probe, error)
	Refresh(ctx context.Context, id string) (*probe.Probe, error)
}

// Remuxer live-muxes a split video/audio pair into the writer.
type Remuxer interface {
	Stream(ctx context.Context, w io.Writer, videoURL, audioURL string, hdrs map[string]string) error
}

// Config holds the proxy's routing switches.
type Config struct {
	StreamMode string // config.StreamModeProxy or config.StreamModeRedirect
}

// Server implements the playback endpoints.
type Server struct {
	cfg     Config
	prober  Prober
	remuxer Remuxer
	logger  zerolog.Logger

	// streamClient relays origin bodies; no overall timeout, streaming is
	// unbounded and idle detection is the transport's job.
	streamClient *http.Client
	// preflightClient serves the tiny ranged GET used by HEAD.
	preflightClient *http.Client
	// manifestClient fetches HLS manifests.
	manifestClient *http.Client
}

// New creates a playback proxy server.
func New(cfg Config, p Prober, r Remuxer, logger zerolog.Logger) *Server {
	return &Server{
		cfg:             cfg,
		prober:          p,
		remuxer:         r,
		logger:          logger,
		streamClient:    &http.Client{},
		preflightClient: &http.Client{Timeout: preflightTimeout},
		manifestClient:  &http.Client{Timeout: manifestTimeout},
	}
}

// playParams carries the parsed request inputs for one playback call.
type playParams struct {
	id           string
	policy       string
	itag         string
	wantRedirect bool
	debug        bool
}

func (s *Server) parsePlayParams(r *http.Request) (playParams, error) {
	q := r.URL.Query()
	p := playParams{
		id:     chi.URLParam(r, "id"),
		policy: q.Get("policy"),
		itag:   q.Get("itag"),
		debug:  q.Get("debug") == "1",
	}
	if p.id == "" {
		return p, apierr.New(apierr.KindBadRequest, "missing video id")
	}
	if p.policy == "" {
		p.policy = selector.DefaultPolicy
	}

	p.wantRedirect = s.cfg.StreamMode == config.StreamModeRedirect
	if v := q.Get("force_redirect"); v != "" {
		override, err := strconv.ParseBool(v)
		if err != nil {
			return p, apierr.New(apierr.KindBadRequest, "invalid force_redirect value %q", v)
		}
		p.wantRedirect = override
	}
	return p, nil
}

func (s *Server) selectionFor(p *probe.Probe, params playParams) *selector.Selection {
	return selector.Pick(p, selector.Request{Policy: params.policy, Itag: params.itag})
}

// setDebugHeaders exposes routing internals when debug=1 was requested.
func setDebugHeaders(w http.ResponseWriter, params playParams, mode string, sel *selector.Selection) {
	if !params.debug {
		return
	}
	h := w.Header()
	h.Set("x-ytbridge-mode", mode)
	h.Set("x-ytbridge-want-redirect", strconv.FormatBool(params.wantRedirect))
	h.Set("x-ytbridge-policy", params.policy)
	if params.itag != "" {
		h.Set("x-ytbridge-itag", params.itag)
	}
	kind := "other"
	if sel != nil {
		kind = string(sel.Kind)
	}
	h.Set("x-ytbridge-kind", kind)
}

// copyAllowlistedHeaders mirrors the allow-listed origin headers and fills
// the defaults for anything the origin omitted.
func copyAllowlistedHeaders(w http.ResponseWriter, origin http.Header) {
	for _, name := range originHeaderAllowlist {
		if v := origin.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	setHeaderDefault(w, "Accept-Ranges", "bytes")
	setHeaderDefault(w, "Content-Type", "video/mp4")
	setHeaderDefault(w, "Cache-Control", "no-store")
}

func setHeaderDefault(w http.ResponseWriter, name, value string) {
	if w.Header().Get(name) == "" {
		w.Header().Set(name, value)
	}
}

// redirect answers a 302 to a delivery URL after validating it. Extractor
// output never reaches a Location header unchecked.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, rawURL string) {
	target, err := netutil.ValidateStreamURL(rawURL)
	if err != nil {
		apierr.Respond(w, apierr.Wrap(apierr.KindBadGateway, err, "invalid delivery URL"))
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// openStream issues the origin GET with the composed headers, following
// redirects, returning the raw response for the caller to inspect.
func (s *Server) openStream(ctx context.Context, url string, hdrs map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "invalid origin URL")
	}
	headers.Apply(req, hdrs)
	resp, err := s.streamClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "origin request failed")
	}
	return resp, nil
}

// relayBody streams the origin body to the consumer until EOF or the
// consumer goes away. Byte order within the single response is preserved.
func (s *Server) relayBody(w http.ResponseWriter, body io.Reader) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, relayChunkSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return // consumer disconnected
			}
			metrics.AddProxyBytes(int64(n))
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
