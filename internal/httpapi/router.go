// SPDX-License-Identifier: MIT

// Package httpapi assembles the chi router for the service's HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"ytbridge/internal/log"
	"ytbridge/internal/probe"
	"ytbridge/internal/streamproxy"
)

// Prober is the read side of the extractor used by the metadata endpoints.
type Prober interface {
	Probe(ctx context.Context, id string) (*probe.Probe, error)
}

// Deps carries the collaborators the router wires together.
type Deps struct {
	Proxy  *streamproxy.Server
	Prober Prober

	// TracingService enables OpenTelemetry HTTP spans when non-empty.
	TracingService string
}

// New assembles the service router.
func New(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	if deps.TracingService != "" {
		r.Use(otelMiddleware(deps.TracingService))
	}
	r.Use(log.Middleware())

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/play/{id}", deps.Proxy.HandlePlay)
	r.Head("/play/{id}", deps.Proxy.HandlePlayHead)
	r.Get("/hls/{id}", deps.Proxy.HandleHLS)

	h := &metadataHandlers{prober: deps.Prober}
	r.Get("/formats/{id}", h.handleFormats)
	r.Get("/resolve", h.handleResolve)

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// otelMiddleware wraps handlers with OpenTelemetry HTTP spans, skipping the
// operational endpoints to reduce noise.
func otelMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithFilter(func(r *http.Request) bool {
				switch r.URL.Path {
				case "/healthz", "/metrics":
					return false
				}
				return true
			}),
		)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
