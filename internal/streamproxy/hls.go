// SPDX-License-Identifier: MIT

package streamproxy

import (
	"net/http"

	"ytbridge/internal/apierr"
	"ytbridge/internal/metrics"
	"ytbridge/internal/probe"
	"ytbridge/internal/selector"
)

// defaultHLSItag is tried first by the explicit HLS endpoint.
const defaultHLSItag = "94"

// HandleHLS serves GET /hls/{id}: the explicit HLS endpoint.
func (s *Server) HandleHLS(w http.ResponseWriter, r *http.Request) {
	params, err := s.parsePlayParams(r)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	itag := params.itag
	if itag == "" {
		itag = defaultHLSItag
	}

	p, err := s.prober.Probe(r.Context(), params.id)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	sel := selector.FindHLS(p, itag)
	if sel == nil {
		apierr.Respond(w, apierr.New(apierr.KindNotFound, "no HLS manifest available"))
		return
	}

	mode := "proxy"
	if params.wantRedirect {
		mode = "redirect"
	}
	setDebugHeaders(w, params, mode, sel)
	metrics.IncPlayRequest(string(sel.Kind), mode)
	s.serveHLS(w, r, sel, params.wantRedirect)
}

// serveHLS answers an HLS selection: a 302 to the manifest in redirect mode,
// otherwise the manifest body fetched and relayed verbatim.
func (s *Server) serveHLS(w http.ResponseWriter, r *http.Request, sel *selector.Selection, wantRedirect bool) {
	if wantRedirect {
		s.redirect(w, r, sel.URL)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, sel.URL, nil)
	if err != nil {
		apierr.Respond(w, apierr.Wrap(apierr.KindBadGateway, err, "invalid manifest URL"))
		return
	}

	resp, err := s.manifestClient.Do(req)
	if err != nil {
		apierr.Respond(w, apierr.Wrap(apierr.KindBadGateway, err, "manifest fetch failed"))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		apierr.Respond(w, apierr.New(apierr.KindBadGateway, "manifest fetch status %d", resp.StatusCode))
		return
	}

	w.Header().Set("Content-Type", hlsContentType)
	w.Header().Set("Cache-Control", hlsCacheControl)
	w.WriteHeader(http.StatusOK)
	s.relayBody(w, resp.Body)
}

// tryHLSFallback reactively serves the probe's HLS manifest when a
// progressive delivery failed at the origin. Reports whether it answered.
func (s *Server) tryHLSFallback(w http.ResponseWriter, r *http.Request, p *probe.Probe, params playParams) bool {
	sel := selector.FindHLS(p, "")
	if sel == nil {
		return false
	}

	s.logger.Info().
		Str("id", params.id).
		Str("manifest_itag", sel.Itag).
		Msg("progressive delivery failed, falling back to HLS")

	metrics.IncPlayRequest(string(sel.Kind), "fallback")
	s.serveHLS(w, r, sel, params.wantRedirect)
	return true
}
