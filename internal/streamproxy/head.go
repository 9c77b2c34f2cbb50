// SPDX-License-Identifier: MIT

package streamproxy

import (
	"net/http"

	"ytbridge/internal/apierr"
	"ytbridge/internal/headers"
	"ytbridge/internal/metrics"
	"ytbridge/internal/probe"
	"ytbridge/internal/selector"
)

// HandlePlayHead serves HEAD /play/{id}. HEAD against the origin is
// unreliable on some edges, so proxy mode preflights with a tiny ranged GET
// and mirrors its headers without reading the body.
func (s *Server) HandlePlayHead(w http.ResponseWriter, r *http.Request) {
	params, err := s.parsePlayParams(r)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	p, err := s.prober.Probe(r.Context(), params.id)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	sel := s.selectionFor(p, params)
	if sel == nil {
		sel = selector.FindHLS(p, "")
		if sel == nil {
			apierr.Respond(w, apierr.New(apierr.KindBadGateway,
				"no playable stream (progressive or split) found"))
			return
		}
	}

	if params.wantRedirect && sel.Kind != selector.KindSplit {
		// Redirect mode answers before any origin preflight.
		setDebugHeaders(w, params, "head-redirect", sel)
		s.redirect(w, r, sel.URL)
		return
	}

	switch sel.Kind {
	case selector.KindHLS:
		setDebugHeaders(w, params, "head-proxy", sel)
		w.Header().Set("Content-Type", hlsContentType)
		w.Header().Set("Accept-Ranges", "none")
		w.WriteHeader(http.StatusOK)

	case selector.KindSplit:
		setDebugHeaders(w, params, "head-remux", sel)
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Accept-Ranges", "none")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)

	case selector.KindMuxed:
		setDebugHeaders(w, params, "head-proxy", sel)
		s.headMuxed(w, r, params, p, sel)
	}
}

// headMuxed mirrors real origin headers obtained via a tiny ranged GET,
// applying the same single-refresh rule as the GET path.
func (s *Server) headMuxed(w http.ResponseWriter, r *http.Request, params playParams, p *probe.Probe, sel *selector.Selection) {
	clientRange := r.Header.Get("Range")

	resp, err := s.preflight(r, p, sel, clientRange)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone {
		_ = resp.Body.Close()

		p2, err := s.prober.Refresh(r.Context(), params.id)
		if err != nil {
			metrics.IncProxyRefresh("failed")
			apierr.Respond(w, err)
			return
		}
		sel2 := s.selectionFor(p2, params)
		if sel2 == nil || sel2.Kind != selector.KindMuxed {
			metrics.IncProxyRefresh("failed")
			apierr.Respond(w, apierr.New(apierr.KindBadGateway, "no playable stream after refresh"))
			return
		}

		resp, err = s.preflight(r, p2, sel2, clientRange)
		if err != nil {
			metrics.IncProxyRefresh("failed")
			apierr.Respond(w, err)
			return
		}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone {
			status := resp.StatusCode
			_ = resp.Body.Close()
			metrics.IncProxyRefresh("failed")
			apierr.Respond(w, apierr.New(apierr.KindBadGateway,
				"origin refused playback after refresh (%d)", status))
			return
		}
		metrics.IncProxyRefresh("recovered")
	}

	// Close without reading: only the headers matter here.
	_ = resp.Body.Close()

	copyAllowlistedHeaders(w, resp.Header)

	status := http.StatusOK
	if clientRange != "" && resp.StatusCode == http.StatusPartialContent {
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)
}

// preflight issues the ranged GET used to discover origin headers. The
// client's own Range wins; without one a one-byte range keeps it cheap.
func (s *Server) preflight(r *http.Request, p *probe.Probe, sel *selector.Selection, clientRange string) (*http.Response, error) {
	hdrs := headers.Build(p, r)
	if clientRange == "" {
		hdrs["Range"] = "bytes=0-0"
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, sel.URL, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "invalid origin URL")
	}
	headers.Apply(req, hdrs)

	resp, err := s.preflightClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "origin preflight failed")
	}
	return resp, nil
}
