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

// HandlePlay serves GET /play/{id}.
func (s *Server) HandlePlay(w http.ResponseWriter, r *http.Request) {
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
		// No progressive or split delivery; an HLS manifest may still work.
		sel = selector.FindHLS(p, "")
		if sel == nil {
			apierr.Respond(w, apierr.New(apierr.KindBadGateway,
				"no playable stream (progressive or split) found"))
			return
		}
	}

	switch sel.Kind {
	case selector.KindHLS:
		mode := "proxy"
		if params.wantRedirect {
			mode = "redirect"
		}
		setDebugHeaders(w, params, mode, sel)
		metrics.IncPlayRequest(string(sel.Kind), mode)
		s.serveHLS(w, r, sel, params.wantRedirect)

	case selector.KindMuxed:
		s.serveMuxed(w, r, params, p, sel)

	case selector.KindSplit:
		setDebugHeaders(w, params, "remux", sel)
		metrics.IncPlayRequest(string(sel.Kind), "remux")
		s.serveSplit(w, r, p, sel)
	}
}

// serveMuxed proxies (or redirects to) a progressive origin URL, refreshing
// the signed URL at most once on 403/410.
func (s *Server) serveMuxed(w http.ResponseWriter, r *http.Request, params playParams, p *probe.Probe, sel *selector.Selection) {
	if params.wantRedirect {
		setDebugHeaders(w, params, "redirect", sel)
		metrics.IncPlayRequest(string(sel.Kind), "redirect")
		s.redirect(w, r, sel.URL)
		return
	}

	setDebugHeaders(w, params, "proxy", sel)
	metrics.IncPlayRequest(string(sel.Kind), "proxy")

	hdrs := headers.Build(p, r)
	headers.ForceZeroRange(hdrs)

	resp, err := s.openStream(r.Context(), sel.URL, hdrs)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone {
		_ = resp.Body.Close()
		resp, p = s.refreshAndReopen(w, r, params, p)
		if resp == nil {
			return // refreshAndReopen already answered
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		status := resp.StatusCode
		_ = resp.Body.Close()
		if s.tryHLSFallback(w, r, p, params) {
			return
		}
		apierr.Respond(w, apierr.New(apierr.KindBadGateway, "origin status %d", status))
		return
	}

	defer func() { _ = resp.Body.Close() }()

	copyAllowlistedHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)
	s.relayBody(w, resp.Body)
}

// refreshAndReopen performs the single allowed refresh cycle: re-probe
// bypassing the cache, re-select, rebuild headers, reopen. A nil response
// means the request has already been answered (fallback or error).
func (s *Server) refreshAndReopen(w http.ResponseWriter, r *http.Request, params playParams, stale *probe.Probe) (*http.Response, *probe.Probe) {
	s.logger.Info().
		Str("id", params.id).
		Msg("signed URL expired, refreshing probe")

	p, err := s.prober.Refresh(r.Context(), params.id)
	if err != nil {
		metrics.IncProxyRefresh("failed")
		apierr.Respond(w, err)
		return nil, nil
	}

	sel := s.selectionFor(p, params)
	if sel == nil || sel.Kind != selector.KindMuxed {
		// The refreshed probe no longer offers a progressive delivery.
		metrics.IncProxyRefresh("failed")
		if s.tryHLSFallback(w, r, p, params) {
			return nil, nil
		}
		apierr.Respond(w, apierr.New(apierr.KindBadGateway,
			"no playable stream after refresh"))
		return nil, nil
	}

	hdrs := headers.Build(p, r)
	headers.ForceZeroRange(hdrs)

	resp, err := s.openStream(r.Context(), sel.URL, hdrs)
	if err != nil {
		metrics.IncProxyRefresh("failed")
		apierr.Respond(w, err)
		return nil, nil
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone {
		// Second failure: no loop, fall through to HLS or error out.
		status := resp.StatusCode
		_ = resp.Body.Close()
		metrics.IncProxyRefresh("failed")
		if s.tryHLSFallback(w, r, p, params) {
			return nil, nil
		}
		apierr.Respond(w, apierr.New(apierr.KindBadGateway,
			"origin refused playback after refresh (%d)", status))
		return nil, nil
	}

	metrics.IncProxyRefresh("recovered")
	return resp, p
}

// serveSplit hands the request to the remux pipeline. The 200 header is
// deferred to the first muxed byte so a spawn failure can still surface its
// real status.
func (s *Server) serveSplit(w http.ResponseWriter, r *http.Request, p *probe.Probe, sel *selector.Selection) {
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Accept-Ranges", "none")
	w.Header().Set("Cache-Control", "no-store")

	dw := &deferredHeaderWriter{w: w, status: http.StatusOK}

	err := s.remuxer.Stream(r.Context(), dw, sel.VideoURL, sel.AudioURL, headers.Build(p, nil))
	if err != nil {
		if !dw.wrote && r.Context().Err() == nil {
			apierr.Respond(w, err)
			return
		}
		if r.Context().Err() == nil {
			// Headers are long gone; all we can do is log.
			s.logger.Error().Err(err).Str("id", p.ID).Msg("remux stream ended with error")
		}
		return
	}
	if !dw.wrote {
		w.WriteHeader(dw.status)
	}
}

// deferredHeaderWriter delays WriteHeader until the first body byte.
type deferredHeaderWriter struct {
	w      http.ResponseWriter
	status int
	wrote  bool
}

func (d *deferredHeaderWriter) Write(p []byte) (int, error) {
	if !d.wrote {
		d.wrote = true
		d.w.WriteHeader(d.status)
	}
	return d.w.Write(p)
}

// Flush forwards to the underlying writer so remux output streams promptly.
func (d *deferredHeaderWriter) Flush() {
	if f, ok := d.w.(http.Flusher); ok {
		f.Flush()
	}
}
