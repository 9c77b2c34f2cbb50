// SPDX-License-Identifier: MIT

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ytbridge/internal/apierr"
	"ytbridge/internal/probe"
	"ytbridge/internal/selector"
)

type metadataHandlers struct {
	prober Prober
}

// formatsResponse is the /formats/{id} payload.
type formatsResponse struct {
	ID      string               `json:"id"`
	Title   string               `json:"title"`
	Formats []probe.MappedFormat `json:"formats"`
}

func (h *metadataHandlers) handleFormats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierr.Respond(w, apierr.New(apierr.KindBadRequest, "missing video id"))
		return
	}

	p, err := h.prober.Probe(r.Context(), id)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formatsResponse{
		ID:      id,
		Title:   p.Title,
		Formats: probe.MapFormats(p),
	})
}

// resolveResponse merges video metadata with the selection fields.
type resolveResponse struct {
	ID         string                           `json:"id"`
	Title      string                           `json:"title"`
	Duration   float64                          `json:"duration"`
	Thumbnails []probe.Thumbnail                `json:"thumbnails,omitempty"`
	Chapters   []probe.Chapter                  `json:"chapters"`
	Subtitles  map[string][]probe.SubtitleTrack `json:"subtitles"`

	selector.Selection
}

func (h *metadataHandlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("video_id")
	if id == "" {
		apierr.Respond(w, apierr.New(apierr.KindBadRequest, "missing video_id"))
		return
	}

	p, err := h.prober.Probe(r.Context(), id)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	sel := selector.Pick(p, selector.Request{Policy: q.Get("policy"), Itag: q.Get("itag")})
	if sel == nil {
		apierr.Respond(w, apierr.New(apierr.KindBadGateway, "no playable stream found"))
		return
	}

	chapters := p.Chapters
	if chapters == nil {
		chapters = []probe.Chapter{}
	}
	subtitles := p.Subtitles
	if subtitles == nil {
		subtitles = map[string][]probe.SubtitleTrack{}
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		ID:         id,
		Title:      p.Title,
		Duration:   p.Duration,
		Thumbnails: p.Thumbnails,
		Chapters:   chapters,
		Subtitles:  subtitles,
		Selection:  *sel,
	})
}
