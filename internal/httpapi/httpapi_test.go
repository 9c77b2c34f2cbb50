// SPDX-License-Identifier: MIT

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbridge/internal/apierr"
	"ytbridge/internal/config"
	"ytbridge/internal/probe"
	"ytbridge/internal/streamproxy"
)

type stubProber struct {
	p   *probe.Probe
	err error
}

func (s *stubProber) Probe(_ context.Context, _ string) (*probe.Probe, error) {
	return s.p, s.err
}

func (s *stubProber) Refresh(_ context.Context, _ string) (*probe.Probe, error) {
	return s.p, s.err
}

func testProbe() *probe.Probe {
	return &probe.Probe{
		ID:       "VID",
		Title:    "a video",
		Duration: 63,
		Formats: []probe.Format{
			{FormatID: "18", VCodec: "avc1", ACodec: "mp4a", Ext: "mp4", Height: 360, TBR: 550, URL: "https://x/18"},
			{FormatID: "137", VCodec: "avc1", ACodec: "none", Height: 1080, TBR: 4400, URL: "https://x/137"},
			{FormatID: "140", VCodec: "none", ACodec: "mp4a", ABR: 129, URL: "https://x/140"},
			{FormatID: "sb0", Ext: "mhtml", URL: "https://x/sb"},
		},
	}
}

func newRouter(sp *stubProber) http.Handler {
	proxy := streamproxy.New(
		streamproxy.Config{StreamMode: config.StreamModeProxy},
		sp, nil, zerolog.Nop(),
	)
	return New(Deps{Proxy: proxy, Prober: sp})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubProber{p: testProbe()}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpointServes(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubProber{p: testProbe()}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestFormatsListing(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubProber{p: testProbe()}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats/VID", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Formats []struct {
			Itag     string `json:"itag"`
			HasVideo bool   `json:"has_video"`
			HasAudio bool   `json:"has_audio"`
		} `json:"formats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "VID", resp.ID)
	assert.Equal(t, "a video", resp.Title)
	require.Len(t, resp.Formats, 3, "storyboard excluded")
	assert.Equal(t, "18", resp.Formats[0].Itag, "progressive first")
	assert.Equal(t, "137", resp.Formats[1].Itag)
	assert.Equal(t, "140", resp.Formats[2].Itag)
}

func TestFormatsExtractorFailure(t *testing.T) {
	sp := &stubProber{err: apierr.New(apierr.KindBadGateway, "extractor failed")}
	rec := httptest.NewRecorder()
	newRouter(sp).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats/VID", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestResolveMergesMetadataAndSelection(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubProber{p: testProbe()}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/resolve?video_id=VID&policy=h264_mp4", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "VID", resp["id"])
	assert.Equal(t, "a video", resp["title"])
	assert.Equal(t, float64(63), resp["duration"])
	assert.Equal(t, "muxed", resp["kind"])
	assert.Equal(t, "https://x/18", resp["url"])
	assert.Equal(t, "mp4", resp["container"])
	assert.NotNil(t, resp["chapters"])
	assert.NotNil(t, resp["subtitles"])
}

func TestResolveByItagSplit(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubProber{p: testProbe()}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/resolve?video_id=VID&itag=137", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "split", resp["kind"])
	assert.Equal(t, "https://x/137", resp["video_url"])
	assert.Equal(t, "https://x/140", resp["audio_url"])
}

func TestResolveMissingVideoID(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubProber{p: testProbe()}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveNothingPlayable(t *testing.T) {
	sp := &stubProber{p: &probe.Probe{ID: "VID"}}
	rec := httptest.NewRecorder()
	newRouter(sp).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve?video_id=VID", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPlayRouteIsWired(t *testing.T) {
	sp := &stubProber{p: &probe.Probe{ID: "VID", Formats: []probe.Format{
		{FormatID: "18", VCodec: "avc1", ACodec: "mp4a", Ext: "mp4", URL: "https://origin/18"},
	}}}
	rec := httptest.NewRecorder()
	newRouter(sp).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/play/VID?force_redirect=true", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://origin/18", rec.Header().Get("Location"))
}
