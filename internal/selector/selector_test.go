// SPDX-License-Identifier: MIT

package selector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbridge/internal/probe"
)

func fullProbe() *probe.Probe {
	return &probe.Probe{
		ID: "vid",
		Formats: []probe.Format{
			{FormatID: "sb0", Ext: "mhtml", URL: "https://x/sb0"},
			{FormatID: "18", VCodec: "avc1.42001E", ACodec: "mp4a.40.2", Ext: "mp4", Height: 360, TBR: 550, URL: "https://x/18"},
			{FormatID: "22", VCodec: "avc1.64001F", ACodec: "mp4a.40.2", Ext: "mp4", Height: 720, TBR: 1200, URL: "https://x/22"},
			{FormatID: "43", VCodec: "vp8", ACodec: "vorbis", Ext: "webm", Height: 360, TBR: 600, URL: "https://x/43"},
			{FormatID: "137", VCodec: "avc1.640028", ACodec: "none", Ext: "mp4", Height: 1080, TBR: 4400, URL: "https://x/137"},
			{FormatID: "248", VCodec: "vp9", ACodec: "none", Ext: "webm", Height: 1080, TBR: 3800, URL: "https://x/248"},
			{FormatID: "140", VCodec: "none", ACodec: "mp4a.40.2", Ext: "m4a", ABR: 129, TBR: 130, URL: "https://x/140"},
			{FormatID: "251", VCodec: "none", ACodec: "opus", Ext: "webm", ABR: 160, TBR: 161, URL: "https://x/251"},
		},
	}
}

func splitOnlyProbe() *probe.Probe {
	p := fullProbe()
	var kept []probe.Format
	for _, f := range p.Formats {
		if !f.IsMuxed() {
			kept = append(kept, f)
		}
	}
	p.Formats = kept
	return p
}

func TestPickByItagMuxed(t *testing.T) {
	sel := PickByItag(fullProbe(), "18")
	require.NotNil(t, sel)
	assert.Equal(t, KindMuxed, sel.Kind)
	assert.Equal(t, "https://x/18", sel.URL)
	assert.Equal(t, "mp4", sel.Container)
	assert.Equal(t, "avc1.42001E+mp4a.40.2", sel.Codecs)
	assert.Equal(t, "18", sel.Itag)
}

func TestPickByItagVideoOnlyPairsBestAudio(t *testing.T) {
	sel := PickByItag(fullProbe(), "137")
	require.NotNil(t, sel)
	assert.Equal(t, KindSplit, sel.Kind)
	assert.Equal(t, "https://x/137", sel.VideoURL)
	// 140 wins over 251: mp4-family audio beats higher abr.
	assert.Equal(t, "https://x/140", sel.AudioURL)
	assert.Equal(t, "mp4", sel.Container)
}

func TestPickByItagAudioOnlyPairsBestVideo(t *testing.T) {
	sel := PickByItag(fullProbe(), "140")
	require.NotNil(t, sel)
	assert.Equal(t, KindSplit, sel.Kind)
	assert.Equal(t, "https://x/140", sel.AudioURL)
	// 137 wins over 248: same height, higher tbr.
	assert.Equal(t, "https://x/137", sel.VideoURL)
}

func TestPickByItagUnknownOrUnusable(t *testing.T) {
	assert.Nil(t, PickByItag(fullProbe(), "999"))
	assert.Nil(t, PickByItag(fullProbe(), "sb0"), "storyboards are never selected")

	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "18", VCodec: "avc1", ACodec: "mp4a"}, // no URL
	}}
	assert.Nil(t, PickByItag(p, "18"))
}

func TestPickByItagVideoOnlyWithoutAudioCounterpart(t *testing.T) {
	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "137", VCodec: "avc1", ACodec: "none", Height: 1080, URL: "https://x/137"},
	}}
	assert.Nil(t, PickByItag(p, "137"))
}

func TestPolicyH264MP4PrefersMuxedMP4MaxTBR(t *testing.T) {
	sel := PickByPolicy(fullProbe(), "h264_mp4")
	require.NotNil(t, sel)
	assert.Equal(t, KindMuxed, sel.Kind)
	assert.Equal(t, "22", sel.Itag, "max tbr among mp4-muxed candidates")
}

func TestPolicyFallsBackToAnyMuxed(t *testing.T) {
	p := fullProbe()
	var kept []probe.Format
	for _, f := range p.Formats {
		if f.Ext != "mp4" || !f.IsMuxed() {
			kept = append(kept, f)
		}
	}
	p.Formats = kept

	sel := PickByPolicy(p, "h264_mp4")
	require.NotNil(t, sel)
	assert.Equal(t, KindMuxed, sel.Kind)
	assert.Equal(t, "43", sel.Itag)
	assert.Equal(t, "webm", sel.Container)
}

func TestPolicySplitFallback(t *testing.T) {
	sel := PickByPolicy(splitOnlyProbe(), "h264_mp4")
	require.NotNil(t, sel)
	assert.Equal(t, KindSplit, sel.Kind)
	assert.Equal(t, "https://x/137", sel.VideoURL, "max (height, tbr)")
	assert.Equal(t, "https://x/140", sel.AudioURL, "mp4-family audio preferred")
	assert.Equal(t, "mp4", sel.Container)
}

func TestPolicyHLSLastResort(t *testing.T) {
	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "94", URL: "https://x/manifest/hls_playlist/itag/94/index.m3u8", Protocol: "m3u8_native"},
	}}
	sel := PickByPolicy(p, "h264_mp4")
	require.NotNil(t, sel)
	assert.Equal(t, KindHLS, sel.Kind)
	assert.Equal(t, "94", sel.Itag)
}

func TestPolicyNothingPlayable(t *testing.T) {
	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "sb0", Ext: "mhtml", URL: "https://x/sb"},
	}}
	assert.Nil(t, PickByPolicy(p, "h264_mp4"))
	assert.Nil(t, PickByPolicy(&probe.Probe{}, "best"))
}

func TestPickRepeatedCallsAreDeepEqual(t *testing.T) {
	p := fullProbe()
	for _, req := range []Request{{Policy: "h264_mp4"}, {Policy: "best"}, {Itag: "137"}, {Itag: "18"}} {
		a := Pick(p, req)
		b := Pick(p, req)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("Pick(%+v) not deterministic (-first +second):\n%s", req, diff)
		}
	}
}

func TestFindHLSPreferenceOrder(t *testing.T) {
	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "96", URL: "https://x/96.m3u8"},
		{FormatID: "95", URL: "https://x/95.m3u8"},
	}}
	sel := FindHLS(p, "")
	require.NotNil(t, sel)
	assert.Equal(t, "95", sel.Itag, "95 outranks 96")

	sel = FindHLS(p, "96")
	require.NotNil(t, sel)
	assert.Equal(t, "96", sel.Itag, "explicit preference wins")
}

func TestFindHLSScanFallback(t *testing.T) {
	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "18", VCodec: "avc1", ACodec: "mp4a", URL: "https://x/18"},
		{FormatID: "301", URL: "https://x/live/manifest/hls_playlist/301"},
	}}
	sel := FindHLS(p, "")
	require.NotNil(t, sel)
	assert.Equal(t, "301", sel.Itag)

	assert.Nil(t, FindHLS(fullProbe(), ""), "no HLS-shaped format present")
}

func TestStoryboardsNeverSelected(t *testing.T) {
	p := &probe.Probe{Formats: []probe.Format{
		{FormatID: "sb0", Ext: "mhtml", URL: "https://x/sb0", Height: 2160, TBR: 99999},
		{FormatID: "18", VCodec: "avc1", ACodec: "mp4a", Ext: "mp4", TBR: 550, URL: "https://x/18"},
	}}
	for _, req := range []Request{{Policy: "h264_mp4"}, {Policy: "best"}} {
		sel := Pick(p, req)
		require.NotNil(t, sel)
		assert.Equal(t, "18", sel.Itag)
	}
}
