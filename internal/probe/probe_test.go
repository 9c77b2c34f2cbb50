// SPDX-License-Identifier: MIT

package probe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaCompositionPredicates(t *testing.T) {
	tests := []struct {
		name      string
		f         Format
		muxed     bool
		videoOnly bool
		audioOnly bool
	}{
		{
			name:  "classic progressive mp4",
			f:     Format{FormatID: "18", VCodec: "avc1.42001E", ACodec: "mp4a.40.2", Ext: "mp4"},
			muxed: true,
		},
		{
			name:      "dash video",
			f:         Format{FormatID: "137", VCodec: "avc1.640028", ACodec: "none", Height: 1080},
			videoOnly: true,
		},
		{
			name:      "dash audio",
			f:         Format{FormatID: "140", VCodec: "none", ACodec: "mp4a.40.2", ABR: 129},
			audioOnly: true,
		},
		{
			name:      "video inferred from height when vcodec missing",
			f:         Format{FormatID: "x", Height: 720, ACodec: "none"},
			videoOnly: true,
		},
		{
			name:      "audio inferred from abr when acodec missing",
			f:         Format{FormatID: "y", ABR: 64},
			audioOnly: true,
		},
		{
			name:      "audio inferred from audio_ext",
			f:         Format{FormatID: "z", AudioExt: "m4a"},
			audioOnly: true,
		},
		{
			name: "explicit none codecs with no hints",
			f:    Format{FormatID: "q", VCodec: "none", ACodec: "none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.muxed, tt.f.IsMuxed(), "muxed")
			assert.Equal(t, tt.videoOnly, tt.f.IsVideoOnly(), "video-only")
			assert.Equal(t, tt.audioOnly, tt.f.IsAudioOnly(), "audio-only")
		})
	}
}

func TestIsHLS(t *testing.T) {
	assert.True(t, Format{URL: "https://x/playlist/index.m3u8"}.IsHLS())
	assert.True(t, Format{URL: "https://x/api/manifest/hls_playlist/itag/94/x"}.IsHLS())
	assert.False(t, Format{URL: "https://x/videoplayback?itag=18"}.IsHLS())
}

func TestIsStoryboard(t *testing.T) {
	assert.True(t, Format{FormatID: "sb0"}.IsStoryboard())
	assert.True(t, Format{FormatID: "x", Ext: "mhtml"}.IsStoryboard())
	assert.True(t, Format{FormatID: "x", Protocol: "mhtml"}.IsStoryboard())
	assert.True(t, Format{FormatID: "x", FormatNote: "storyboard"}.IsStoryboard())
	assert.True(t, Format{FormatID: "x", FormatNote: "Preview frames"}.IsStoryboard())
	assert.False(t, Format{FormatID: "18", Ext: "mp4"}.IsStoryboard())
}

func TestDecodeToleratesNullsAndNoise(t *testing.T) {
	raw := `{
		"id": "abc123",
		"title": "a video",
		"duration": 63.5,
		"height": null,
		"formats": [
			{"format_id": "18", "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a", "tbr": 550.2, "url": "https://x/18"},
			{"format_id": "sb0", "ext": "mhtml", "url": "https://x/sb"}
		],
		"http_headers": {"User-Agent": "UA"},
		"unknown_future_field": {"nested": [1,2,3]}
	}`

	var p Probe
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, "abc123", p.ID)
	assert.Len(t, p.Formats, 2)
	assert.Equal(t, "UA", p.HTTPHeaders["User-Agent"])
}

func TestMapFormatsDropsAndSorts(t *testing.T) {
	p := &Probe{Formats: []Format{
		{FormatID: "140", VCodec: "none", ACodec: "mp4a", ABR: 129, TBR: 130, URL: "https://x/140"},
		{FormatID: "sb0", Ext: "mhtml", URL: "https://x/sb"},
		{FormatID: "nourl", VCodec: "avc1", ACodec: "mp4a"},
		{FormatID: "18", VCodec: "avc1", ACodec: "mp4a", Height: 360, TBR: 550, Ext: "mp4", URL: "https://x/18"},
		{FormatID: "22", VCodec: "avc1", ACodec: "mp4a", Height: 720, TBR: 1200, Ext: "mp4", URL: "https://x/22"},
		{FormatID: "137", VCodec: "avc1", ACodec: "none", Height: 1080, TBR: 4400, URL: "https://x/137"},
	}}

	got := MapFormats(p)
	require.Len(t, got, 4)

	// Progressive first (22 then 18), then non-progressive by height desc.
	assert.Equal(t, "22", got[0].Itag)
	assert.Equal(t, "18", got[1].Itag)
	assert.Equal(t, "137", got[2].Itag)
	assert.Equal(t, "140", got[3].Itag)

	assert.Equal(t, "none", got[3].VCodec)
	assert.True(t, got[3].HasAudio)
	assert.False(t, got[3].HasVideo)
}
