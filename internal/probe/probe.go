// SPDX-License-Identifier: MIT

// Package probe defines the extractor's output data model: the per-video
// Probe record and its candidate Formats, decoded from yt-dlp style JSON.
// Missing or null fields decode to zero values and are treated as absent.
package probe

import (
	"strings"
)

// Probe is the structured metadata for one video, immutable per extraction.
type Probe struct {
	ID         string                     `json:"id"`
	Title      string                     `json:"title"`
	Duration   float64                    `json:"duration"`
	Thumbnails []Thumbnail                `json:"thumbnails,omitempty"`
	Chapters   []Chapter                  `json:"chapters,omitempty"`
	Subtitles  map[string][]SubtitleTrack `json:"subtitles,omitempty"`
	Formats    []Format                   `json:"formats,omitempty"`

	// Headers yt-dlp suggests for fetching media from the origin.
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`

	Extractor  string `json:"extractor,omitempty"`
	WebpageURL string `json:"webpage_url,omitempty"`

	// Carried for metadata completeness; never consulted by selection.
	Uploader    string  `json:"uploader,omitempty"`
	UploadDate  string  `json:"upload_date,omitempty"`
	ViewCount   int64   `json:"view_count,omitempty"`
	LikeCount   int64   `json:"like_count,omitempty"`
	AverageRate float64 `json:"average_rating,omitempty"`
	AgeLimit    int     `json:"age_limit,omitempty"`
	IsLive      bool    `json:"is_live,omitempty"`
	WasLive     bool    `json:"was_live,omitempty"`
	LiveStatus  string  `json:"live_status,omitempty"`
	Epoch       int64   `json:"epoch,omitempty"`
}

// Thumbnail is one preview image variant.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Chapter is a named time range within the video.
type Chapter struct {
	Title     string  `json:"title"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// SubtitleTrack is one subtitle delivery for a language.
type SubtitleTrack struct {
	URL  string `json:"url"`
	Ext  string `json:"ext,omitempty"`
	Name string `json:"name,omitempty"`
}

// Format is one candidate delivery of the probe's media.
type Format struct {
	FormatID      string  `json:"format_id"`
	FormatNote    string  `json:"format_note,omitempty"`
	Container     string  `json:"container,omitempty"`
	Ext           string  `json:"ext,omitempty"`
	VCodec        string  `json:"vcodec,omitempty"`
	ACodec        string  `json:"acodec,omitempty"`
	AudioExt      string  `json:"audio_ext,omitempty"`
	Height        int     `json:"height,omitempty"`
	Width         int     `json:"width,omitempty"`
	FPS           float64 `json:"fps,omitempty"`
	TBR           float64 `json:"tbr,omitempty"`
	ABR           float64 `json:"abr,omitempty"`
	ASR           float64 `json:"asr,omitempty"`
	AudioChannels int     `json:"audio_channels,omitempty"`
	QualityLabel  string  `json:"quality_label,omitempty"`
	URL           string  `json:"url,omitempty"`
	Protocol      string  `json:"protocol,omitempty"`
}

var audioExts = map[string]bool{
	"m4a":  true,
	"webm": true,
	"mp3":  true,
	"opus": true,
}

// HasVideo reports whether the format carries a video track. An absent vcodec
// is inferred from video-shaped attributes.
func (f Format) HasVideo() bool {
	v := strings.ToLower(f.VCodec)
	if v != "" && v != "none" {
		return true
	}
	if v == "none" {
		return false
	}
	return f.Height > 0 || f.FPS > 0
}

// HasAudio reports whether the format carries an audio track. An absent or
// "none" acodec is inferred from audio-shaped attributes.
func (f Format) HasAudio() bool {
	a := strings.ToLower(f.ACodec)
	if a != "" && a != "none" {
		return true
	}
	return f.ABR > 0 || f.ASR > 0 || f.AudioChannels > 0 ||
		audioExts[strings.ToLower(f.AudioExt)] ||
		(a == "" && audioExts[strings.ToLower(f.Ext)])
}

// IsMuxed reports a single delivery carrying both audio and video.
func (f Format) IsMuxed() bool {
	return f.HasVideo() && f.HasAudio()
}

// IsVideoOnly reports a video track without audio.
func (f Format) IsVideoOnly() bool {
	return f.HasVideo() && !f.HasAudio()
}

// IsAudioOnly reports an audio track without video.
func (f Format) IsAudioOnly() bool {
	return f.HasAudio() && !f.HasVideo()
}

// IsHLS reports an HTTP Live Streaming manifest delivery.
func (f Format) IsHLS() bool {
	u := f.URL
	return strings.HasSuffix(u, ".m3u8") || strings.Contains(u, "manifest/hls_playlist")
}

// IsStoryboard reports a preview-image pseudo format. Storyboards are never
// playable and are excluded from selection.
func (f Format) IsStoryboard() bool {
	if strings.HasPrefix(f.FormatID, "sb") {
		return true
	}
	if strings.EqualFold(f.Protocol, "mhtml") || strings.EqualFold(f.Ext, "mhtml") {
		return true
	}
	note := strings.ToLower(f.FormatNote)
	return strings.Contains(note, "storyboard") || strings.Contains(note, "preview")
}
