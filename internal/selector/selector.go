// SPDX-License-Identifier: MIT

// Package selector implements the format-selection algorithm: a pure mapping
// from a probe plus a selection request to a playable delivery.
package selector

import (
	"strings"

	"ytbridge/internal/probe"
)

// Kind tags the delivery shape of a Selection.
type Kind string

const (
	// KindMuxed is a single URL carrying both audio and video.
	KindMuxed Kind = "muxed"
	// KindSplit is a pair of video-only and audio-only URLs requiring remux.
	KindSplit Kind = "split"
	// KindHLS is an HTTP Live Streaming manifest URL.
	KindHLS Kind = "hls"
)

// Selection is one resolved delivery. Exactly the fields for its Kind are set.
type Selection struct {
	Kind      Kind   `json:"kind"`
	URL       string `json:"url,omitempty"`
	Container string `json:"container,omitempty"`
	Codecs    string `json:"codecs,omitempty"`
	Itag      string `json:"itag,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	AudioURL  string `json:"audio_url,omitempty"`
}

// Request names what the caller wants selected.
type Request struct {
	Policy string // "h264_mp4" or "best"; ignored when Itag is set
	Itag   string // explicit format id, optional
}

// DefaultPolicy is applied when a request names neither policy nor itag.
const DefaultPolicy = "h264_mp4"

// Pick resolves the request against the probe. A nil result means no playable
// delivery exists for it.
func Pick(p *probe.Probe, req Request) *Selection {
	if req.Itag != "" {
		return PickByItag(p, req.Itag)
	}
	policy := req.Policy
	if policy == "" {
		policy = DefaultPolicy
	}
	return PickByPolicy(p, policy)
}

// PickByItag honors a specific itag. A video-only or audio-only itag is
// paired with the best counterpart so playback can proceed.
func PickByItag(p *probe.Probe, itag string) *Selection {
	target := findByItag(p.Formats, itag)
	if target == nil {
		return nil
	}

	switch {
	case target.IsMuxed():
		return muxedSelection(*target)
	case target.IsVideoOnly():
		audio := bestAudio(p.Formats)
		if audio == nil {
			return nil
		}
		return &Selection{Kind: KindSplit, Container: "mp4", VideoURL: target.URL, AudioURL: audio.URL, Itag: itag}
	case target.IsAudioOnly():
		video := bestVideo(p.Formats)
		if video == nil {
			return nil
		}
		return &Selection{Kind: KindSplit, Container: "mp4", VideoURL: video.URL, AudioURL: target.URL, Itag: itag}
	}
	return nil
}

// PickByPolicy resolves a policy-driven request. Fallback order: muxed mp4
// (h264_mp4 only), any muxed, split pair, HLS manifest.
func PickByPolicy(p *probe.Probe, policy string) *Selection {
	var best *probe.Format
	if policy == "h264_mp4" {
		best = bestMuxed(p.Formats, "mp4")
	}
	if best == nil {
		best = bestMuxed(p.Formats, "")
	}
	if best != nil {
		return muxedSelection(*best)
	}

	video := bestVideo(p.Formats)
	audio := bestAudio(p.Formats)
	if video != nil && audio != nil {
		return &Selection{Kind: KindSplit, Container: "mp4", VideoURL: video.URL, AudioURL: audio.URL}
	}

	return FindHLS(p, "")
}

func muxedSelection(f probe.Format) *Selection {
	container := f.Container
	if container == "" {
		container = f.Ext
	}
	if container == "" {
		container = "mp4"
	}
	codecs := strings.Trim(f.VCodec+"+"+f.ACodec, "+")
	return &Selection{Kind: KindMuxed, URL: f.URL, Container: container, Codecs: codecs, Itag: f.FormatID}
}

func findByItag(formats []probe.Format, itag string) *probe.Format {
	for i := range formats {
		f := &formats[i]
		if f.FormatID == itag && f.URL != "" && !f.IsStoryboard() {
			return f
		}
	}
	return nil
}

// selectable filters out storyboards and URL-less entries.
func selectable(f probe.Format) bool {
	return f.URL != "" && !f.IsStoryboard()
}

// bestMuxed picks the muxed format maximising tbr, optionally restricted to a
// container/ext preference.
func bestMuxed(formats []probe.Format, ext string) *probe.Format {
	var best *probe.Format
	for i := range formats {
		f := &formats[i]
		if !selectable(*f) || !f.IsMuxed() || f.IsHLS() {
			continue
		}
		if ext != "" && f.Container != ext && f.Ext != ext {
			continue
		}
		if best == nil || f.TBR > best.TBR {
			best = f
		}
	}
	return best
}

// bestVideo picks the best video-only track by (height, tbr), preferring avc
// then mp4 ext as tie-breaks.
func bestVideo(formats []probe.Format) *probe.Format {
	var best *probe.Format
	for i := range formats {
		f := &formats[i]
		if !selectable(*f) || !f.IsVideoOnly() || f.IsHLS() {
			continue
		}
		if best == nil || videoLess(*best, *f) {
			best = f
		}
	}
	return best
}

func videoLess(a, b probe.Format) bool {
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	if a.TBR != b.TBR {
		return a.TBR < b.TBR
	}
	if x, y := isAVC(a), isAVC(b); x != y {
		return y
	}
	return !isMP4Ext(a) && isMP4Ext(b)
}

func isAVC(f probe.Format) bool {
	return strings.HasPrefix(strings.ToLower(f.VCodec), "avc")
}

func isMP4Ext(f probe.Format) bool {
	return strings.EqualFold(f.Ext, "mp4") || strings.EqualFold(f.Container, "mp4")
}

// bestAudio picks the best audio-only track, preferring MP4-family audio,
// then higher abr, then higher tbr. Without any pure audio-only track it
// falls back to the best muxed track treated as audio source.
func bestAudio(formats []probe.Format) *probe.Format {
	var best *probe.Format
	for i := range formats {
		f := &formats[i]
		if !selectable(*f) || !f.IsAudioOnly() || f.IsHLS() {
			continue
		}
		if best == nil || audioLess(*best, *f) {
			best = f
		}
	}
	if best != nil {
		return best
	}

	// No pure audio track: fall back to a muxed one as the audio source.
	for i := range formats {
		f := &formats[i]
		if !selectable(*f) || !f.IsMuxed() || f.IsHLS() {
			continue
		}
		if best == nil || muxedAudioScore(*best) < muxedAudioScore(*f) ||
			(muxedAudioScore(*best) == muxedAudioScore(*f) && best.TBR < f.TBR) {
			best = f
		}
	}
	return best
}

func audioLess(a, b probe.Format) bool {
	if x, y := isMP4Audio(a), isMP4Audio(b); x != y {
		return y
	}
	if a.ABR != b.ABR {
		return a.ABR < b.ABR
	}
	return a.TBR < b.TBR
}

func isMP4Audio(f probe.Format) bool {
	a := strings.ToLower(f.ACodec)
	return strings.Contains(a, "mp4a") || strings.Contains(a, "aac") || strings.EqualFold(f.Ext, "m4a")
}

func muxedAudioScore(f probe.Format) int {
	score := 0
	if isMP4Ext(f) {
		score++
	}
	a := strings.ToLower(f.ACodec)
	if strings.Contains(a, "mp4a") || strings.Contains(a, "aac") {
		score++
	}
	return score
}
