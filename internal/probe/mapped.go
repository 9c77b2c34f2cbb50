// SPDX-License-Identifier: MIT

package probe

import "sort"

// MappedFormat is the flattened per-format view served by the formats listing.
type MappedFormat struct {
	Itag         string  `json:"itag"`
	Ext          string  `json:"ext,omitempty"`
	VCodec       string  `json:"vcodec"`
	ACodec       string  `json:"acodec"`
	Height       int     `json:"height,omitempty"`
	TBR          float64 `json:"tbr,omitempty"`
	QualityLabel string  `json:"quality_label,omitempty"`
	HasVideo     bool    `json:"has_video"`
	HasAudio     bool    `json:"has_audio"`
}

// MapFormats flattens the probe's formats for listing, dropping storyboards
// and URL-less entries, sorted progressive first, then height desc, then tbr
// desc.
func MapFormats(p *Probe) []MappedFormat {
	out := make([]MappedFormat, 0, len(p.Formats))
	for _, f := range p.Formats {
		if f.URL == "" || f.IsStoryboard() {
			continue
		}
		ext := f.Ext
		if ext == "" {
			ext = f.Container
		}
		vcodec := f.VCodec
		if vcodec == "" {
			vcodec = "none"
		}
		acodec := f.ACodec
		if acodec == "" {
			acodec = "none"
		}
		label := f.QualityLabel
		if label == "" {
			label = f.FormatNote
		}
		out = append(out, MappedFormat{
			Itag:         f.FormatID,
			Ext:          ext,
			VCodec:       vcodec,
			ACodec:       acodec,
			Height:       f.Height,
			TBR:          f.TBR,
			QualityLabel: label,
			HasVideo:     f.HasVideo(),
			HasAudio:     f.HasAudio(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].HasVideo && out[i].HasAudio, out[j].HasVideo && out[j].HasAudio
		if pi != pj {
			return pi
		}
		if out[i].Height != out[j].Height {
			return out[i].Height > out[j].Height
		}
		return out[i].TBR > out[j].TBR
	})

	return out
}
