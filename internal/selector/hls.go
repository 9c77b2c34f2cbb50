// SPDX-License-Identifier: MIT

package selector

import "ytbridge/internal/probe"

// hlsItagPreference is the probe order for live-style HLS itags.
var hlsItagPreference = []string{"94", "95", "96"}

// FindHLS returns an HLS selection for the probe, or nil if none exists.
// With preferredItag set, that itag is tried first; otherwise the fixed
// preference order applies before scanning all formats for the first
// HLS-shaped URL.
func FindHLS(p *probe.Probe, preferredItag string) *Selection {
	order := hlsItagPreference
	if preferredItag != "" {
		order = append([]string{preferredItag}, hlsItagPreference...)
	}

	for _, itag := range order {
		if f := findByItag(p.Formats, itag); f != nil && f.IsHLS() {
			return &Selection{Kind: KindHLS, URL: f.URL, Itag: f.FormatID}
		}
	}

	for i := range p.Formats {
		f := &p.Formats[i]
		if selectable(*f) && f.IsHLS() {
			return &Selection{Kind: KindHLS, URL: f.URL, Itag: f.FormatID}
		}
	}
	return nil
}
