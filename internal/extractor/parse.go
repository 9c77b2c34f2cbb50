// SPDX-License-Identifier: MIT

package extractor

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"ytbridge/internal/apierr"
	"ytbridge/internal/probe"
)

// stderrTailLimit bounds the extractor stderr excerpt surfaced to clients.
const stderrTailLimit = 220

// jsonBlobPattern finds the first JSON object or array embedded in noisy
// output, dot matching newlines.
var jsonBlobPattern = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// jsonObjectPattern finds the first embedded JSON object only. It is tried
// when a bracketed log prefix such as "[youtube]" made jsonBlobPattern match
// a span that does not decode.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// NetworkErrorFragments are the substrings that classify an extractor failure
// as a network error. Matching is case-insensitive. The list may grow but
// should not shrink.
var NetworkErrorFragments = []string{
	"timed out",
	"temporarily unavailable",
	"temporary failure",
	"connection refused",
	"network is unreachable",
	"cannot assign requested address",
	"failed to resolve",
	"tlsv1 alert",
	"proxy error",
	"transporterror",
}

// looksLikeNetworkError reports whether the detail matches a known
// network-failure fragment.
func looksLikeNetworkError(detail string) bool {
	d := strings.ToLower(detail)
	for _, frag := range NetworkErrorFragments {
		if strings.Contains(d, frag) {
			return true
		}
	}
	return false
}

// parseProbeOutput decodes extractor stdout into a Probe, tolerating log
// noise around the JSON record.
func parseProbeOutput(stdout, stderr []byte) (*probe.Probe, error) {
	trimmed := bytes.TrimSpace(stdout)

	if len(trimmed) == 0 || string(trimmed) == "null" {
		tail := stderrTail(stderr)
		if looksLikeNetworkError(tail) {
			return nil, apierr.New(apierr.KindBadGateway, "extractor network error: %s", tail)
		}
		return nil, apierr.New(apierr.KindBadGateway, "extractor produced no output: %s", tail)
	}

	// Happy path: the whole stdout is the JSON record.
	var whole any
	if err := json.Unmarshal(trimmed, &whole); err == nil && whole != nil {
		return decodeProbeObject(trimmed)
	}

	// Noisy path: salvage the first embedded object or array, then the first
	// embedded object alone.
	for _, pattern := range []*regexp.Regexp{jsonBlobPattern, jsonObjectPattern} {
		if blob := pattern.Find(trimmed); blob != nil {
			var v any
			if err := json.Unmarshal(blob, &v); err == nil && v != nil {
				return decodeProbeObject(blob)
			}
		}
	}

	return nil, apierr.New(apierr.KindBadGateway, "failed to parse extractor JSON: %s", stderrTail(stderr))
}

// stderrTail returns at most the trailing stderrTailLimit characters.
func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
