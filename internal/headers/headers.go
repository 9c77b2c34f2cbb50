// SPDX-License-Identifier: MIT

// Package headers composes the request headers sent toward the media origin.
package headers

import (
	"net/http"
	"sort"

	"ytbridge/internal/probe"
)

// defaultUserAgent is sent when the probe suggests no User-Agent of its own.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Build composes the origin-facing header map: the probe's suggested headers,
// browser-shaped defaults for anything missing, and the consumer's Range and
// If-Range passed through.
func Build(p *probe.Probe, clientReq *http.Request) map[string]string {
	hdrs := make(map[string]string, len(p.HTTPHeaders)+6)
	for k, v := range p.HTTPHeaders {
		hdrs[k] = v
	}

	setDefault(hdrs, "User-Agent", defaultUserAgent)
	setDefault(hdrs, "Accept", "*/*")
	setDefault(hdrs, "Accept-Language", "en-US,en;q=0.9")
	setDefault(hdrs, "Connection", "keep-alive")

	if clientReq != nil {
		if v := clientReq.Header.Get("Range"); v != "" {
			hdrs["Range"] = v
		}
		if v := clientReq.Header.Get("If-Range"); v != "" {
			hdrs["If-Range"] = v
		}
	}

	return hdrs
}

// ForceZeroRange sets Range: bytes=0- when the map has no Range yet, so the
// origin answers 206 with a Content-Range and the consumer learns the length.
// Reports whether the range was forced.
func ForceZeroRange(hdrs map[string]string) bool {
	if _, ok := hdrs["Range"]; ok {
		return false
	}
	hdrs["Range"] = "bytes=0-"
	return true
}

// Apply copies the header map onto an outgoing request.
func Apply(req *http.Request, hdrs map[string]string) {
	for k, v := range hdrs {
		req.Header.Set(k, v)
	}
}

// KV flattens the map into the token sequence the remux tool consumes:
// "-headers", "Key: value\r\n" per entry, in deterministic key order.
func KV(hdrs map[string]string) []string {
	keys := make([]string, 0, len(hdrs))
	for k := range hdrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, "-headers", k+": "+hdrs[k]+"\r\n")
	}
	return kv
}

func setDefault(m map[string]string, key, value string) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
