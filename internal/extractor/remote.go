// SPDX-License-Identifier: MIT

package extractor

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"ytbridge/internal/apierr"
	"ytbridge/internal/probe"
)

// extractRemote fetches the probe JSON from a remote extractor service.
func (e *Extractor) extractRemote(ctx context.Context, watchURL string) (*probe.Probe, error) {
	if e.cfg.RemoteURL == "" {
		return nil, apierr.New(apierr.KindInternal, "YTDLP_REMOTE_URL not set for remote mode")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "extractor request cancelled")
	}

	q := url.Values{}
	q.Set("url", watchURL)
	if e.cfg.Cookies != "" {
		q.Set("cookies", e.cfg.Cookies)
	}
	if e.cfg.SponsorBlock {
		q.Set("sponsorblock", "all")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.RemoteURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "invalid remote extractor URL")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "remote extractor error")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindBadGateway, err, "remote extractor read failed")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.New(apierr.KindBadGateway,
			"remote extractor status %d: %s", resp.StatusCode, bodyExcerpt(body))
	}

	p, err := decodeProbeObject(body)
	if err != nil {
		return nil, apierr.New(apierr.KindBadGateway, "remote extractor returned non-JSON")
	}
	return p, nil
}

func bodyExcerpt(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
