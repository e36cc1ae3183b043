package artifact

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPProber confirms artifact availability with a HEAD request against
// Frigate's HTTP API: 200 -> available, 404 -> not yet, anything else is
// a transient error the caller may retry.
type HTTPProber struct {
	BaseURL string // e.g. "http://frigate.local:5000"
	Client  *http.Client
}

// NewHTTPProber creates a prober against baseURL. A nil client falls
// back to http.DefaultClient with the Gate's own per-probe timeout
// applied via context, so no third-party HTTP client is warranted here
// (see DESIGN.md).
func NewHTTPProber(baseURL string, client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{BaseURL: baseURL, Client: client}
}

func (p *HTTPProber) Available(ctx context.Context, eventID string, kind Kind) (bool, error) {
	path, err := pathFor(kind, eventID)
	if err != nil {
		return false, err
	}
	ctx, cancel := timeoutCtx(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.BaseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("artifact: build request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("artifact: probe %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("artifact: probe %s: unexpected status %d", path, resp.StatusCode)
	}
}
