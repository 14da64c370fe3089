package connectivity

import (
	"context"
	"net/http"
	"time"

	"fieldlog/internal/fieldlog"
)

// HTTPProbe implements fieldlog.Probe with a HEAD request against the remote
// store's health endpoint. Any response at all counts as reachable; only a
// transport-level failure means offline.
type HTTPProbe struct {
	healthURL  string
	httpClient *http.Client
}

var _ fieldlog.Probe = (*HTTPProbe)(nil)

// NewHTTPProbe creates a probe for the given health URL.
func NewHTTPProbe(healthURL string) *HTTPProbe {
	return &HTTPProbe{
		healthURL: healthURL,
		// Short timeout: a probe that hangs is as useless as one that fails.
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *HTTPProbe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
