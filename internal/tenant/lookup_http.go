package tenant

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// HTTPLookup resolves hostnames through a tenant directory service:
// GET <endpoint>?domain=<host> → {"tenantId": "..."}.
// 404 and an empty tenantId are misses; any other non-2xx is an error.
type HTTPLookup struct {
	endpoint string
	client   *http.Client
}

type lookupResponse struct {
	TenantID string `json:"tenantId"`
}

// NewHTTPLookup creates a lookup against endpoint with the given request timeout.
func NewHTTPLookup(endpoint string, timeout time.Duration) (*HTTPLookup, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid tenant lookup url: %w", err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPLookup{endpoint: endpoint, client: &http.Client{Timeout: timeout}}, nil
}

// LookupTenant implements Lookup.
func (l *HTTPLookup) LookupTenant(ctx context.Context, hostname string) (string, bool, error) {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse tenant lookup url: %w", err)
	}
	q := u.Query()
	q.Set("domain", hostname)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", false, fmt.Errorf("build tenant lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("tenant lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, fmt.Errorf("tenant lookup: unexpected status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", false, fmt.Errorf("decode tenant lookup: %w", err)
	}
	if body.TenantID == "" {
		return "", false, nil
	}
	return body.TenantID, true, nil
}
