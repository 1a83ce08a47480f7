// Package fetch wraps outbound calls to the upstream inventory service
// with response caching and supersede-on-new-request cancellation.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/partdex/internal/domain"
)

// Transport sends one request to the upstream service. Implementations must
// observe ctx cancellation and abandon work promptly.
type Transport interface {
	Send(ctx context.Context, method, endpoint string, body any) ([]byte, error)
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	base   string
	client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport for the given base URL. The timeout
// is the transport's own; the coordinator adds none.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Send issues the request and returns the raw response body.
// Non-2xx responses surface as domain.ErrUpstream.
func (t *HTTPTransport) Send(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	url := t.base + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s: status %d", domain.ErrUpstream, method, endpoint, resp.StatusCode)
	}
	return data, nil
}
