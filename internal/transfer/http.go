// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const defaultUserAgent = "modboot/dev"

type (
	// HTTPSource downloads from http and https repositories.
	HTTPSource struct {
		httpClient *http.Client
		userAgent  string
		token      string
	}

	// HTTPOption configures an HTTPSource during construction.
	HTTPOption func(*HTTPSource)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) {
		s.userAgent = ua
	}
}

// WithToken sets a bearer token for repositories that require authentication.
func WithToken(token string) HTTPOption {
	return func(s *HTTPSource) {
		s.token = token
	}
}

// NewHTTPSource creates an HTTPSource backed by http.DefaultClient.
func NewHTTPSource(opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open issues a GET for rawURL and returns the response body. A status
// outside 2xx is a *FetchError carrying the status code.
func (s *HTTPSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: redactURL(rawURL), Cause: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: redactURL(rawURL), Cause: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, &FetchError{URL: redactURL(rawURL), Status: resp.StatusCode}
	}
	return resp.Body, nil
}
