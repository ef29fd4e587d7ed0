// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Source streams the object at a repository URL. Implementations return a
// *FetchError for missing objects and transport failures.
type Source interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// Scheme returns the lowercase URL scheme of a repository location.
func Scheme(repository string) (string, error) {
	u, err := url.Parse(repository)
	if err != nil {
		return "", fmt.Errorf("parsing repository %q: %w", repository, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("repository %q has no scheme", repository)
	}
	return strings.ToLower(u.Scheme), nil
}

// redactURL strips credentials, query parameters and fragments from a URL
// for safe inclusion in errors and logs.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
