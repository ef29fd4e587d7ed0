// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// FileSource reads artifacts from a local mirror addressed by file:// URLs.
type FileSource struct{}

// Open opens the file named by rawURL. A missing file is reported as a
// *FetchError with status 404 so it classifies like a repository miss.
func (FileSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	f, err := os.Open(filepath.FromSlash(u.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FetchError{URL: rawURL, Status: http.StatusNotFound, Cause: err}
		}
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	return f, nil
}
