// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Repository is an httptest-backed artifact repository that counts requests.
type Repository struct {
	server *httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	requests map[string]int
	total    int
}

// NewRepository starts a repository server that is closed when the test ends.
func NewRepository(t testing.TB) *Repository {
	t.Helper()
	r := &Repository{
		files:    make(map[string][]byte),
		requests: make(map[string]int),
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.server.Close)
	return r
}

// URL returns the repository base URL.
func (r *Repository) URL() string { return r.server.URL }

// ArtifactPath returns "/<group/>/<name>/<version>/<name>-<version>.jar".
func ArtifactPath(group, name, version string) string {
	return "/" + strings.ReplaceAll(group, ".", "/") + "/" + name + "/" + version + "/" + name + "-" + version + ".jar"
}

// Publish stores an artifact and a matching sidecar.
func (r *Repository) Publish(group, name, version string, data []byte) {
	p := ArtifactPath(group, name, version)
	r.Put(p, data)
	r.Put(p+".sha1", []byte(SHA1Hex(data)+"\n"))
}

// Put stores raw content at the given URL path.
func (r *Repository) Put(path string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[path] = data
}

// Requests returns the total number of requests served, including misses.
func (r *Repository) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// RequestsFor returns how many times path was requested.
func (r *Repository) RequestsFor(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[path]
}

func (r *Repository) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.total++
	r.requests[req.URL.Path]++
	data, ok := r.files[req.URL.Path]
	r.mu.Unlock()

	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}
