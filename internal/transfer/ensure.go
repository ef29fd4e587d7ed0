// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"modboot/internal/cachelock"
	"modboot/internal/metrics"
	"modboot/pkg/artifact"
	"modboot/pkg/fspath"
)

// Download kinds reported to metrics.
const (
	kindArtifact = "artifact"
	kindSidecar  = "sidecar"
)

type (
	// EnsureOptions tunes a single Ensure call.
	EnsureOptions struct {
		// Force re-downloads even when the cached artifact validates.
		Force bool
	}

	// Result describes the outcome of Ensure.
	Result struct {
		Artifact   artifact.LocalArtifact
		Downloaded bool
		// Bytes is the number of bytes written to the cache (artifact plus sidecar).
		Bytes int64
	}

	// Ensurer materializes artifacts in a library directory.
	Ensurer struct {
		layout   artifact.Layout
		logger   *log.Logger
		metrics  *metrics.Recorder
		s3Config S3Config

		mu      sync.Mutex
		sources map[string]Source
	}

	// Option configures an Ensurer during construction.
	Option func(*Ensurer)
)

// WithSource registers the Source used for repositories with the given scheme.
func WithSource(scheme string, s Source) Option {
	return func(e *Ensurer) {
		e.sources[scheme] = s
	}
}

// WithLogger sets the logger. The default writes to stderr with a "transfer" prefix.
func WithLogger(l *log.Logger) Option {
	return func(e *Ensurer) {
		e.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Ensurer) {
		e.metrics = r
	}
}

// WithS3Config sets the parameters used to build the S3 source the first
// time an s3:// repository is encountered.
func WithS3Config(cfg S3Config) Option {
	return func(e *Ensurer) {
		e.s3Config = cfg
	}
}

// NewEnsurer creates an Ensurer storing artifacts under libraryDir. HTTP,
// HTTPS and file repositories work out of the box.
func NewEnsurer(libraryDir string, opts ...Option) *Ensurer {
	httpSource := NewHTTPSource()
	e := &Ensurer{
		layout: artifact.NewLayout(libraryDir),
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "transfer"}),
		sources: map[string]Source{
			"http":  httpSource,
			"https": httpSource,
			"file":  FileSource{},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout returns the library layout.
func (e *Ensurer) Layout() artifact.Layout {
	return e.layout
}

// Ensure makes sure a valid copy of c exists in the library directory. A
// cached artifact that matches its sidecar is returned without any network
// access unless opts.Force is set. Otherwise the artifact and its sidecar are
// downloaded and re-validated exactly once; on mismatch both files are
// removed and an *IntegrityError is returned.
func (e *Ensurer) Ensure(ctx context.Context, c artifact.Coordinate, opts EnsureOptions) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	local := e.layout.Artifact(c)

	lock, err := cachelock.Acquire(local.Path)
	if err != nil {
		return Result{}, fmt.Errorf("locking %s: %w", local.Path, err)
	}
	defer lock.Release()

	if !opts.Force {
		verr := Verify(local)
		if verr == nil {
			e.metrics.CacheHit()
			e.logger.Debug("artifact cached", "module", c.Key(), "path", local.Path)
			return Result{Artifact: local}, nil
		}
		e.logger.Debug("artifact needs download", "module", c.Key(), "reason", verr)
	}

	source, err := e.sourceFor(ctx, c.Repository)
	if err != nil {
		return Result{}, err
	}

	n, err := e.download(ctx, source, e.layout.RemoteURL(c), local.Path, kindArtifact)
	if err != nil {
		return Result{}, err
	}
	m, err := e.download(ctx, source, e.layout.RemoteSidecarURL(c), local.SidecarPath, kindSidecar)
	if err != nil {
		return Result{}, err
	}

	if err := Verify(local); err != nil {
		e.metrics.IntegrityFailure()
		// An artifact that failed validation is never left looking installed.
		_ = fspath.RemoveIfExists(local.Path)
		_ = fspath.RemoveIfExists(local.SidecarPath)
		return Result{}, err
	}

	e.logger.Debug("artifact downloaded", "module", c.Key(), "bytes", n+m)
	return Result{Artifact: local, Downloaded: true, Bytes: n + m}, nil
}

func (e *Ensurer) download(ctx context.Context, source Source, rawURL, dst, kind string) (int64, error) {
	body, err := source.Open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }() // read-only response body

	n, err := fspath.WriteAtomic(dst, func(w io.Writer) (int64, error) {
		return io.Copy(w, body)
	})
	if err != nil {
		return 0, &FetchError{URL: redactURL(rawURL), Cause: err}
	}
	e.metrics.Download(kind, n)
	return n, nil
}

func (e *Ensurer) sourceFor(ctx context.Context, repository string) (Source, error) {
	scheme, err := Scheme(repository)
	if err != nil {
		return nil, &FetchError{URL: repository, Cause: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sources[scheme]; ok {
		return s, nil
	}
	if scheme == "s3" {
		s, err := NewS3Source(ctx, e.s3Config)
		if err != nil {
			return nil, &FetchError{URL: repository, Cause: err}
		}
		e.sources[scheme] = s
		return s, nil
	}
	return nil, &FetchError{URL: repository, Cause: fmt.Errorf("unsupported repository scheme %q", scheme)}
}
