// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"modboot/internal/cachelock"
	"modboot/internal/metrics"
	"modboot/pkg/artifact"
	"modboot/pkg/fspath"
)

// digestPrefixLen is the number of digest hex characters in a cache file name.
const digestPrefixLen = 8

type (
	// Options tunes a single Relocate call.
	Options struct {
		// Force rewrites even when the cached output already exists.
		Force bool
	}

	// Artifact is a relocated archive.
	Artifact struct {
		// Source is the archive the rules were applied to.
		Source string
		// RulesDigest is the full cache-key digest; empty when no rules applied.
		RulesDigest string
		// Path is the archive to load: the cached rewrite, or Source itself
		// when there were no rules.
		Path string
		// Rewritten reports whether this call performed the rewrite.
		Rewritten bool
	}

	// Relocator rewrites archives into a cache directory.
	Relocator struct {
		cacheDir string
		pins     []string
		logger   *log.Logger
		metrics  *metrics.Recorder
	}

	// Option configures a Relocator during construction.
	Option func(*Relocator)
)

// WithPins sets the version pins folded into every cache key.
func WithPins(pins ...string) Option {
	return func(r *Relocator) {
		r.pins = append([]string(nil), pins...)
	}
}

// WithLogger sets the logger. The default writes to stderr with a "relocate" prefix.
func WithLogger(l *log.Logger) Option {
	return func(r *Relocator) {
		r.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Relocator) {
		r.metrics = m
	}
}

// New creates a Relocator writing into cacheDir.
func New(cacheDir string, opts ...Option) *Relocator {
	r := &Relocator{
		cacheDir: cacheDir,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "relocate"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CachePath returns the deterministic output path for src under rules, and
// the digest it was derived from.
func (r *Relocator) CachePath(src string, rules artifact.RuleSet) (string, string) {
	pins := append([]string{filepath.Base(src)}, r.pins...)
	digest := rules.Digest(pins...)
	name := artifact.BaseName(src) + "-" + digest[:digestPrefixLen] + artifact.ArchiveExt
	return filepath.Join(r.cacheDir, name), digest
}

// Relocate applies rules to the archive at src. With no rules, src is
// returned as-is and nothing is copied. Otherwise the cached output is
// reused when present, unless opts.Force is set.
func (r *Relocator) Relocate(ctx context.Context, src string, rules artifact.RuleSet, opts Options) (Artifact, error) {
	if len(rules) == 0 {
		return Artifact{Source: src, Path: src}, nil
	}
	if err := rules.Validate(); err != nil {
		return Artifact{}, &RelocationError{Source: src, Cause: err}
	}

	dst, digest := r.CachePath(src, rules)
	result := Artifact{Source: src, RulesDigest: digest, Path: dst}

	lock, err := cachelock.Acquire(dst)
	if err != nil {
		return Artifact{}, &RelocationError{Source: src, Cause: err}
	}
	defer lock.Release()

	if !opts.Force && fspath.Exists(dst) {
		r.metrics.Relocation(false)
		r.logger.Debug("relocated artifact cached", "source", src, "path", dst)
		return result, nil
	}

	changed, err := r.rewrite(ctx, src, dst, rules)
	if err != nil {
		return Artifact{}, &RelocationError{Source: src, Cause: err}
	}

	r.metrics.Relocation(true)
	r.logger.Debug("relocated artifact", "source", src, "path", dst, "rules", len(rules), "changed", changed)
	result.Rewritten = true
	return result, nil
}

// rewrite snapshots src into the cache directory, rewrites the snapshot into
// dst atomically, and removes the snapshot.
func (r *Relocator) rewrite(ctx context.Context, src, dst string, rules artifact.RuleSet) (changed int, err error) {
	snapshot, err := snapshotFile(src, filepath.Dir(dst), filepath.Base(dst))
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = snapshot.Close()
		_ = os.Remove(snapshot.Name())
	}()

	info, err := snapshot.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}
	zr, err := zip.NewReader(snapshot, info.Size())
	if err != nil {
		return 0, fmt.Errorf("reading archive: %w", err)
	}

	rw := newRewriter(rules)
	_, err = fspath.WriteAtomic(dst, func(w io.Writer) (int64, error) {
		cw := &countingWriter{w: w}
		n, werr := rw.rewriteArchive(ctx, zr, cw)
		changed = n
		return cw.n, werr
	})
	return changed, err
}

// snapshotFile copies src into a temp file in dir and returns it open for
// reading. The source archive itself is never opened for writing.
func snapshotFile(src, dir, base string) (_ *os.File, err error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }() // read-only handle

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, base+fspath.TempInfix+"src-*")
	if err != nil {
		return nil, fmt.Errorf("creating snapshot: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("copying %s: %w", src, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("rewinding snapshot: %w", err)
	}
	return tmp, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
