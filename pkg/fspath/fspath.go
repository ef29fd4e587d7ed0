// SPDX-License-Identifier: MPL-2.0

// Package fspath holds the small filesystem primitives shared by the artifact
// and relocation caches: canonical path resolution and crash-safe atomic
// file replacement.
package fspath

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempInfix marks in-progress files. A file whose name contains it is never a
// completed cache entry.
const TempInfix = ".tmp-"

// Resolve returns the absolute, symlink-free form of path. The file must exist.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsTemp reports whether a file name belongs to an in-progress write.
func IsTemp(name string) bool {
	return strings.Contains(filepath.Base(name), TempInfix)
}

// WriteAtomic creates dst by streaming write into a temp file in the same
// directory, syncing it, and renaming it over dst. A crash at any point
// leaves either the previous dst or no dst, plus at most a stray temp file.
// The parent directory is created on demand.
func WriteAtomic(dst string, write func(w io.Writer) (int64, error)) (n int64, err error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+TempInfix+"*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			// Best-effort removal of the partially written temp file.
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	n, err = write(tmp)
	if err != nil {
		return 0, err
	}
	if err = tmp.Sync(); err != nil {
		return 0, fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming %s to %s: %w", tmpPath, dst, err)
	}
	return n, nil
}

// CopyFile atomically copies src to dst.
func CopyFile(src, dst string) (_ int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }() // read-only handle

	return WriteAtomic(dst, func(w io.Writer) (int64, error) {
		return io.Copy(w, in)
	})
}

// RemoveIfExists removes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
