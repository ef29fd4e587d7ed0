// SPDX-License-Identifier: MPL-2.0

package fspath_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modboot/pkg/fspath"
)

func TestWriteAtomic(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "a", "b", "out.jar")
	n, err := fspath.WriteAtomic(dst, func(w io.Writer) (int64, error) {
		return io.Copy(w, strings.NewReader("payload"))
	})
	if err != nil {
		t.Fatalf("WriteAtomic() error: %v", err)
	}
	if n != 7 {
		t.Errorf("n = %d, want 7", n)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}
	assertNoTempFiles(t, filepath.Dir(dst))
}

func TestWriteAtomic_FailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dst := filepath.Join(dir, "out.jar")
	boom := errors.New("boom")
	_, err := fspath.WriteAtomic(dst, func(w io.Writer) (int64, error) {
		_, _ = w.Write([]byte("partial"))
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteAtomic() error = %v, want boom", err)
	}
	if fspath.Exists(dst) {
		t.Error("destination exists after failed write")
	}
	assertNoTempFiles(t, dir)
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "out.jar")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fspath.WriteAtomic(dst, func(w io.Writer) (int64, error) {
		n, err := w.Write([]byte("new"))
		return int64(n), err
	}); err != nil {
		t.Fatalf("WriteAtomic() error: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "real.jar")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.jar")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	a, err := fspath.Resolve(target)
	if err != nil {
		t.Fatalf("Resolve(target): %v", err)
	}
	b, err := fspath.Resolve(link)
	if err != nil {
		t.Fatalf("Resolve(link): %v", err)
	}
	if a != b {
		t.Errorf("Resolve differs: %q vs %q", a, b)
	}

	if _, err := fspath.Resolve(filepath.Join(dir, "missing.jar")); err == nil {
		t.Error("Resolve(missing) returned nil error")
	}
}

func TestIsTemp(t *testing.T) {
	t.Parallel()

	if !fspath.IsTemp("/cache/demo-1.0-abcd1234.jar.tmp-123") {
		t.Error("IsTemp() = false for temp file")
	}
	if fspath.IsTemp("/cache/demo-1.0-abcd1234.jar") {
		t.Error("IsTemp() = true for final file")
	}
}

func TestRemoveIfExists(t *testing.T) {
	t.Parallel()

	if err := fspath.RemoveIfExists(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("RemoveIfExists(missing) = %v", err)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if fspath.IsTemp(e.Name()) {
			t.Errorf("stray temp file %s", e.Name())
		}
	}
}
