// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"slices"
	"testing"
)

// Archive is an ordered set of entries used to build zip artifacts in tests.
type Archive struct {
	names   []string
	entries map[string][]byte
}

// NewArchive returns an empty archive builder.
func NewArchive() *Archive {
	return &Archive{entries: make(map[string][]byte)}
}

// Add adds (or replaces) an entry. Names ending in "/" are directories.
func (a *Archive) Add(name string, data []byte) *Archive {
	if _, ok := a.entries[name]; !ok {
		a.names = append(a.names, name)
	}
	a.entries[name] = data
	return a
}

// AddString adds a text entry.
func (a *Archive) AddString(name, data string) *Archive {
	return a.Add(name, []byte(data))
}

// AddUnit adds a unit entry for a dotted unit name with the given body.
func (a *Archive) AddUnit(unit, body string) *Archive {
	return a.AddString(unitEntry(unit), body)
}

// AddManifest adds an entry-hook manifest.
func (a *Archive) AddManifest(main, method string) *Archive {
	return a.AddString("META-INF/modboot/extra.properties", "main="+main+"\nmain-method="+method+"\n")
}

// Bytes encodes the archive as a zip file.
func (a *Archive) Bytes(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range a.names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := w.Write(a.entries[name]); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

// WriteTo writes the encoded archive to path.
func (a *Archive) WriteTo(t testing.TB, path string) []byte {
	t.Helper()
	data := a.Bytes(t)
	MustWriteFile(t, path, data)
	return data
}

// ReadArchive decodes a zip file into a name -> content map.
func ReadArchive(t testing.TB, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening archive %s: %v", path, err)
	}
	defer func() { _ = zr.Close() }()

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("reading entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

// EntryNames returns the sorted entry names of a decoded archive.
func EntryNames(entries map[string]string) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func unitEntry(unit string) string {
	b := []byte(unit)
	for i, c := range b {
		if c == '.' {
			b[i] = '/'
		}
	}
	return string(b) + ".class"
}
