// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/magiconair/properties"
)

const (
	// ManifestPath is the location of the entry-hook manifest inside an archive.
	ManifestPath = "META-INF/modboot/extra.properties"

	// ManifestMainKey lists the comma-separated units whose entry hook is invoked.
	ManifestMainKey = "main"
	// ManifestMethodKey names the zero-argument entry method invoked on each unit.
	ManifestMethodKey = "main-method"

	// maxManifestBytes bounds how much of the manifest entry is read.
	maxManifestBytes = 64 << 10
)

// Manifest holds the entry-hook declarations of one archive.
type Manifest struct {
	Main       []string
	MainMethod string
}

// HasEntries reports whether the manifest declares both entry units and an
// entry method. A manifest with only one of the two keys declares nothing.
func (m *Manifest) HasEntries() bool {
	return m != nil && len(m.Main) > 0 && m.MainMethod != ""
}

// ParseManifest parses properties-format manifest content.
func ParseManifest(data []byte) (*Manifest, error) {
	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	m := &Manifest{MainMethod: strings.TrimSpace(p.GetString(ManifestMethodKey, ""))}
	for unit := range strings.SplitSeq(p.GetString(ManifestMainKey, ""), ",") {
		if unit = strings.TrimSpace(unit); unit != "" {
			m.Main = append(m.Main, unit)
		}
	}
	return m, nil
}

// ReadManifest reads the manifest from the archive at path. It returns
// (nil, nil) when the archive carries no manifest.
func ReadManifest(path string) (*Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer func() {
		// Read-only archive handle.
		_ = zr.Close()
	}()

	m, err := ReadManifestFS(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadManifestFS reads the manifest from an opened archive. It returns
// (nil, nil) when the archive carries no manifest.
func ReadManifestFS(fsys fs.FS) (*Manifest, error) {
	f, err := fsys.Open(ManifestPath)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}
