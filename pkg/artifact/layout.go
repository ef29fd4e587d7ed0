// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// ArchiveExt is the file extension of every artifact.
	ArchiveExt = ".jar"
	// SidecarExt is appended to an artifact file name to form its checksum sidecar.
	SidecarExt = ".sha1"
)

// Layout maps coordinates onto the local library directory and onto
// repository URLs.
type Layout struct {
	// Root is the library directory artifacts are stored under.
	Root string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// relativePath returns "<group/>/<name>/<version>/<name>-<version>.jar" with
// forward slashes.
func relativePath(c Coordinate) string {
	return path.Join(c.GroupPath(), c.Name, c.Version, c.FileName())
}

// Artifact returns the local paths for c:
// <root>/<group/>/<name>/<version>/<name>-<version>.jar plus its .sha1 sidecar.
func (l Layout) Artifact(c Coordinate) LocalArtifact {
	p := filepath.Join(l.Root, filepath.FromSlash(relativePath(c)))
	return LocalArtifact{Path: p, SidecarPath: p + SidecarExt}
}

// RemoteURL returns the artifact URL inside c.Repository.
func (l Layout) RemoteURL(c Coordinate) string {
	return strings.TrimRight(c.Repository, "/") + "/" + relativePath(c)
}

// RemoteSidecarURL returns the sidecar URL inside c.Repository.
func (l Layout) RemoteSidecarURL(c Coordinate) string {
	return l.RemoteURL(c) + SidecarExt
}

// BaseName strips the archive extension from a file name.
func BaseName(file string) string {
	name := filepath.Base(file)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
