// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"modboot/pkg/artifact"
	"modboot/pkg/fspath"
)

// Boundary identifies a loading boundary.
type Boundary int

const (
	// Host is the boundary the embedding process runs in.
	Host Boundary = iota
	// Private is the isolated boundary.
	Private
)

// String returns the boundary name.
func (b Boundary) String() string {
	switch b {
	case Host:
		return "host"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// BoundaryFor maps an isolated flag onto a boundary.
func BoundaryFor(isolated bool) Boundary {
	if isolated {
		return Private
	}
	return Host
}

type (
	// Space accepts archives at runtime and resolves units across boundaries.
	Space interface {
		// AddPath registers the archive at path. Registering the same resolved
		// path again returns the original handle without re-registering.
		AddPath(path string, isolated, external bool) (*Handle, error)
		// Lookup resolves a unit as seen from the given boundary.
		Lookup(from Boundary, unit string) (Unit, bool)
		// Handles returns every registered archive in registration order.
		Handles() []*Handle
	}

	// Unit is a resolved unit and the archive that defines it.
	Unit struct {
		Name     string
		Boundary Boundary
		Handle   *Handle
	}

	// Handle is one registered archive.
	Handle struct {
		// Path is the resolved archive path.
		Path     string
		Boundary Boundary
		// External archives are pure libraries and are never scanned for hooks.
		External bool
		// Units lists the units the archive defines, in archive order.
		Units []string

		space Space
		fsys  fs.FS
	}

	// ArchiveSpace is the Space backed by zip archives on disk.
	ArchiveSpace struct {
		mu       sync.RWMutex
		handles  []*Handle
		byPath   map[string]*Handle
		archives []*zip.ReadCloser
		host     map[string]*Handle
		private  map[string]*Handle
	}
)

// NewHandle builds a handle bound to space. fsys, when non-nil, exposes the
// archive contents.
func NewHandle(space Space, path string, boundary Boundary, external bool, units []string, fsys fs.FS) *Handle {
	return &Handle{
		Path:     path,
		Boundary: boundary,
		External: external,
		Units:    units,
		space:    space,
		fsys:     fsys,
	}
}

// Lookup resolves unit from this handle's boundary.
func (h *Handle) Lookup(unit string) (Unit, bool) {
	if h.space == nil {
		return Unit{}, false
	}
	return h.space.Lookup(h.Boundary, unit)
}

// Isolated reports whether the archive lives in the private boundary.
func (h *Handle) Isolated() bool {
	return h.Boundary == Private
}

// Open opens a file inside the archive.
func (h *Handle) Open(name string) (fs.File, error) {
	if h.fsys == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return h.fsys.Open(name)
}

// NewArchiveSpace creates an empty space. The private boundary is created
// lazily by the first isolated registration.
func NewArchiveSpace() *ArchiveSpace {
	return &ArchiveSpace{
		byPath: make(map[string]*Handle),
		host:   make(map[string]*Handle),
	}
}

// AddPath implements Space.
func (s *ArchiveSpace) AddPath(path string, isolated, external bool) (*Handle, error) {
	resolved, err := fspath.Resolve(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.byPath[resolved]; ok {
		return h, nil
	}

	zr, err := zip.OpenReader(resolved)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	var units []string
	for _, f := range zr.File {
		if artifact.IsUnitEntry(f.Name) {
			units = append(units, artifact.UnitName(f.Name))
		}
	}

	boundary := BoundaryFor(isolated)
	h := NewHandle(s, resolved, boundary, external, units, zr)

	index := s.host
	if boundary == Private {
		if s.private == nil {
			s.private = make(map[string]*Handle)
		}
		index = s.private
	}
	for _, u := range units {
		if _, taken := index[u]; !taken {
			index[u] = h
		}
	}

	s.archives = append(s.archives, zr)
	s.handles = append(s.handles, h)
	s.byPath[resolved] = h
	return h, nil
}

// Lookup implements Space.
func (s *ArchiveSpace) Lookup(from Boundary, unit string) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from == Private {
		if h, ok := s.private[unit]; ok {
			return Unit{Name: unit, Boundary: Private, Handle: h}, true
		}
	}
	if h, ok := s.host[unit]; ok {
		return Unit{Name: unit, Boundary: Host, Handle: h}, true
	}
	return Unit{}, false
}

// Handles implements Space.
func (s *ArchiveSpace) Handles() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.handles)
}

// Paths returns the registered archive paths matching the given flags.
func (s *ArchiveSpace) Paths(isolated, external bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, h := range s.handles {
		if h.Isolated() == isolated && h.External == external {
			out = append(out, h.Path)
		}
	}
	return out
}

// HasPrivate reports whether the private boundary has been created.
func (s *ArchiveSpace) HasPrivate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.private != nil
}

// Close releases every archive. Handles stay valid for lookups but can no
// longer open archive contents.
func (s *ArchiveSpace) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, zr := range s.archives {
		if err := zr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.archives = nil
	return errors.Join(errs...)
}
