// SPDX-License-Identifier: MPL-2.0

// Package isolationtest provides an in-memory isolation.Space for tests that
// need to observe or script registrations without real archives.
package isolationtest

import (
	"fmt"
	"slices"
	"sync"
	"testing/fstest"

	"modboot/internal/isolation"
)

type (
	// Call records one AddPath invocation.
	Call struct {
		Path     string
		Isolated bool
		External bool
	}

	// Space is a scripted isolation.Space. Archives are declared up front
	// with Define; AddPath of an undeclared path fails with a LoadError.
	Space struct {
		mu       sync.Mutex
		archives map[string]archive
		calls    []Call
		handles  map[string]*isolation.Handle
		order    []*isolation.Handle
		host     map[string]*isolation.Handle
		private  map[string]*isolation.Handle
	}

	archive struct {
		units []string
		files fstest.MapFS
	}
)

var _ isolation.Space = (*Space)(nil)

// New returns an empty fake space.
func New() *Space {
	return &Space{
		archives: make(map[string]archive),
		handles:  make(map[string]*isolation.Handle),
		host:     make(map[string]*isolation.Handle),
		private:  make(map[string]*isolation.Handle),
	}
}

// Define declares an archive at path defining units. files supplies extra
// archive contents such as a manifest.
func (s *Space) Define(path string, units []string, files map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	s.archives[path] = archive{units: slices.Clone(units), files: fsys}
}

// AddPath implements isolation.Space.
func (s *Space) AddPath(path string, isolated, external bool) (*isolation.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Path: path, Isolated: isolated, External: external})
	if h, ok := s.handles[path]; ok {
		return h, nil
	}
	a, ok := s.archives[path]
	if !ok {
		return nil, &isolation.LoadError{Path: path, Cause: fmt.Errorf("no archive defined at %s", path)}
	}

	b := isolation.BoundaryFor(isolated)
	h := isolation.NewHandle(s, path, b, external, a.units, a.files)
	index := s.host
	if b == isolation.Private {
		index = s.private
	}
	for _, u := range a.units {
		if _, taken := index[u]; !taken {
			index[u] = h
		}
	}
	s.handles[path] = h
	s.order = append(s.order, h)
	return h, nil
}

// Lookup implements isolation.Space.
func (s *Space) Lookup(from isolation.Boundary, unit string) (isolation.Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from == isolation.Private {
		if h, ok := s.private[unit]; ok {
			return isolation.Unit{Name: unit, Boundary: isolation.Private, Handle: h}, true
		}
	}
	if h, ok := s.host[unit]; ok {
		return isolation.Unit{Name: unit, Boundary: isolation.Host, Handle: h}, true
	}
	return isolation.Unit{}, false
}

// Handles implements isolation.Space.
func (s *Space) Handles() []*isolation.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Calls returns every AddPath call in order, including repeated paths.
func (s *Space) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Registered reports whether path has been accepted.
func (s *Space) Registered(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[path]
	return ok
}
