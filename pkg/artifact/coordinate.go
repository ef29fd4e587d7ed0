// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCoordinate is the sentinel error wrapped by InvalidCoordinateError.
var ErrInvalidCoordinate = errors.New("invalid module coordinate")

type (
	// Coordinate identifies one fetchable module. The zero Name is legal and
	// means the module is not configured.
	Coordinate struct {
		// Repository is the base URL of the repository the module is fetched from.
		Repository string
		// Group is the dotted namespace of the module (e.g. "org.example").
		Group string
		// Name is the artifact name (e.g. "demo").
		Name string
		// Version is the artifact version (e.g. "1.0").
		Version string
	}

	// InvalidCoordinateError collects field-level validation failures.
	// It wraps ErrInvalidCoordinate for errors.Is() compatibility.
	InvalidCoordinateError struct {
		Coordinate  Coordinate
		FieldErrors []string
	}

	// LocalArtifact is the on-disk location of an artifact and its checksum sidecar.
	LocalArtifact struct {
		Path        string
		SidecarPath string
	}
)

// Error implements the error interface.
func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid module coordinate %q: %s", e.Coordinate.Key(), strings.Join(e.FieldErrors, "; "))
}

// Unwrap returns ErrInvalidCoordinate so callers can use errors.Is.
func (e *InvalidCoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// NewCoordinate builds a coordinate.
func NewCoordinate(repository, group, name, version string) Coordinate {
	return Coordinate{Repository: repository, Group: group, Name: name, Version: version}
}

// ParseCoordinate parses "group:name:version". The repository is left empty.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("%w: %q: expected group:name:version", ErrInvalidCoordinate, s)
	}
	c := Coordinate{Group: parts[0], Name: parts[1], Version: parts[2]}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// WithRepository returns a copy of c bound to the given repository.
func (c Coordinate) WithRepository(repository string) Coordinate {
	c.Repository = repository
	return c
}

// Key returns the uniqueness key "group:name:version". The repository is not
// part of a coordinate's identity.
func (c Coordinate) Key() string {
	return c.Group + ":" + c.Name + ":" + c.Version
}

// String returns the key, suffixed with the repository when one is set.
func (c Coordinate) String() string {
	if c.Repository == "" {
		return c.Key()
	}
	return c.Key() + " (" + c.Repository + ")"
}

// IsConfigured reports whether the coordinate names an artifact.
func (c Coordinate) IsConfigured() bool {
	return c.Name != ""
}

// Validate checks every field that takes part in path templating. Segments
// containing path separators or ".." would escape the library root.
func (c Coordinate) Validate() error {
	var errs []string
	check := func(field, v string) {
		switch {
		case strings.TrimSpace(v) == "":
			errs = append(errs, field+" must not be empty")
		case strings.TrimSpace(v) != v:
			errs = append(errs, field+" must not have surrounding whitespace")
		case strings.Contains(v, "..") || strings.ContainsAny(v, `/\:`):
			errs = append(errs, field+" contains an illegal path segment")
		}
	}
	check("group", c.Group)
	check("name", c.Name)
	check("version", c.Version)
	if len(errs) > 0 {
		return &InvalidCoordinateError{Coordinate: c, FieldErrors: errs}
	}
	return nil
}

// GroupPath returns the group with dots replaced by slashes.
func (c Coordinate) GroupPath() string {
	return strings.ReplaceAll(c.Group, ".", "/")
}

// FileName returns "<name>-<version>.jar".
func (c Coordinate) FileName() string {
	return c.Name + "-" + c.Version + ArchiveExt
}
