// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"fmt"
)

// ErrLoad classifies archives that could not be registered.
var ErrLoad = errors.New("load failed")

// LoadError reports a path that does not exist or is not a readable archive.
type LoadError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Cause)
}

// Is reports whether target is ErrLoad.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Cause }
