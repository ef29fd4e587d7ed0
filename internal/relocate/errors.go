// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"errors"
	"fmt"
)

// ErrRelocation classifies failed rewrites.
var ErrRelocation = errors.New("relocation failed")

// RelocationError reports a rewrite that could not be completed. No output
// file exists for the failed request.
type RelocationError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *RelocationError) Error() string {
	return fmt.Sprintf("relocating %s: %v", e.Source, e.Cause)
}

// Is reports whether target is ErrRelocation.
func (e *RelocationError) Is(target error) bool { return target == ErrRelocation }

// Unwrap returns the underlying cause.
func (e *RelocationError) Unwrap() error { return e.Cause }
