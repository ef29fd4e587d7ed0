// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryInvocation classifies failed entry hook invocations.
	ErrEntryInvocation = errors.New("entry invocation failed")

	// ErrUnitNotFound is the cause when a declared unit is not in the boundary.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrNoEntry is the cause when no activatable is registered for a unit and method.
	ErrNoEntry = errors.New("no entry registered")

	// ErrDuplicateService is returned when a service name is registered twice.
	ErrDuplicateService = errors.New("service already registered")
)

// EntryInvocationError reports a declared entry hook that could not be
// resolved or that failed when invoked.
type EntryInvocationError struct {
	Unit   string
	Method string
	Cause  error
}

// Error implements the error interface.
func (e *EntryInvocationError) Error() string {
	return fmt.Sprintf("invoking %s.%s(): %v", e.Unit, e.Method, e.Cause)
}

// Is reports whether target is ErrEntryInvocation.
func (e *EntryInvocationError) Is(target error) bool { return target == ErrEntryInvocation }

// Unwrap returns the underlying cause.
func (e *EntryInvocationError) Unwrap() error { return e.Cause }
