// SPDX-License-Identifier: MPL-2.0

package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch classifies transport failures and non-success responses.
	ErrFetch = errors.New("fetch failed")

	// ErrIntegrity classifies checksum mismatches and missing or malformed sidecars.
	ErrIntegrity = errors.New("integrity check failed")
)

type (
	// FetchError reports a failed download. Status is the HTTP status code for
	// non-success responses and zero for transport failures.
	FetchError struct {
		URL    string
		Status int
		Cause  error
	}

	// IntegrityError reports an artifact whose digest does not match its
	// sidecar. Expected is empty when the sidecar itself is the problem; Cause
	// then describes why it could not be used.
	IntegrityError struct {
		Path     string
		Expected string
		Got      string
		Cause    error
	}
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Cause)
	default:
		return "fetching " + e.URL + ": failed"
	}
}

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Unwrap returns the underlying transport error, if any.
func (e *FetchError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Expected == "" || e.Cause != nil {
		return fmt.Sprintf("integrity check failed for %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Path, e.Expected, e.Got)
}

// Is reports whether target is ErrIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// Unwrap returns the sidecar problem, if any.
func (e *IntegrityError) Unwrap() error { return e.Cause }
