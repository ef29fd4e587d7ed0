// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"
	"strings"
)

// FailurePolicy decides what an optional module's failure does.
type FailurePolicy int

const (
	// Abort propagates every failure. This is the default.
	Abort FailurePolicy = iota
	// SkipOptional logs a failed optional module and carries on. Base
	// modules still abort.
	SkipOptional
)

// ErrUnknownPolicy is returned by ParseFailurePolicy for unrecognized names.
var ErrUnknownPolicy = errors.New("unknown failure policy")

// String returns the configuration spelling of the policy.
func (p FailurePolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case SkipOptional:
		return "skip-optional"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseFailurePolicy parses "abort" or "skip-optional". The empty string
// means Abort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return Abort, nil
	case "skip-optional":
		return SkipOptional, nil
	default:
		return Abort, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}
