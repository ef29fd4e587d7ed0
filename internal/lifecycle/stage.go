// SPDX-License-Identifier: MPL-2.0

// Package lifecycle sequences the ordered startup and shutdown stages that
// loaded modules hook into.
//
// Stages only move forward. Firing a stage runs its callbacks in
// registration order and makes it current; firing a stage at or before the
// current one does nothing. Once stopped, only Disable can still fire.
//
// Late registration policy: a callback registered for a stage that has
// already fired runs immediately on the registering goroutine. A callback
// registered for a stage that was skipped because of Stop is kept but never
// runs.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Stage is one lifecycle phase.
type Stage int

const (
	// Construct runs as soon as the bootstrap entry is created.
	Construct Stage = iota
	// Init runs after the base runtime is in place.
	Init
	// Load runs when the host loads the embedding component.
	Load
	// Enable runs when the host enables the embedding component.
	Enable
	// Active runs once the host has finished starting up.
	Active
	// Disable runs on shutdown, even after Stop.
	Disable

	numStages = int(Disable) + 1
)

// ErrUnknownStage is returned by ParseStage for unrecognized names.
var ErrUnknownStage = errors.New("unknown lifecycle stage")

var stageNames = [numStages]string{"construct", "init", "load", "enable", "active", "disable"}

// String returns the lowercase stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= numStages {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return s >= Construct && s <= Disable
}

// ParseStage parses a stage name, case-insensitively.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// Stages returns every stage in firing order.
func Stages() []Stage {
	out := make([]Stage, numStages)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}
