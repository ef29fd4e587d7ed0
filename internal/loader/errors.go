// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"

	"modboot/pkg/artifact"
)

// ErrEnvironment classifies a companion runtime that is missing after its
// loading phase completed.
var ErrEnvironment = errors.New("environment check failed")

// Step names the loading step a ModuleError occurred in.
type Step string

const (
	StepEnsure   Step = "ensure"
	StepRelocate Step = "relocate"
	StepRegister Step = "register"
	StepManifest Step = "manifest"
	StepInvoke   Step = "invoke"
)

type (
	// ModuleError wraps a failure with the module and step it belongs to.
	ModuleError struct {
		Coordinate artifact.Coordinate
		Step       Step
		Err        error
	}

	// EnvironmentError reports that the probe unit of a required runtime
	// cannot be resolved even though its modules loaded without error.
	EnvironmentError struct {
		Probe string
	}
)

// Error implements the error interface.
func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %s: %v", e.Coordinate.Key(), e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModuleError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("failed to set up runtime environment (%s not found)", e.Probe)
}

// Is reports whether target is ErrEnvironment.
func (e *EnvironmentError) Is(target error) bool { return target == ErrEnvironment }
