// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"modboot/internal/activation"
	"modboot/internal/config"
	"modboot/internal/isolation"
	"modboot/internal/issue"
	"modboot/internal/loader"
	"modboot/internal/relocate"
	"modboot/internal/transfer"
	"modboot/pkg/artifact"
)

func TestIssueFor(t *testing.T) {
	t.Parallel()

	coord := artifact.NewCoordinate("https://repo.example", "org.example", "demo", "1.0")
	moduleErr := func(step loader.Step, err error) error {
		return &loader.ModuleError{Coordinate: coord, Step: step, Err: err}
	}

	tests := []struct {
		name   string
		err    error
		want   issue.Id
		wantOK bool
	}{
		{"invalid config", &config.InvalidConfigError{FieldErrors: []string{"x"}}, issue.ConfigLoadFailedId, true},
		{"config file missing", issue.NewErrorContext().WithOperation("load configuration").BuildError(), issue.ConfigLoadFailedId, true},
		{"coordinate", fmt.Errorf("%w: bad", artifact.ErrInvalidCoordinate), issue.InvalidCoordinateId, true},
		{"fetch", moduleErr(loader.StepEnsure, &transfer.FetchError{URL: "https://repo.example/x.jar", Status: 404}), issue.FetchFailedId, true},
		{"integrity", moduleErr(loader.StepEnsure, &transfer.IntegrityError{Path: "x.jar", Expected: "a", Got: "b"}), issue.IntegrityFailedId, true},
		{"relocation", moduleErr(loader.StepRelocate, &relocate.RelocationError{Source: "x.jar", Cause: errors.New("bad zip")}), issue.RelocationFailedId, true},
		{"load", moduleErr(loader.StepRegister, &isolation.LoadError{Path: "x.jar", Cause: errors.New("missing")}), issue.LoadFailedId, true},
		{"entry", moduleErr(loader.StepInvoke, &activation.EntryInvocationError{Unit: "a.B", Method: "init", Cause: activation.ErrNoEntry}), issue.EntryInvocationFailedId, true},
		{"environment", &loader.EnvironmentError{Probe: "kotlin1822.Lazy"}, issue.EnvironmentFailedId, true},
		{"unclassified", errors.New("boom"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := issueFor(tt.err)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("issueFor() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestWithGuidance(t *testing.T) {
	t.Parallel()

	coord := artifact.NewCoordinate("https://repo.example", "org.example", "demo", "1.0")
	cause := &loader.ModuleError{
		Coordinate: coord,
		Step:       loader.StepEnsure,
		Err:        &transfer.FetchError{URL: "https://repo.example/demo.jar", Status: 404},
	}

	err := withGuidance(cause, "boot modules", "")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("withGuidance() = %T, want *issue.ActionableError", err)
	}
	if ae.Resource != "org.example:demo:1.0" {
		t.Errorf("Resource = %q, want module key", ae.Resource)
	}
	if !ae.HasSuggestions() {
		t.Error("fetch failure carries no suggestions")
	}
	if !errors.Is(err, transfer.ErrFetch) {
		t.Error("wrapped error lost its classification")
	}
	if id, ok := issueFor(err); !ok || id != issue.FetchFailedId {
		t.Errorf("issueFor(wrapped) = %v, %v", id, ok)
	}
	if !strings.Contains(ae.Format(false), "repository URL") {
		t.Errorf("Format() = %q", ae.Format(false))
	}

	if withGuidance(err, "again", "") != err {
		t.Error("error with context was wrapped twice")
	}
	if withGuidance(nil, "boot modules", "") != nil {
		t.Error("withGuidance(nil) != nil")
	}
}
