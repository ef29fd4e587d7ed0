// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"modboot/internal/activation"
	"modboot/internal/config"
	"modboot/internal/isolation"
	"modboot/internal/issue"
	"modboot/internal/loader"
	"modboot/internal/relocate"
	"modboot/internal/transfer"
	"modboot/pkg/artifact"
)

// issueFor maps an error to the catalog entry that explains it. Integrity is
// checked before fetch so a mismatch after download is not reported as a
// transport problem.
func issueFor(err error) (issue.Id, bool) {
	var ae *issue.ActionableError
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId, true
	case errors.As(err, &ae) && (ae.Operation == "load configuration" || ae.Operation == "validate configuration"):
		return issue.ConfigLoadFailedId, true
	case errors.Is(err, artifact.ErrInvalidCoordinate):
		return issue.InvalidCoordinateId, true
	case errors.Is(err, transfer.ErrIntegrity):
		return issue.IntegrityFailedId, true
	case errors.Is(err, transfer.ErrFetch):
		return issue.FetchFailedId, true
	case errors.Is(err, relocate.ErrRelocation):
		return issue.RelocationFailedId, true
	case errors.Is(err, isolation.ErrLoad):
		return issue.LoadFailedId, true
	case errors.Is(err, activation.ErrEntryInvocation):
		return issue.EntryInvocationFailedId, true
	case errors.Is(err, loader.ErrEnvironment):
		return issue.EnvironmentFailedId, true
	default:
		return 0, false
	}
}

// withGuidance attaches operation context and remediation hints to err. Errors
// that already carry context are returned unchanged.
func withGuidance(err error, operation, resource string) error {
	var ae *issue.ActionableError
	if err == nil || errors.As(err, &ae) {
		return err
	}
	var me *loader.ModuleError
	if resource == "" && errors.As(err, &me) {
		resource = me.Coordinate.Key()
	}
	return issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		WithSuggestions(suggestionsFor(err)...).
		Wrap(err).
		BuildError()
}

func suggestionsFor(err error) []string {
	switch {
	case errors.Is(err, artifact.ErrInvalidCoordinate):
		return []string{"Write coordinates as group:name:version, e.g. org.ow2.asm:asm:9.8"}
	case errors.Is(err, transfer.ErrIntegrity):
		return []string{
			"Retry with 'modboot fetch --force' to download a fresh copy",
			"Check that the repository publishes a .sha1 file next to the archive",
		}
	case errors.Is(err, transfer.ErrFetch):
		return []string{
			"Check that the repository URL in the configuration is reachable",
			"Run 'modboot config show' to see the repositories in use",
		}
	case errors.Is(err, relocate.ErrRelocation):
		return []string{"Check that the archive is a valid zip file and that cache_dir is writable"}
	case errors.Is(err, isolation.ErrLoad):
		return []string{"Run 'modboot inspect' on the archive to check that it can be opened"}
	case errors.Is(err, activation.ErrEntryInvocation):
		return []string{"Check the main and main-method keys of the module manifest"}
	case errors.Is(err, loader.ErrEnvironment):
		return []string{"Check runtime.version and runtime.probe in the configuration"}
	default:
		return nil
	}
}

// formatErrorForDisplay uses ActionableError formatting when available. In
// verbose mode the full error chain is included.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// reportFailure writes the error and, when one applies, the rendered issue
// guidance to stderr.
func (a *App) reportFailure(err error) {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
	id, ok := issueFor(err)
	if !ok {
		return
	}
	rendered, rerr := issue.Get(id).Render(a.issueStyle)
	if rerr != nil {
		return
	}
	fmt.Fprint(a.stderr, rendered)
}
