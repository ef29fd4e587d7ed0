// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"modboot/internal/bootstrap"
	"modboot/internal/relocate"
	"modboot/pkg/artifact"
)

func newRelocateCommand(app *App) *cobra.Command {
	var (
		rawRules  []string
		force     bool
		noRuntime bool
	)
	cmd := &cobra.Command{
		Use:   "relocate <archive>",
		Short: "Rewrite an archive's namespaces into the relocation cache",
		Long: `Rewrite an archive's namespaces into the relocation cache.

Rules are given as from=to and applied first-match in the order listed.
The runtime rules from the configuration are appended unless --no-runtime
is set.`,
		Example: "  modboot relocate demo-1.0.jar --rule org.example=shaded.example",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				app.reportFailure(err)
				return err
			}

			var rules artifact.RuleSet
			for _, raw := range rawRules {
				r, err := artifact.ParseRule(raw)
				if err != nil {
					return &ExitError{Code: ExitFailure, Err: err}
				}
				rules = append(rules, r)
			}
			rt := bootstrap.Runtime(cfg)
			if len(rules) > 0 && !noRuntime {
				rules = rules.With(relocate.ImplicitRules(rt)...)
			}

			relocator := relocate.New(bootstrap.CacheDir(cfg),
				relocate.WithPins(rt.Pins()...),
				relocate.WithLogger(app.logger().WithPrefix("relocate")),
			)
			out, err := relocator.Relocate(ctx, args[0], rules, relocate.Options{Force: force})
			if err != nil {
				err = withGuidance(err, "relocate archive", args[0])
				app.reportFailure(err)
				return &ExitError{Code: ExitFailure, Err: err}
			}

			status := SubtitleStyle.Render("cached")
			switch {
			case out.Rewritten:
				status = SuccessStyle.Render("rewritten")
			case out.RulesDigest == "":
				status = WarningStyle.Render("unchanged (no rules)")
			}
			fmt.Fprintf(app.stdout, "%s %s\n", status, out.Path)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawRules, "rule", nil, "relocation rule from=to (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "rewrite even when a cached output exists")
	cmd.Flags().BoolVar(&noRuntime, "no-runtime", false, "do not append the runtime relocation rules")
	return cmd
}
