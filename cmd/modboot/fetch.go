// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"modboot/internal/transfer"
	"modboot/pkg/artifact"
)

func newFetchCommand(app *App) *cobra.Command {
	var (
		repo  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <group:name:version>...",
		Short: "Download and verify artifacts into the library directory",
		Long: `Download and verify artifacts into the library directory.

A cached artifact whose SHA-1 sidecar matches is reused without network
access unless --force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				app.reportFailure(err)
				return err
			}
			if repo == "" {
				repo = cfg.Repositories.Central
			}

			coords := make([]artifact.Coordinate, 0, len(args))
			for _, arg := range args {
				c, err := artifact.ParseCoordinate(arg)
				if err != nil {
					err = withGuidance(err, "parse coordinate", arg)
					app.reportFailure(err)
					return &ExitError{Code: ExitFailure, Err: err}
				}
				coords = append(coords, c.WithRepository(repo))
			}

			ensurer := transfer.NewEnsurer(cfg.LibraryDir,
				transfer.WithLogger(app.logger().WithPrefix("transfer")),
				transfer.WithS3Config(transfer.S3Config{
					Region:    cfg.S3.Region,
					Endpoint:  cfg.S3.Endpoint,
					PathStyle: cfg.S3.PathStyle,
				}),
			)
			for _, c := range coords {
				res, err := ensurer.Ensure(ctx, c, transfer.EnsureOptions{Force: force})
				if err != nil {
					err = withGuidance(err, "fetch module", c.Key())
					app.reportFailure(err)
					return &ExitError{Code: ExitFailure, Err: err}
				}
				status := SubtitleStyle.Render("cached")
				if res.Downloaded {
					status = SuccessStyle.Render(fmt.Sprintf("downloaded %d bytes", res.Bytes))
				}
				fmt.Fprintf(app.stdout, "%s %s %s\n", CmdStyle.Render(c.Key()), status, res.Artifact.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository base URL (default is repositories.central)")
	cmd.Flags().BoolVar(&force, "force", false, "download even when the cached artifact is valid")
	return cmd
}
