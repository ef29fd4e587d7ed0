// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modboot/internal/bootstrap"
	"modboot/internal/lifecycle"
	"modboot/internal/metrics"
)

type bootFlags struct {
	report  string
	metrics string
	stop    bool
}

func newBootCommand(app *App) *cobra.Command {
	var flags bootFlags
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Run a full boot",
		Long: `Run a full boot: load the base libraries and, unless the project version
is "skip", the runtime environment, common and optional modules. Lifecycle
stages are then fired in order up to ACTIVE, and DISABLE runs on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd, app, flags)
		},
	}
	cmd.Flags().StringVar(&flags.report, "report", "text", "report format: text, toml or json")
	cmd.Flags().StringVar(&flags.metrics, "metrics", "", "write prometheus metrics to this textfile (overrides metrics.textfile)")
	cmd.Flags().BoolVar(&flags.stop, "stop", false, "stop the sequencer after LOAD so only DISABLE runs afterwards")
	return cmd
}

func runBoot(cmd *cobra.Command, app *App, flags bootFlags) error {
	switch flags.report {
	case "text", "toml", "json":
	default:
		return fmt.Errorf("unknown report format %q", flags.report)
	}

	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		app.reportFailure(err)
		return err
	}

	logger := app.logger()
	rec := metrics.New()
	seq := lifecycle.NewSequencer(lifecycle.WithLogger(logger.WithPrefix("lifecycle")), lifecycle.WithMetrics(rec))
	b, err := bootstrap.New(cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithMetrics(rec),
		bootstrap.WithSequencer(seq),
	)
	if err != nil {
		app.reportFailure(err)
		return &ExitError{Code: ExitConfig, Err: err}
	}
	defer func() { _ = b.Close() }()

	seq.Fire(lifecycle.Construct)
	report, runErr := b.Run(ctx)
	if runErr == nil {
		seq.Fire(lifecycle.Init)
		seq.Fire(lifecycle.Load)
		if flags.stop {
			seq.Stop()
		}
		seq.Fire(lifecycle.Enable)
		sched := &lifecycle.QueueScheduler{}
		seq.FireAsync(sched, lifecycle.Active)
		sched.Drain()
	}
	seq.Fire(lifecycle.Disable)

	if err := writeReport(app, report, flags.report); err != nil {
		return err
	}
	textfile := flags.metrics
	if textfile == "" {
		textfile = cfg.Metrics.Textfile
	}
	if textfile != "" {
		if err := rec.WriteToTextfile(textfile); err != nil {
			logger.Warn("could not write metrics", "err", err)
		}
	}

	if runErr != nil {
		runErr = withGuidance(runErr, "boot modules", "")
		app.reportFailure(runErr)
		return &ExitError{Code: ExitBoot, Err: runErr}
	}
	return nil
}

func writeReport(app *App, report *bootstrap.Report, format string) error {
	switch format {
	case "toml":
		data, err := report.TOML()
		if err != nil {
			return err
		}
		_, err = app.stdout.Write(data)
		return err
	case "json":
		data, err := report.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(app.stdout, string(data))
		return err
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Boot report") + "\n\n")
	for _, m := range report.Modules {
		var status string
		switch {
		case m.Loaded:
			status = SuccessStyle.Render("loaded ")
		case m.Skipped:
			status = WarningStyle.Render("skipped")
		default:
			status = ErrorStyle.Render("failed ")
		}
		fmt.Fprintf(&sb, "  %s %-5s %s", status, m.Phase, CmdStyle.Render(m.Module))
		if m.Downloaded {
			sb.WriteString(SubtitleStyle.Render(" (downloaded)"))
		}
		if len(m.Invoked) > 0 {
			sb.WriteString(SubtitleStyle.Render(" entries: " + strings.Join(m.Invoked, ", ")))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%s %d ms\n", SubtitleStyle.Render("base phase:"), report.BaseMillis)
	if report.FullSkipped {
		fmt.Fprintf(&sb, "%s %s\n", SubtitleStyle.Render("full phase:"), WarningStyle.Render("skipped"))
	} else {
		fmt.Fprintf(&sb, "%s %d ms\n", SubtitleStyle.Render("full phase:"), report.FullMillis)
	}
	_, err := fmt.Fprint(app.stdout, sb.String())
	return err
}
