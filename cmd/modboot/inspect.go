// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modboot/internal/isolation"
	"modboot/pkg/artifact"
)

// archiveInfo is the inspect output for one archive.
type archiveInfo struct {
	Path       string   `json:"path"`
	Units      []string `json:"units"`
	Entries    []string `json:"entries,omitempty"`
	MainMethod string   `json:"main_method,omitempty"`
}

func newInspectCommand(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <archive>...",
		Short: "List the units and entry hooks of archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space := isolation.NewArchiveSpace()
			defer func() { _ = space.Close() }()

			infos := make([]archiveInfo, 0, len(args))
			for _, path := range args {
				h, err := space.AddPath(path, false, false)
				if err != nil {
					err = withGuidance(err, "inspect archive", path)
					app.reportFailure(err)
					return &ExitError{Code: ExitFailure, Err: err}
				}
				m, err := artifact.ReadManifestFS(h)
				if err != nil {
					return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s: %w", path, err)}
				}
				info := archiveInfo{Path: h.Path, Units: h.Units}
				if m.HasEntries() {
					info.Entries = m.Main
					info.MainMethod = m.MainMethod
				}
				infos = append(infos, info)
			}

			if asJSON {
				data, err := json.MarshalIndent(infos, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(app.stdout, string(data))
				return err
			}

			var sb strings.Builder
			for i, info := range infos {
				if i > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(TitleStyle.Render(info.Path) + "\n")
				fmt.Fprintf(&sb, "  %s %d\n", SubtitleStyle.Render("units:"), len(info.Units))
				for _, u := range info.Units {
					sb.WriteString("    " + u + "\n")
				}
				if len(info.Entries) == 0 {
					sb.WriteString("  " + SubtitleStyle.Render("no entry hooks") + "\n")
					continue
				}
				fmt.Fprintf(&sb, "  %s %s\n", SubtitleStyle.Render("entry method:"), CmdStyle.Render(info.MainMethod))
				for _, e := range info.Entries {
					sb.WriteString("    " + e + "\n")
				}
			}
			_, err := fmt.Fprint(app.stdout, sb.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}
