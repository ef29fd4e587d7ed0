// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for modboot.
//
// The root command carries the global --config and --verbose flags; the
// subcommands run a full boot, fetch or relocate a single artifact, inspect
// an archive, and show or initialize the configuration.
package cmd
