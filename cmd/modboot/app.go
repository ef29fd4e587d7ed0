// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"modboot/internal/config"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared state. Every command handler receives
	// the App it was built with, so tests can run isolated command trees.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer

		// issueStyle is the glamour style used for issue guidance.
		issueStyle string
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     ConfigProvider
		Stdout     io.Writer
		Stderr     io.Writer
		IssueStyle string
	}
)

// NewApp builds an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:     deps.Config,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		issueStyle: deps.IssueStyle,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.issueStyle == "" {
		app.issueStyle = "auto"
	}
	return app
}

// loadConfig loads the configuration selected by the global flags. A config
// file may turn verbose output on; the flag cannot be turned off by it.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: err}
	}
	if cfg.Verbose {
		a.verbose = true
	}
	return cfg, nil
}

// logger returns the CLI logger, at debug level in verbose mode.
func (a *App) logger() *log.Logger {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{Prefix: "modboot", Level: level})
}
