// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"modboot/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "modboot"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "MODBOOT"

	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modboot configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS
// and $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, "Library", "Application Support")
	default:
		dir = os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(dir, AppName), nil
}

// loadWithOptions loads defaults, then the first config file found (explicit
// path, config dir, current directory), then environment overrides. It
// returns the path of the file that was read, or "" when none was.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modboot config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			var err error
			if cfgDir, err = ConfigDir(); err != nil {
				return nil, "", err
			}
		}
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Runtime versions must be semantic versions such as \"1.8.22\"").
			WithSuggestion("Relocation rules use the \"from=to\" form").
			Wrap(err).
			BuildError()
	}
	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("repositories.central", d.Repositories.Central)
	v.SetDefault("repositories.reflex", d.Repositories.Reflex)
	v.SetDefault("repositories.project", d.Repositories.Project)
	v.SetDefault("library_dir", d.LibraryDir)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("project.id", d.Project.ID)
	v.SetDefault("project.group", d.Project.Group)
	v.SetDefault("project.package", d.Project.Package)
	v.SetDefault("project.version", d.Project.Version)
	v.SetDefault("runtime.namespace", d.Runtime.Namespace)
	v.SetDefault("runtime.version", d.Runtime.Version)
	v.SetDefault("runtime.concurrency_namespace", d.Runtime.ConcurrencyNamespace)
	v.SetDefault("runtime.concurrency_version", d.Runtime.ConcurrencyVersion)
	v.SetDefault("runtime.probe", d.Runtime.Probe)
	v.SetDefault("isolation.enabled", d.Isolation.Enabled)
	v.SetDefault("isolation.bootstrap", d.Isolation.Bootstrap)
	v.SetDefault("modules", d.Modules)
	v.SetDefault("dev.enabled", d.Dev.Enabled)
	v.SetDefault("dev.force_download", d.Dev.ForceDownload)
	v.SetDefault("dev.skip_self_relocate", d.Dev.SkipSelfRelocate)
	v.SetDefault("dev.skip_runtime_relocate", d.Dev.SkipRuntimeRelocate)
	v.SetDefault("failure_policy", d.FailurePolicy)
	v.SetDefault("relocation.rules", d.Relocation.Rules)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.path_style", d.S3.PathStyle)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("verbose", d.Verbose)
}

// loadCUEIntoViper parses a CUE file, validates it against #Config and merges
// it into v. Fields are optional, so validation is not concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// formatCUEError prefixes every CUE error with the file and the dotted path
// of the offending field: "config.cue: runtime.version: conflicting values".
func formatCUEError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if field != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, field), ":"))
			msg = field + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", path, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", path, strings.Join(lines, "\n  "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to dir unless a
// config file already exists there. It returns the file path.
func CreateDefaultConfig(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE renders cfg as a config file accepted by the schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// modboot configuration\n\n")

	sb.WriteString("repositories: {\n")
	fmt.Fprintf(&sb, "\tcentral: %q\n", cfg.Repositories.Central)
	fmt.Fprintf(&sb, "\treflex:  %q\n", cfg.Repositories.Reflex)
	fmt.Fprintf(&sb, "\tproject: %q\n", cfg.Repositories.Project)
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "library_dir: %q\n", cfg.LibraryDir)
	fmt.Fprintf(&sb, "cache_dir:   %q\n\n", cfg.CacheDir)

	sb.WriteString("project: {\n")
	fmt.Fprintf(&sb, "\tid:      %q\n", cfg.Project.ID)
	fmt.Fprintf(&sb, "\tgroup:   %q\n", cfg.Project.Group)
	fmt.Fprintf(&sb, "\tpackage: %q\n", cfg.Project.Package)
	fmt.Fprintf(&sb, "\tversion: %q\n", cfg.Project.Version)
	sb.WriteString("}\n\n")

	sb.WriteString("runtime: {\n")
	fmt.Fprintf(&sb, "\tnamespace:             %q\n", cfg.Runtime.Namespace)
	fmt.Fprintf(&sb, "\tversion:               %q\n", cfg.Runtime.Version)
	fmt.Fprintf(&sb, "\tconcurrency_namespace: %q\n", cfg.Runtime.ConcurrencyNamespace)
	fmt.Fprintf(&sb, "\tconcurrency_version:   %q\n", cfg.Runtime.ConcurrencyVersion)
	fmt.Fprintf(&sb, "\tprobe:                 %q\n", cfg.Runtime.Probe)
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "isolation: {enabled: %v, bootstrap: %v}\n\n", cfg.Isolation.Enabled, cfg.Isolation.Bootstrap)

	writeList(&sb, "modules", cfg.Modules, "")

	sb.WriteString("dev: {\n")
	fmt.Fprintf(&sb, "\tenabled:               %v\n", cfg.Dev.Enabled)
	fmt.Fprintf(&sb, "\tforce_download:        %v\n", cfg.Dev.ForceDownload)
	fmt.Fprintf(&sb, "\tskip_self_relocate:    %v\n", cfg.Dev.SkipSelfRelocate)
	fmt.Fprintf(&sb, "\tskip_runtime_relocate: %v\n", cfg.Dev.SkipRuntimeRelocate)
	sb.WriteString("}\n\n")

	if cfg.FailurePolicy != "" {
		fmt.Fprintf(&sb, "failure_policy: %q\n\n", cfg.FailurePolicy)
	}

	sb.WriteString("relocation: {\n")
	writeList(&sb, "rules", cfg.Relocation.Rules, "\t")
	sb.WriteString("}\n\n")

	sb.WriteString("s3: {\n")
	fmt.Fprintf(&sb, "\tregion:     %q\n", cfg.S3.Region)
	if cfg.S3.Endpoint != "" {
		fmt.Fprintf(&sb, "\tendpoint:   %q\n", cfg.S3.Endpoint)
	}
	fmt.Fprintf(&sb, "\tpath_style: %v\n", cfg.S3.PathStyle)
	sb.WriteString("}\n")

	if cfg.Metrics.Textfile != "" {
		fmt.Fprintf(&sb, "\nmetrics: textfile: %q\n", cfg.Metrics.Textfile)
	}
	if cfg.Verbose {
		sb.WriteString("\nverbose: true\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, key string, items []string, indent string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "%s%s: []\n", indent, key)
		return
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, key)
	for _, item := range items {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, item)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}
