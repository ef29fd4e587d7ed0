// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"modboot/pkg/artifact"
)

// SkipVersion as the project version disables everything after the base phase.
const SkipVersion = "skip"

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the full boot configuration.
	Config struct {
		Repositories  Repositories `json:"repositories" mapstructure:"repositories" toml:"repositories"`
		LibraryDir    string       `json:"library_dir" mapstructure:"library_dir" toml:"library_dir"`
		CacheDir      string       `json:"cache_dir" mapstructure:"cache_dir" toml:"cache_dir"`
		Project       Project      `json:"project" mapstructure:"project" toml:"project"`
		Runtime       Runtime      `json:"runtime" mapstructure:"runtime" toml:"runtime"`
		Isolation     Isolation    `json:"isolation" mapstructure:"isolation" toml:"isolation"`
		Modules       []string     `json:"modules" mapstructure:"modules" toml:"modules"`
		Dev           Dev          `json:"dev" mapstructure:"dev" toml:"dev"`
		FailurePolicy string       `json:"failure_policy" mapstructure:"failure_policy" toml:"failure_policy"`
		Relocation    Relocation   `json:"relocation" mapstructure:"relocation" toml:"relocation"`
		S3            S3           `json:"s3" mapstructure:"s3" toml:"s3"`
		Metrics       Metrics      `json:"metrics" mapstructure:"metrics" toml:"metrics"`
		Verbose       bool         `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}

	// Repositories are the base URLs modules are fetched from.
	Repositories struct {
		// Central serves the base libraries and the shared runtime.
		Central string `json:"central" mapstructure:"central" toml:"central"`
		// Reflex serves the reflection/analysis modules.
		Reflex string `json:"reflex" mapstructure:"reflex" toml:"reflex"`
		// Project serves the project's own modules.
		Project string `json:"project" mapstructure:"project" toml:"project"`
	}

	// Project identifies the host project.
	Project struct {
		// ID is relocated to Package unless dev.skip_self_relocate is set.
		ID string `json:"id" mapstructure:"id" toml:"id"`
		// Group is the coordinate group of the project's own modules.
		Group string `json:"group" mapstructure:"group" toml:"group"`
		// Package is the dotted namespace the project's libraries are
		// relocated under.
		Package string `json:"package" mapstructure:"package" toml:"package"`
		// Version of the project's own modules, or "skip".
		Version string `json:"version" mapstructure:"version" toml:"version"`
	}

	// Runtime describes the companion language runtime.
	Runtime struct {
		Namespace            string `json:"namespace" mapstructure:"namespace" toml:"namespace"`
		Version              string `json:"version" mapstructure:"version" toml:"version"`
		ConcurrencyNamespace string `json:"concurrency_namespace" mapstructure:"concurrency_namespace" toml:"concurrency_namespace"`
		ConcurrencyVersion   string `json:"concurrency_version" mapstructure:"concurrency_version" toml:"concurrency_version"`
		// Probe is the unit whose presence proves the runtime is usable.
		Probe string `json:"probe" mapstructure:"probe" toml:"probe"`
	}

	// Isolation selects the boundary modules are registered into.
	Isolation struct {
		// Enabled registers modules into the private boundary.
		Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
		// Bootstrap is the isolation used for the first pass over the
		// base libraries.
		Bootstrap bool `json:"bootstrap" mapstructure:"bootstrap" toml:"bootstrap"`
	}

	// Dev holds development switches.
	Dev struct {
		Enabled             bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
		ForceDownload       bool `json:"force_download" mapstructure:"force_download" toml:"force_download"`
		SkipSelfRelocate    bool `json:"skip_self_relocate" mapstructure:"skip_self_relocate" toml:"skip_self_relocate"`
		SkipRuntimeRelocate bool `json:"skip_runtime_relocate" mapstructure:"skip_runtime_relocate" toml:"skip_runtime_relocate"`
	}

	// Relocation holds extra relocation rules in "from=to" form.
	Relocation struct {
		Rules []string `json:"rules" mapstructure:"rules" toml:"rules"`
	}

	// S3 configures s3:// repositories.
	S3 struct {
		Region    string `json:"region" mapstructure:"region" toml:"region"`
		Endpoint  string `json:"endpoint" mapstructure:"endpoint" toml:"endpoint"`
		PathStyle bool   `json:"path_style" mapstructure:"path_style" toml:"path_style"`
	}

	// Metrics configures the prometheus textfile export.
	Metrics struct {
		Textfile string `json:"textfile" mapstructure:"textfile" toml:"textfile"`
	}

	// InvalidConfigError collects field-level validation failures that the
	// schema cannot express. It wraps ErrInvalidConfig for errors.Is()
	// compatibility.
	InvalidConfigError struct {
		FieldErrors []string
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.FieldErrors, "; "))
}

// Unwrap returns ErrInvalidConfig so callers can use errors.Is.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Repositories: Repositories{
			Central: "https://repo1.maven.org/maven2",
			Reflex:  "https://repo1.maven.org/maven2",
			Project: "https://repo1.maven.org/maven2",
		},
		LibraryDir: "libraries",
		CacheDir:   "cache",
		Project: Project{
			ID:      "modboot",
			Group:   "io.modboot",
			Package: "io.modboot.app",
			Version: "1.0.0",
		},
		Runtime: Runtime{
			Namespace:            "kotlin",
			Version:              "1.8.22",
			ConcurrencyNamespace: "kotlinx.coroutines",
			ConcurrencyVersion:   "1.7.3",
			Probe:                "kotlin.Lazy",
		},
		Isolation:     Isolation{Enabled: false, Bootstrap: false},
		Modules:       []string{},
		FailurePolicy: "abort",
		Relocation:    Relocation{Rules: []string{}},
		S3:            S3{Region: "us-east-1"},
	}
}

// SkipsModules reports whether the project version disables the full phase.
func (c *Config) SkipsModules() bool {
	return strings.EqualFold(c.Project.Version, SkipVersion)
}

// Rules parses the extra relocation rules.
func (c *Config) Rules() (artifact.RuleSet, error) {
	rules := make(artifact.RuleSet, 0, len(c.Relocation.Rules))
	for _, s := range c.Relocation.Rules {
		r, err := artifact.ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// OptionalModules resolves the configured modules against the project
// repository. A bare name ("module-chat") is a project module at the project
// version; anything else must be a full "group:name:version" coordinate.
// Blank entries are ignored.
func (c *Config) OptionalModules() ([]artifact.Coordinate, error) {
	out := make([]artifact.Coordinate, 0, len(c.Modules))
	for _, s := range c.Modules {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, ":") {
			coord := artifact.NewCoordinate(c.Repositories.Project, c.Project.Group, s, c.Project.Version)
			if err := coord.Validate(); err != nil {
				return nil, err
			}
			out = append(out, coord)
			continue
		}
		coord, err := artifact.ParseCoordinate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, coord.WithRepository(c.Repositories.Project))
	}
	return out, nil
}

// Validate checks constraints the CUE schema cannot express: runtime
// versions must be semantic versions, rules and modules must parse, and
// repositories must name a supported scheme.
func (c *Config) Validate() error {
	var errs []string

	for name, repo := range map[string]string{
		"repositories.central": c.Repositories.Central,
		"repositories.reflex":  c.Repositories.Reflex,
		"repositories.project": c.Repositories.Project,
	} {
		if err := validateRepository(repo); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if !validVersion(c.Runtime.Version) {
		errs = append(errs, fmt.Sprintf("runtime.version: %q is not a semantic version", c.Runtime.Version))
	}
	if !validVersion(c.Runtime.ConcurrencyVersion) {
		errs = append(errs, fmt.Sprintf("runtime.concurrency_version: %q is not a semantic version", c.Runtime.ConcurrencyVersion))
	}
	if strings.TrimSpace(c.Project.Package) == "" {
		errs = append(errs, "project.package must not be empty")
	}
	if strings.TrimSpace(c.Project.Group) == "" {
		errs = append(errs, "project.group must not be empty")
	}
	if c.LibraryDir == "" || c.CacheDir == "" {
		errs = append(errs, "library_dir and cache_dir must not be empty")
	}
	switch c.FailurePolicy {
	case "", "abort", "skip-optional":
	default:
		errs = append(errs, fmt.Sprintf("failure_policy: unknown policy %q", c.FailurePolicy))
	}
	if _, err := c.Rules(); err != nil {
		errs = append(errs, "relocation.rules: "+err.Error())
	}
	if _, err := c.OptionalModules(); err != nil {
		errs = append(errs, "modules: "+err.Error())
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func validateRepository(repo string) error {
	u, err := url.Parse(repo)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "s3", "file":
		return nil
	default:
		return fmt.Errorf("unsupported repository %q", repo)
	}
}

// validVersion accepts "1.8.22" as well as "v1.8.22".
func validVersion(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}
