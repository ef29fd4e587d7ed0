// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"modboot/internal/issue"
	"modboot/pkg/artifact"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	loaded, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("LoadWithPath() error: %v", err)
	}
	if loaded.Path != "" {
		t.Errorf("Path = %q, want empty", loaded.Path)
	}
	if diff := cmp.Diff(DefaultConfig(), loaded.Config, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `
repositories: project: "s3://artifacts/maven"
project: {
	id:      "demo"
	group:   "org.example"
	package: "org.example.demo"
	version: "skip"
}
isolation: enabled: true
modules: ["org.example:extra:2.0"]
dev: {enabled: true, force_download: true}
failure_policy: "skip-optional"
relocation: rules: ["com.google.gson=org.example.gson"]
`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Project.ID != "demo" || !cfg.SkipsModules() || !cfg.Isolation.Enabled {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Repositories.Central != DefaultConfig().Repositories.Central {
		t.Errorf("central repository default lost: %q", cfg.Repositories.Central)
	}
	if cfg.Runtime.Version != "1.8.22" {
		t.Errorf("runtime.version = %q, want default", cfg.Runtime.Version)
	}

	rules, err := cfg.Rules()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(artifact.RuleSet{artifact.NewRule("com.google.gson", "org.example.gson")}, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}

	modules, err := cfg.OptionalModules()
	if err != nil {
		t.Fatal(err)
	}
	want := []artifact.Coordinate{artifact.NewCoordinate("s3://artifacts/maven", "org.example", "extra", "2.0")}
	if diff := cmp.Diff(want, modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BlankModuleEntries(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `modules: ["", "module-chat", " "]`)
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	modules, err := cfg.OptionalModules()
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 1 || modules[0].Name != "module-chat" {
		t.Errorf("modules = %+v, want only module-chat", modules)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown field", `container_engine: "docker"`, "container_engine"},
		{"bad policy", `failure_policy: "retry"`, "failure_policy"},
		{"bad repository scheme", `repositories: central: "ftp://mirror"`, "repositories.central"},
		{"bad coordinate", `modules: ["org.example:demo"]`, "modules"},
		{"wrong type", `isolation: enabled: "yes"`, "isolation.enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := writeConfig(t, tt.content)
			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Operation != "load configuration" {
				t.Fatalf("error = %v, want load configuration ActionableError", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestLoad_SemanticValidation(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `runtime: version: "one.eight"`)
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
	var ice *InvalidConfigError
	if !errors.As(err, &ice) || len(ice.FieldErrors) != 1 || !strings.HasPrefix(ice.FieldErrors[0], "runtime.version") {
		t.Errorf("FieldErrors = %v", ice)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("Load() error = %v, want ActionableError with suggestions", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

//nolint:paralleltest // t.Setenv
func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MODBOOT_DEV_FORCE_DOWNLOAD", "true")
	t.Setenv("MODBOOT_PROJECT_VERSION", "2.0.0")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Dev.ForceDownload || cfg.Project.Version != "2.0.0" {
		t.Errorf("environment not applied: dev=%+v project=%+v", cfg.Dev, cfg.Project)
	}
}

func TestGenerateCUE_RoundTrips(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Modules = []string{"org.example:extra:2.0"}
	want.Relocation.Rules = []string{"a.b=c.d"}
	want.S3.Endpoint = "http://localhost:9000"
	want.Metrics.Textfile = "/var/lib/node_exporter/modboot.prom"
	want.Verbose = true

	dir := writeConfig(t, GenerateCUE(want))
	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDefaultConfig_KeepsExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := CreateDefaultConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("verbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "verbose: true\n" {
		t.Errorf("existing config overwritten: %q", data)
	}
}
