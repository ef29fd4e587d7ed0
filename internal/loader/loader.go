// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"modboot/internal/activation"
	"modboot/internal/isolation"
	"modboot/internal/lifecycle"
	"modboot/internal/metrics"
	"modboot/internal/relocate"
	"modboot/internal/transfer"
	"modboot/pkg/artifact"
)

type (
	// Ensurer fetches and verifies artifacts. *transfer.Ensurer implements it.
	Ensurer interface {
		Ensure(ctx context.Context, c artifact.Coordinate, opts transfer.EnsureOptions) (transfer.Result, error)
	}

	// Relocator rewrites artifacts. *relocate.Relocator implements it.
	Relocator interface {
		Relocate(ctx context.Context, src string, rules artifact.RuleSet, opts relocate.Options) (relocate.Artifact, error)
	}

	// Module is one declared module.
	Module struct {
		Coordinate artifact.Coordinate
		// Isolated registers the module in the private boundary.
		Isolated bool
		// External modules are libraries: their units are not scanned for awakeners.
		External bool
		// Optional modules are user-selected; see FailurePolicy.
		Optional bool
		// Rules relocate the module. Empty means no rewrite.
		Rules artifact.RuleSet
	}

	// Result describes the outcome of Load.
	Result struct {
		Module     Module
		Loaded     bool
		Skipped    bool
		Downloaded bool
		// Path is the archive that was registered.
		Path   string
		Handle *isolation.Handle
		// Awakened lists the units whose awakener ran.
		Awakened []string
		// Invoked lists the entry units invoked, in order.
		Invoked []string
		// Err is the failure that SkipOptional swallowed, if any.
		Err error
		// Reused is set when the archive was already registered by an
		// earlier Load; its awakeners and entries did not run again.
		Reused bool
	}

	// DevMode holds the development-iteration switches.
	DevMode struct {
		Enabled       bool
		ForceDownload bool
	}

	// Loader runs the per-module loading steps.
	Loader struct {
		ensurer   Ensurer
		relocator Relocator
		space     isolation.Space
		registry  *activation.Registry
		registrar lifecycle.Registrar

		policy       FailurePolicy
		dev          DevMode
		projectGroup string
		runtime      relocate.Runtime
		skipRuntime  bool
		entryPrefix  string

		logger  *log.Logger
		metrics *metrics.Recorder

		mu      sync.Mutex
		started map[*isolation.Handle]bool
	}

	// Option configures a Loader during construction.
	Option func(*Loader)
)

// WithRegistry sets the activation registry. The default is activation.Default.
func WithRegistry(r *activation.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithRegistrar sets where awakeners register lifecycle callbacks.
func WithRegistrar(r lifecycle.Registrar) Option {
	return func(l *Loader) { l.registrar = r }
}

// WithFailurePolicy sets the optional-module failure policy.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(l *Loader) { l.policy = p }
}

// WithDevMode enables development switches. Force download applies only to
// modules in the project group.
func WithDevMode(dev DevMode, projectGroup string) Option {
	return func(l *Loader) {
		l.dev = dev
		l.projectGroup = projectGroup
	}
}

// WithRuntime sets the runtime whose namespaces are relocated alongside
// every non-empty rule set. skip suppresses those implicit rules.
func WithRuntime(rt relocate.Runtime, skip bool) Option {
	return func(l *Loader) {
		l.runtime = rt
		l.skipRuntime = skip
	}
}

// WithEntryPrefix sets the package prefix manifest entry units are relative to.
func WithEntryPrefix(prefix string) Option {
	return func(l *Loader) { l.entryPrefix = prefix }
}

// WithLogger sets the logger. The default writes to stderr with a "loader" prefix.
func WithLogger(lg *log.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(l *Loader) { l.metrics = m }
}

// New creates a Loader.
func New(ensurer Ensurer, relocator Relocator, space isolation.Space, opts ...Option) *Loader {
	l := &Loader{
		ensurer:   ensurer,
		relocator: relocator,
		space:     space,
		registry:  activation.Default,
		started:   make(map[*isolation.Handle]bool),
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "loader"}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.registrar == nil {
		l.registrar = lifecycle.NewSequencer()
	}
	return l
}

// Space returns the isolation space modules are registered into.
func (l *Loader) Space() isolation.Space {
	return l.space
}

// Load materializes m. A module without a name is not configured: it is
// skipped without error.
func (l *Loader) Load(ctx context.Context, m Module) (Result, error) {
	res := Result{Module: m}
	c := m.Coordinate
	if !c.IsConfigured() {
		l.logger.Debug("module not configured", "group", c.Group)
		l.metrics.ModuleLoad(metrics.ResultSkipped)
		res.Skipped = true
		return res, nil
	}

	forceDownload := l.dev.Enabled && l.dev.ForceDownload && c.Group == l.projectGroup
	ensured, err := l.ensurer.Ensure(ctx, c, transfer.EnsureOptions{Force: forceDownload})
	if err != nil {
		return l.fail(res, StepEnsure, err)
	}
	res.Downloaded = ensured.Downloaded

	rules := m.Rules
	if len(rules) > 0 && !l.skipRuntime {
		rules = rules.With(relocate.ImplicitRules(l.runtime)...)
	}
	relocated, err := l.relocator.Relocate(ctx, ensured.Artifact.Path, rules, relocate.Options{
		Force: ensured.Downloaded || (l.dev.Enabled && l.dev.ForceDownload),
	})
	if err != nil {
		return l.fail(res, StepRelocate, err)
	}

	h, err := l.space.AddPath(relocated.Path, m.Isolated, m.External)
	if err != nil {
		return l.fail(res, StepRegister, err)
	}
	res.Handle = h
	res.Path = h.Path

	if !l.markStarted(h) {
		res.Loaded = true
		res.Reused = true
		l.metrics.ModuleLoad(metrics.ResultLoaded)
		l.logger.Debug("module already registered", "module", c.Key(), "path", res.Path)
		return res, nil
	}

	if !m.External {
		res.Awakened = l.registry.Awaken(h.Units, l.registrar)
	}

	manifest, err := artifact.ReadManifestFS(h)
	if err != nil {
		return l.fail(res, StepManifest, err)
	}
	if manifest.HasEntries() {
		l.logger.Debug("invoking entries", "module", c.Key(), "units", manifest.Main, "method", manifest.MainMethod)
		for _, unit := range manifest.Main {
			name := l.entryPrefix + unit
			if _, ok := h.Lookup(name); !ok {
				return l.fail(res, StepInvoke, &activation.EntryInvocationError{
					Unit: name, Method: manifest.MainMethod, Cause: activation.ErrUnitNotFound,
				})
			}
			if err := l.registry.Invoke(ctx, name, manifest.MainMethod); err != nil {
				return l.fail(res, StepInvoke, err)
			}
			res.Invoked = append(res.Invoked, name)
		}
	}

	res.Loaded = true
	l.metrics.ModuleLoad(metrics.ResultLoaded)
	l.logger.Debug("module loaded", "module", c.Key(), "path", res.Path, "boundary", h.Boundary, "external", m.External)
	return res, nil
}

// markStarted records h and reports whether it was new.
func (l *Loader) markStarted(h *isolation.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started[h] {
		return false
	}
	l.started[h] = true
	return true
}

// LoadAll loads modules in order and stops at the first error.
func (l *Loader) LoadAll(ctx context.Context, modules []Module) ([]Result, error) {
	results := make([]Result, 0, len(modules))
	for _, m := range modules {
		res, err := l.Load(ctx, m)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// CheckEnvironment verifies that probe resolves from the given boundary.
func (l *Loader) CheckEnvironment(from isolation.Boundary, probe string) error {
	if _, ok := l.space.Lookup(from, probe); !ok {
		return &EnvironmentError{Probe: probe}
	}
	return nil
}

func (l *Loader) fail(res Result, step Step, err error) (Result, error) {
	merr := &ModuleError{Coordinate: res.Module.Coordinate, Step: step, Err: err}
	if res.Module.Optional && l.policy == SkipOptional {
		l.logger.Warn("skipping optional module", "module", res.Module.Coordinate.Key(), "step", step, "error", err)
		l.metrics.ModuleLoad(metrics.ResultSkipped)
		res.Skipped = true
		res.Err = merr
		return res, nil
	}
	l.metrics.ModuleLoad(metrics.ResultFailed)
	return res, merr
}
