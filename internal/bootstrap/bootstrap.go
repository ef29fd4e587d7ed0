// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"modboot/internal/activation"
	"modboot/internal/config"
	"modboot/internal/isolation"
	"modboot/internal/lifecycle"
	"modboot/internal/loader"
	"modboot/internal/metrics"
	"modboot/internal/relocate"
	"modboot/internal/transfer"
)

type (
	// Clock abstracts wall-clock reads for phase timing.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}

	// Option configures a Bootstrap.
	Option func(*Bootstrap)

	// Bootstrap owns the components of one boot.
	Bootstrap struct {
		cfg       *config.Config
		graph     Graph
		clock     Clock
		logger    *log.Logger
		metrics   *metrics.Recorder
		registry  *activation.Registry
		sequencer *lifecycle.Sequencer
		space     isolation.Space
		ownsSpace bool
		sources   map[string]transfer.Source
		loader    *loader.Loader
		bindOnce  sync.Once
	}
)

func (systemClock) Now() time.Time { return time.Now() }

// WithClock sets the clock used for phase timing.
func WithClock(c Clock) Option {
	return func(b *Bootstrap) { b.clock = c }
}

// WithLogger sets the parent logger. Components log through children with
// their own prefix.
func WithLogger(l *log.Logger) Option {
	return func(b *Bootstrap) { b.logger = l }
}

// WithMetrics records counters and phase timings on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(b *Bootstrap) { b.metrics = m }
}

// WithRegistry sets the activation registry. The default is
// activation.Default, which init functions populate.
func WithRegistry(r *activation.Registry) Option {
	return func(b *Bootstrap) { b.registry = r }
}

// WithSequencer sets the lifecycle sequencer awakeners register into.
func WithSequencer(s *lifecycle.Sequencer) Option {
	return func(b *Bootstrap) { b.sequencer = s }
}

// WithSpace injects the isolation space. The caller keeps ownership.
func WithSpace(s isolation.Space) Option {
	return func(b *Bootstrap) { b.space = s }
}

// WithSource adds a repository source for a URL scheme.
func WithSource(scheme string, s transfer.Source) Option {
	return func(b *Bootstrap) { b.sources[scheme] = s }
}

// New wires the transfer, relocation, isolation and loading components for
// cfg. Directories are created lazily by the components that write to them.
func New(cfg *config.Config, opts ...Option) (*Bootstrap, error) {
	graph, err := NewGraph(cfg)
	if err != nil {
		return nil, err
	}
	policy, err := loader.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	b := &Bootstrap{cfg: cfg, graph: graph, clock: systemClock{}, sources: make(map[string]transfer.Source)}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "modboot"})
	}
	if b.registry == nil {
		b.registry = activation.Default
	}
	if b.sequencer == nil {
		b.sequencer = lifecycle.NewSequencer(
			lifecycle.WithLogger(b.logger.WithPrefix("lifecycle")),
			lifecycle.WithMetrics(b.metrics),
		)
	}
	if b.space == nil {
		b.space = isolation.NewArchiveSpace()
		b.ownsSpace = true
	}

	rt := Runtime(cfg)
	ensurerOpts := []transfer.Option{
		transfer.WithLogger(b.logger.WithPrefix("transfer")),
		transfer.WithMetrics(b.metrics),
		transfer.WithS3Config(transfer.S3Config{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		}),
	}
	for scheme, s := range b.sources {
		ensurerOpts = append(ensurerOpts, transfer.WithSource(scheme, s))
	}
	ensurer := transfer.NewEnsurer(cfg.LibraryDir, ensurerOpts...)
	relocator := relocate.New(CacheDir(cfg),
		relocate.WithPins(rt.Pins()...),
		relocate.WithLogger(b.logger.WithPrefix("relocate")),
		relocate.WithMetrics(b.metrics),
	)

	b.loader = loader.New(ensurer, relocator, b.space,
		loader.WithRegistry(b.registry),
		loader.WithRegistrar(b.sequencer),
		loader.WithFailurePolicy(policy),
		loader.WithDevMode(loader.DevMode{Enabled: cfg.Dev.Enabled, ForceDownload: cfg.Dev.ForceDownload}, cfg.Project.Group),
		loader.WithRuntime(rt, cfg.Dev.SkipRuntimeRelocate),
		loader.WithEntryPrefix(cfg.Project.Package+"."),
		loader.WithLogger(b.logger.WithPrefix("loader")),
		loader.WithMetrics(b.metrics),
	)
	return b, nil
}

// Runtime returns the relocation runtime described by cfg.
func Runtime(cfg *config.Config) relocate.Runtime {
	return relocate.Runtime{
		Namespace:            cfg.Runtime.Namespace,
		Version:              cfg.Runtime.Version,
		ConcurrencyNamespace: cfg.Runtime.ConcurrencyNamespace,
		ConcurrencyVersion:   cfg.Runtime.ConcurrencyVersion,
	}
}

// CacheDir returns the relocated-artifact cache of cfg's project.
func CacheDir(cfg *config.Config) string {
	return filepath.Join(cfg.CacheDir, cfg.Project.Package)
}

// Graph returns the module graph the boot follows.
func (b *Bootstrap) Graph() Graph { return b.graph }

// Sequencer returns the lifecycle sequencer awakeners registered into.
func (b *Bootstrap) Sequencer() *lifecycle.Sequencer { return b.sequencer }

// Registry returns the activation registry.
func (b *Bootstrap) Registry() *activation.Registry { return b.registry }

// Space returns the isolation space modules were registered into.
func (b *Bootstrap) Space() isolation.Space { return b.space }

// Run performs the boot. The returned report is never nil and describes every
// module attempted, including the one that failed.
func (b *Bootstrap) Run(ctx context.Context) (*Report, error) {
	b.bindOnce.Do(func() { b.registry.Bind(b.sequencer) })

	report := &Report{}
	b.logger.Debug("running in debug mode", "library_dir", b.cfg.LibraryDir, "cache_dir", CacheDir(b.cfg))

	if err := b.timed(report, PhaseBase, func() error { return b.runBase(ctx, report) }); err != nil {
		return report, err
	}

	if b.cfg.SkipsModules() {
		b.logger.Info("project version is not specified, skipping modules")
		report.FullSkipped = true
		return report, nil
	}
	if err := b.timed(report, PhaseFull, func() error { return b.runFull(ctx, report) }); err != nil {
		return report, err
	}
	return report, nil
}

// Close releases the isolation space when the Bootstrap created it.
func (b *Bootstrap) Close() error {
	if !b.ownsSpace {
		return nil
	}
	if c, ok := b.space.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (b *Bootstrap) timed(report *Report, phase string, run func() error) error {
	start := b.clock.Now()
	err := run()
	elapsed := b.clock.Now().Sub(start)
	report.setPhase(phase, elapsed)
	b.metrics.Phase(phase, elapsed)
	if err == nil {
		b.logger.Debug("phase complete", "phase", phase, "elapsed_ms", elapsed.Milliseconds())
	}
	return err
}

func (b *Bootstrap) runBase(ctx context.Context, report *Report) error {
	isolated := b.cfg.Isolation.Enabled
	for _, c := range b.graph.Base {
		m := loader.Module{Coordinate: c, Isolated: b.cfg.Isolation.Bootstrap, External: true}
		if err := b.load(ctx, report, PhaseBase, m); err != nil {
			return err
		}
	}
	for _, c := range b.graph.Base {
		m := loader.Module{Coordinate: c, Isolated: isolated, External: true, Rules: b.graph.Rules}
		if err := b.load(ctx, report, PhaseBase, m); err != nil {
			return err
		}
	}
	for _, c := range b.graph.Analysis {
		m := loader.Module{Coordinate: c, Isolated: isolated, External: true, Rules: b.graph.Rules}
		if err := b.load(ctx, report, PhaseBase, m); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bootstrap) runFull(ctx context.Context, report *Report) error {
	isolated := b.cfg.Isolation.Enabled
	rules := b.graph.Rules

	if err := b.load(ctx, report, PhaseFull, loader.Module{Coordinate: b.graph.Env, Isolated: isolated, External: true, Rules: rules}); err != nil {
		return err
	}
	if err := b.CheckEnvironment(); err != nil {
		return err
	}
	if err := b.load(ctx, report, PhaseFull, loader.Module{Coordinate: b.graph.Util, Isolated: isolated, External: true, Rules: rules}); err != nil {
		return err
	}
	for _, c := range b.graph.Common {
		if err := b.load(ctx, report, PhaseFull, loader.Module{Coordinate: c, Isolated: isolated, Rules: rules}); err != nil {
			return err
		}
	}
	for _, c := range b.graph.Optional {
		if err := b.load(ctx, report, PhaseFull, loader.Module{Coordinate: c, Isolated: isolated, Optional: true, Rules: rules}); err != nil {
			return err
		}
	}
	return nil
}

// CheckEnvironment verifies that the companion runtime's probe unit, under
// its relocated name, resolves from the active boundary.
func (b *Bootstrap) CheckEnvironment() error {
	probe := b.cfg.Runtime.Probe
	if probe == "" {
		return nil
	}
	if !b.cfg.Dev.SkipRuntimeRelocate {
		probe = Runtime(b.cfg).RelocatedName(probe)
	}
	return b.loader.CheckEnvironment(isolation.BoundaryFor(b.cfg.Isolation.Enabled), probe)
}

func (b *Bootstrap) load(ctx context.Context, report *Report, phase string, m loader.Module) error {
	if m.Coordinate.IsConfigured() {
		b.logger.Debug("loading module", "module", m.Coordinate.Key(), "isolated", m.Isolated, "external", m.External)
	}
	res, err := b.loader.Load(ctx, m)
	report.record(phase, res, err)
	if err != nil {
		var merr *loader.ModuleError
		if errors.As(err, &merr) {
			return err
		}
		return fmt.Errorf("module %s: %w", m.Coordinate.Key(), err)
	}
	if res.Downloaded {
		b.logger.Info("downloaded library", "module", m.Coordinate.Key())
	}
	return nil
}
