// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"modboot/internal/metrics"
)

// none marks a sequencer on which no stage has fired yet.
const none Stage = -1

type (
	// Task is a stage callback.
	Task func()

	// Registrar accepts stage callbacks. Entry hooks and awakeners receive a
	// Registrar rather than the full Sequencer.
	Registrar interface {
		Register(stage Stage, task Task)
	}

	// Sequencer is the append-only stage registry plus its monotonic run state.
	Sequencer struct {
		mu      sync.Mutex
		tasks   [numStages][]Task
		fired   [numStages]bool
		current Stage
		stopped bool

		logger  *log.Logger
		metrics *metrics.Recorder
	}

	// SequencerOption configures a Sequencer during construction.
	SequencerOption func(*Sequencer)
)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) SequencerOption {
	return func(s *Sequencer) {
		s.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) SequencerOption {
	return func(s *Sequencer) {
		s.metrics = m
	}
}

// NewSequencer creates a sequencer on which no stage has fired.
func NewSequencer(opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		current: none,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register appends task to stage. If stage has already fired the task runs
// immediately instead, outside the sequencer lock.
func (s *Sequencer) Register(stage Stage, task Task) {
	if task == nil || !stage.Valid() {
		return
	}

	s.mu.Lock()
	if s.fired[stage] {
		s.mu.Unlock()
		s.logger.Debug("late registration, running now", "stage", stage)
		task()
		return
	}
	s.tasks[stage] = append(s.tasks[stage], task)
	s.mu.Unlock()
}

// Fire advances the sequencer to stage. Every stage between the current one
// and stage that has not fired yet fires first, in order; stages reached
// while stopped are skipped, except Disable. Fire reports whether stage
// became current. Firing a stage at or before the current one is a no-op.
func (s *Sequencer) Fire(stage Stage) bool {
	if !stage.Valid() {
		return false
	}

	advanced := false
	for {
		s.mu.Lock()
		if s.current >= stage || (s.stopped && stage != Disable) {
			s.mu.Unlock()
			return advanced
		}
		next := s.current + 1
		s.current = next
		if s.stopped && next != Disable {
			s.mu.Unlock()
			s.logger.Debug("stage skipped", "stage", next)
			continue
		}
		s.fired[next] = true
		tasks := slices.Clone(s.tasks[next])
		s.mu.Unlock()

		s.logger.Debug("stage firing", "stage", next, "callbacks", len(tasks))
		s.metrics.StageFired(next.String())
		for _, task := range tasks {
			task()
		}
		advanced = advanced || next == stage
	}
}

// FireAsync hands the firing of stage to the host scheduler instead of
// running it inline.
func (s *Sequencer) FireAsync(sched Scheduler, stage Stage) {
	sched.Schedule(func() { s.Fire(stage) })
}

// Stop sets the one-way stopped flag. Already fired stages are unaffected.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Stopped reports whether Stop has been called.
func (s *Sequencer) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Current returns the latest stage reached and whether any stage has been
// reached at all.
func (s *Sequencer) Current() (Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != none
}

// Fired reports whether stage's callbacks have run.
func (s *Sequencer) Fired(stage Stage) bool {
	if !stage.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired[stage]
}
