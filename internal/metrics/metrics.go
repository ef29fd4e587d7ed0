// SPDX-License-Identifier: MPL-2.0

// Package metrics records bootstrap counters and phase timings on a private
// prometheus registry. A nil *Recorder is valid and records nothing, so
// components can take one unconditionally.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modboot"

// Result labels for module loads.
const (
	ResultLoaded  = "loaded"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Recorder owns the bootstrap collectors.
type Recorder struct {
	registry *prometheus.Registry

	downloads         *prometheus.CounterVec
	downloadedBytes   prometheus.Counter
	cacheHits         prometheus.Counter
	integrityFailures prometheus.Counter
	relocations       *prometheus.CounterVec
	moduleLoads       *prometheus.CounterVec
	phaseDuration     *prometheus.GaugeVec
	stageFires        *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transfer",
				Name:      "downloads_total",
				Help:      "Artifact and sidecar downloads by file kind.",
			},
			[]string{"kind"},
		),
		downloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the artifact cache.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "cache_hits_total",
			Help:      "Ensure calls satisfied by an already valid local artifact.",
		}),
		integrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "integrity_failures_total",
			Help:      "Checksum mismatches detected after download.",
		}),
		relocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relocate",
				Name:      "artifacts_total",
				Help:      "Relocation requests by outcome (rewritten or cached).",
			},
			[]string{"rewritten"},
		),
		moduleLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "loader",
				Name:      "modules_total",
				Help:      "Module load attempts by result.",
			},
			[]string{"result"},
		),
		phaseDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bootstrap",
				Name:      "phase_duration_seconds",
				Help:      "Wall-clock duration of the last run of each bootstrap phase.",
			},
			[]string{"phase"},
		),
		stageFires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "stage_fires_total",
				Help:      "Lifecycle stages fired.",
			},
			[]string{"stage"},
		),
	}
	r.registry.MustRegister(
		r.downloads, r.downloadedBytes, r.cacheHits, r.integrityFailures,
		r.relocations, r.moduleLoads, r.phaseDuration, r.stageFires,
	)
	return r
}

// Registry returns the underlying registry, or nil for a nil Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Download records one downloaded file of the given kind ("artifact" or "sidecar").
func (r *Recorder) Download(kind string, n int64) {
	if r == nil {
		return
	}
	r.downloads.WithLabelValues(kind).Inc()
	r.downloadedBytes.Add(float64(n))
}

// CacheHit records an Ensure call that skipped the network.
func (r *Recorder) CacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

// IntegrityFailure records a post-download checksum mismatch.
func (r *Recorder) IntegrityFailure() {
	if r == nil {
		return
	}
	r.integrityFailures.Inc()
}

// Relocation records one relocation request.
func (r *Recorder) Relocation(rewritten bool) {
	if r == nil {
		return
	}
	r.relocations.WithLabelValues(strconv.FormatBool(rewritten)).Inc()
}

// ModuleLoad records a module load with one of the Result* labels.
func (r *Recorder) ModuleLoad(result string) {
	if r == nil {
		return
	}
	r.moduleLoads.WithLabelValues(result).Inc()
}

// Phase records the duration of a bootstrap phase.
func (r *Recorder) Phase(name string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.WithLabelValues(name).Set(d.Seconds())
}

// StageFired records a fired lifecycle stage.
func (r *Recorder) StageFired(stage string) {
	if r == nil {
		return
	}
	r.stageFires.WithLabelValues(stage).Inc()
}

// WriteToTextfile writes every collected metric to path in the text
// exposition format used by the node_exporter textfile collector.
func (r *Recorder) WriteToTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
