// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"encoding/json"
	"time"

	"github.com/pelletier/go-toml/v2"

	"modboot/internal/loader"
)

// Phase names used in reports, logs and metrics.
const (
	PhaseBase = "base"
	PhaseFull = "full"
)

type (
	// Report summarizes a boot.
	Report struct {
		BasePhase time.Duration `json:"-" toml:"-"`
		FullPhase time.Duration `json:"-" toml:"-"`
		// BaseMillis and FullMillis are the phase timings in milliseconds.
		BaseMillis int64 `json:"base_ms" toml:"base_ms"`
		FullMillis int64 `json:"full_ms" toml:"full_ms"`
		// FullSkipped is set when the project version disabled the full phase.
		FullSkipped bool           `json:"full_skipped" toml:"full_skipped"`
		Modules     []ModuleRecord `json:"modules" toml:"modules"`
	}

	// ModuleRecord is the outcome of one module load.
	ModuleRecord struct {
		Phase      string   `json:"phase" toml:"phase"`
		Module     string   `json:"module" toml:"module"`
		Isolated   bool     `json:"isolated" toml:"isolated"`
		External   bool     `json:"external" toml:"external"`
		Optional   bool     `json:"optional,omitempty" toml:"optional,omitempty"`
		Relocated  bool     `json:"relocated" toml:"relocated"`
		Loaded     bool     `json:"loaded" toml:"loaded"`
		Skipped    bool     `json:"skipped,omitempty" toml:"skipped,omitempty"`
		Downloaded bool     `json:"downloaded" toml:"downloaded"`
		Path       string   `json:"path,omitempty" toml:"path,omitempty"`
		Invoked    []string `json:"invoked,omitempty" toml:"invoked,omitempty"`
		Error      string   `json:"error,omitempty" toml:"error,omitempty"`
	}
)

func (r *Report) record(phase string, res loader.Result, err error) {
	rec := ModuleRecord{
		Phase:      phase,
		Module:     res.Module.Coordinate.Key(),
		Isolated:   res.Module.Isolated,
		External:   res.Module.External,
		Optional:   res.Module.Optional,
		Relocated:  len(res.Module.Rules) > 0,
		Loaded:     res.Loaded,
		Skipped:    res.Skipped,
		Downloaded: res.Downloaded,
		Path:       res.Path,
		Invoked:    res.Invoked,
	}
	switch {
	case err != nil:
		rec.Error = err.Error()
	case res.Err != nil:
		rec.Error = res.Err.Error()
	}
	r.Modules = append(r.Modules, rec)
}

func (r *Report) setPhase(phase string, d time.Duration) {
	switch phase {
	case PhaseBase:
		r.BasePhase, r.BaseMillis = d, d.Milliseconds()
	case PhaseFull:
		r.FullPhase, r.FullMillis = d, d.Milliseconds()
	}
}

// Loaded returns the number of modules that loaded.
func (r *Report) Loaded() int {
	n := 0
	for _, m := range r.Modules {
		if m.Loaded {
			n++
		}
	}
	return n
}

// TOML encodes the report as TOML.
func (r *Report) TOML() ([]byte, error) {
	return toml.Marshal(r)
}

// JSON encodes the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
