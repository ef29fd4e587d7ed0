// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	t.Parallel()

	r := New()
	r.Download("artifact", 100)
	r.Download("sidecar", 41)
	r.CacheHit()
	r.CacheHit()
	r.IntegrityFailure()
	r.Relocation(true)
	r.Relocation(false)
	r.Relocation(false)
	r.ModuleLoad(ResultLoaded)
	r.StageFired("enable")

	if got := testutil.ToFloat64(r.downloads.WithLabelValues("artifact")); got != 1 {
		t.Errorf("artifact downloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.downloadedBytes); got != 141 {
		t.Errorf("downloaded bytes = %v, want 141", got)
	}
	if got := testutil.ToFloat64(r.cacheHits); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.relocations.WithLabelValues("false")); got != 2 {
		t.Errorf("cached relocations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.moduleLoads.WithLabelValues(ResultLoaded)); got != 1 {
		t.Errorf("loaded modules = %v, want 1", got)
	}
}

func TestRecorderPhase(t *testing.T) {
	t.Parallel()

	r := New()
	r.Phase("base", 1500*time.Millisecond)
	if got := testutil.ToFloat64(r.phaseDuration.WithLabelValues("base")); got != 1.5 {
		t.Errorf("base phase = %v, want 1.5", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.Download("artifact", 1)
	r.CacheHit()
	r.IntegrityFailure()
	r.Relocation(true)
	r.ModuleLoad(ResultFailed)
	r.Phase("full", time.Second)
	r.StageFired("load")
	if r.Registry() != nil {
		t.Error("nil recorder returned a registry")
	}
	if err := r.WriteToTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteToTextfile() on nil recorder: %v", err)
	}
}

func TestWriteToTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.CacheHit()
	path := filepath.Join(t.TempDir(), "modboot.prom")
	if err := r.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "modboot_transfer_cache_hits_total 1") {
		t.Errorf("textfile missing cache hit counter:\n%s", data)
	}
}
