package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTracker(t *testing.T) {
	tr := New(nil)
	op := "extract"

	// Test Initial State
	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	// Test Tracking
	tr.TrackSuccess(op)
	tr.TrackFailure(op)
	tr.TrackFeatures(op, 7)
	tr.TrackSkipped(op)
	tr.TrackBytes(op, 1024)
	tr.TrackCacheHit(op)
	tr.TrackCacheMiss(op)
	tr.TrackCacheMiss(op)

	// Verify Snapshot
	stats = tr.Snapshot()
	s, ok := stats[op]
	if !ok {
		t.Fatalf("Expected stats for operation %s", op)
	}

	if s.Success != 1 {
		t.Errorf("Expected 1 Success, got %d", s.Success)
	}
	if s.Failures != 1 {
		t.Errorf("Expected 1 Failure, got %d", s.Failures)
	}
	if s.Features != 7 {
		t.Errorf("Expected 7 Features, got %d", s.Features)
	}
	if s.Skipped != 1 {
		t.Errorf("Expected 1 Skipped, got %d", s.Skipped)
	}
	if s.Bytes != 1024 {
		t.Errorf("Expected 1024 Bytes, got %d", s.Bytes)
	}
	if s.CacheHits != 1 || s.CacheMisses != 2 {
		t.Errorf("Expected 1 hit / 2 misses, got %d / %d", s.CacheHits, s.CacheMisses)
	}
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	// Must not panic.
	tr.TrackSuccess("x")
	tr.TrackFailure("x")
	tr.TrackFeatures("x", 1)
	tr.TrackSkipped("x")
	tr.TrackBytes("x", 1)
	tr.TrackCacheHit("x")
	tr.TrackCacheMiss("x")
}

func TestPrometheusExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := New(reg)

	tr.TrackSuccess("clip")
	tr.TrackSuccess("clip")
	tr.TrackFeatures("extract", 3)

	if got := testutil.ToFloat64(tr.calls.WithLabelValues("clip", "success")); got != 2 {
		t.Errorf("clip success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(tr.features.WithLabelValues("extract", "kept")); got != 3 {
		t.Errorf("extract kept = %v, want 3", got)
	}

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := WriteTextfile(reg, path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `osmflex_operations_total{op="clip",result="success"} 2`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}
