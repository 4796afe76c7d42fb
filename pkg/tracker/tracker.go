package tracker

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Tracker tracks usage statistics per operation (extract, clip, download, ...).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*OperationStats

	calls    *prometheus.CounterVec
	features *prometheus.CounterVec
	cache    *prometheus.CounterVec
}

// OperationStats holds metrics for a specific operation.
// Fields are accessed atomically.
type OperationStats struct {
	Success     int64
	Failures    int64
	Features    int64
	Skipped     int64
	Bytes       int64
	CacheHits   int64
	CacheMisses int64
}

// New creates a new Tracker. When reg is non-nil the counters are also
// exported through it.
func New(reg prometheus.Registerer) *Tracker {
	t := &Tracker{
		stats: make(map[string]*OperationStats),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmflex_operations_total",
				Help: "Completed operations by name and result.",
			},
			[]string{"op", "result"},
		),
		features: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmflex_features_total",
				Help: "Features produced or skipped per operation.",
			},
			[]string{"op", "outcome"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmflex_cache_lookups_total",
				Help: "HTTP response cache lookups by provider and result.",
			},
			[]string{"op", "result"},
		),
	}
	if reg != nil {
		reg.MustRegister(t.calls, t.features, t.cache)
	}
	return t
}

// getStats returns the stats object for an operation, creating it if needed.
func (t *Tracker) getStats(op string) *OperationStats {
	t.mu.RLock()
	s, ok := t.stats[op]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[op]; ok {
		return s
	}
	s = &OperationStats{}
	t.stats[op] = s
	return s
}

// TrackSuccess increments the success counter.
func (t *Tracker) TrackSuccess(op string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(op).Success, 1)
	t.calls.WithLabelValues(op, "success").Inc()
}

func (t *Tracker) TrackFailure(op string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(op).Failures, 1)
	t.calls.WithLabelValues(op, "failure").Inc()
}

func (t *Tracker) TrackFeatures(op string, n int) {
	if t == nil || n <= 0 {
		return
	}
	atomic.AddInt64(&t.getStats(op).Features, int64(n))
	t.features.WithLabelValues(op, "kept").Add(float64(n))
}

func (t *Tracker) TrackSkipped(op string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(op).Skipped, 1)
	t.features.WithLabelValues(op, "skipped").Inc()
}

func (t *Tracker) TrackBytes(op string, n int64) {
	if t == nil || n <= 0 {
		return
	}
	atomic.AddInt64(&t.getStats(op).Bytes, n)
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(op string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(op).CacheHits, 1)
	t.cache.WithLabelValues(op, "hit").Inc()
}

func (t *Tracker) TrackCacheMiss(op string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(op).CacheMisses, 1)
	t.cache.WithLabelValues(op, "miss").Inc()
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]OperationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]OperationStats)
	for k, v := range t.stats {
		result[k] = OperationStats{
			Success:  atomic.LoadInt64(&v.Success),
			Failures: atomic.LoadInt64(&v.Failures),
			Features: atomic.LoadInt64(&v.Features),
			Skipped:  atomic.LoadInt64(&v.Skipped),
			Bytes:    atomic.LoadInt64(&v.Bytes),

			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
		}
	}
	return result
}

// WriteTextfile writes every metric gathered by reg to path in the Prometheus
// text exposition format.
func WriteTextfile(reg *prometheus.Registry, path string) error {
	return prometheus.WriteToTextfile(path, reg)
}
