// Package metrics defines the engine's Prometheus instrumentation:
// a small set of collectors bolted onto counters the node store, the
// operation cache and the proof writer already maintain, exposed as
// package-level prometheus.Collector vars plus a Register function the
// caller invokes once.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// NodesLive tracks the number of allocated BDD nodes in the node
	// store (store.Live), sampled after each Engine operation.
	NodesLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tbdd_nodes_live",
		Help: "Number of BDD nodes currently live in the node store.",
	})

	// GCRunsTotal counts mark-sweep collection passes the node store has
	// performed.
	GCRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tbdd_gc_runs_total",
		Help: "Total number of garbage collection passes run over the node store.",
	})

	// CacheHitTotal and CacheMissTotal track the operation cache's
	// Lookup outcomes.
	CacheHitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tbdd_cache_hit_total",
		Help: "Total number of operation cache lookups that hit.",
	})
	CacheMissTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tbdd_cache_miss_total",
		Help: "Total number of operation cache lookups that missed.",
	})

	// ClausesEmittedTotal and ClausesDeletedTotal mirror the proof
	// writer's shared clause counter and its cumulative deletion count.
	ClausesEmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tbdd_clauses_emitted_total",
		Help: "Total number of clauses asserted into the proof, input clauses included.",
	})
	ClausesDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tbdd_clauses_deleted_total",
		Help: "Total number of clauses the proof writer has emitted deletion records for.",
	})
)

// Register registers every collector defined here with reg. Callers
// typically pass prometheus.DefaultRegisterer, or a private Registry in
// tests that construct more than one Engine.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		NodesLive,
		GCRunsTotal,
		CacheHitTotal,
		CacheMissTotal,
		ClausesEmittedTotal,
		ClausesDeletedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if !asAlreadyRegistered(err, &are) {
				return err
			}
		}
	}
	return nil
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return false
	}
	*target = are
	return true
}

// SampleCacheDelta advances CacheHitTotal/CacheMissTotal by the
// difference between (hits, misses) and the last-sampled totals
// (prevHits, prevMisses). The counters opcache.Cache itself exposes are
// cumulative-since-reset, not deltas, so the caller diffs them itself
// before adding to a prometheus.Counter (which only supports Add/Inc).
func SampleCacheDelta(hits, misses, prevHits, prevMisses int64) {
	if d := hits - prevHits; d > 0 {
		CacheHitTotal.Add(float64(d))
	}
	if d := misses - prevMisses; d > 0 {
		CacheMissTotal.Add(float64(d))
	}
}
