package engine

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/go-air/tbdd/apply"
	"github.com/go-air/tbdd/internal/metrics"
	"github.com/go-air/tbdd/opcache"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
	"github.com/go-air/tbdd/tbdd"
)

// TBDD re-exports tbdd.TBDD so callers need only import engine.
type TBDD = tbdd.TBDD

// ID re-exports store.ID.
type ID = store.ID

// Engine is the single object a front-end drives: it owns the node
// store, operation cache and proof writer created by Init, and exposes
// C5/C6's operations directly, so the front-end never touches the
// lower-level packages itself.
type Engine struct {
	s   *store.Store
	c   *opcache.Cache
	pf  *proof.Writer // nil in no-proof mode
	ap  *apply.Applier
	mgr *tbdd.Manager

	log *logrus.Entry
	reg prometheus.Registerer

	prevHits, prevMisses     int64
	prevEmitted, prevDeleted int
}

// Option configures optional, non-spec-mandated Engine behavior:
// logging and metrics registration.
type Option func(*engineOptions)

type engineOptions struct {
	log *logrus.Entry
	reg prometheus.Registerer
}

// WithLogger attaches a logger used for the store's GC/resize
// diagnostics (logged at Debug level); it is also handed to the proof
// writer, which writes no log records of its own. Defaults to a new
// logrus logger at its default Info level.
func WithLogger(log *logrus.Entry) Option {
	return func(o *engineOptions) { o.log = log }
}

// WithMetricsRegisterer registers internal/metrics' collectors with reg
// instead of leaving the Engine unobserved. Pass prometheus.
// DefaultRegisterer for a process-wide Engine, or a private
// prometheus.NewRegistry() in tests constructing more than one.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) { o.reg = reg }
}

// Init builds an Engine, taking the same arguments as buddy's own
// setup routine: proofOut receives the clausal proof (nil for no-proof
// mode); varCounter and clauseCounter are shared with the caller, who
// reads them back to learn how many extension variables/clauses the
// core allocated; inputClauses numbers clauses from 1; varOrder maps
// level -> DIMACS variable (nil for the identity mapping level+1);
// proofType/binary select the output format.
func Init(
	proofOut io.Writer,
	varCounter, clauseCounter *int,
	inputClauses [][]int,
	varOrder []int,
	proofType ProofType,
	binary bool,
	cfg Config,
	opts ...Option,
) (*Engine, error) {
	cfg = cfg.withDefaults()
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logrus.NewEntry(logrus.New())
	}

	var pf *proof.Writer
	if proofOut != nil {
		var err error
		pfOpts := []proof.Option{proof.WithLogger(o.log)}
		if varOrder != nil {
			pfOpts = append(pfOpts, proof.WithVarOrder(varOrder))
		}
		pf, err = proof.New(proofOut, varCounter, clauseCounter, inputClauses, proofType, binary, pfOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "engine: constructing proof writer")
		}
	}

	c := opcache.New(cfg.CacheSize)

	storeOpts := []store.Option{
		store.WithMaxNodes(cfg.MaxNodes),
		store.WithGrowthFactor(cfg.GrowthFactor),
		store.WithGCThreshold(cfg.GCThreshold),
		store.WithLogger(o.log),
		store.WithLiveCacheIDs(c.LiveIDs),
	}
	if pf != nil {
		storeOpts = append(storeOpts, store.WithProofSink(pf))
	}

	e := &Engine{log: o.log, reg: o.reg}
	if o.reg != nil {
		if err := metrics.Register(o.reg); err != nil {
			return nil, errors.Wrap(err, "engine: registering metrics")
		}
		storeOpts = append(storeOpts, store.WithMetricsHooks(
			nil, // NodesLive is sampled as a gauge in sampleMetrics, not incremented per-alloc
			func(int) { metrics.GCRunsTotal.Inc() },
			nil,
		))
	}

	s := store.New(cfg.MaxNodes/4+2, storeOpts...)
	c.SetEvictHandler(func(id int) {
		if pf != nil {
			pf.DeferDeleteClauses(id)
		}
	})

	e.s = s
	e.c = c
	e.pf = pf
	e.ap = apply.New(s, c, pf)
	e.mgr = tbdd.NewManager(s, e.ap, pf)
	return e, nil
}

// sampleMetrics pushes the cumulative cache/proof counters the engine
// can only read after the fact into the Prometheus collectors, since
// those are plain counters the owning packages never push themselves.
func (e *Engine) sampleMetrics() {
	if e.reg == nil {
		return
	}
	hits, misses := e.c.Stats()
	metrics.SampleCacheDelta(hits, misses, e.prevHits, e.prevMisses)
	e.prevHits, e.prevMisses = hits, misses
	metrics.NodesLive.Set(float64(e.s.Live()))
	if e.pf != nil {
		if emitted := e.pf.EmittedCount(); emitted > e.prevEmitted {
			metrics.ClausesEmittedTotal.Add(float64(emitted - e.prevEmitted))
			e.prevEmitted = emitted
		}
		if deleted := e.pf.DeletedCount(); deleted > e.prevDeleted {
			metrics.ClausesDeletedTotal.Add(float64(deleted - e.prevDeleted))
			e.prevDeleted = deleted
		}
	}
}

// --- C5: justified apply, delegated directly (no proof bookkeeping of
// its own beyond what apply.Applier already performs). ---

// And conjoins two BDD roots, proof-justified.
func (e *Engine) And(l, r ID) (apply.Result, error) {
	defer e.sampleMetrics()
	return e.ap.And(l, r)
}

// ImpTest proves or refutes l --> r.
func (e *Engine) ImpTest(l, r ID) (apply.Result, error) {
	defer e.sampleMetrics()
	return e.ap.ImpTest(l, r)
}

// AndImpTest proves or refutes l & r --> target.
func (e *Engine) AndImpTest(l, r, target ID) (apply.Result, error) {
	defer e.sampleMetrics()
	return e.ap.AndImpTest(l, r, target)
}

// ExistQuant existentially quantifies level out of f. Not proof-backed:
// see apply.ExistQuant's doc comment.
func (e *Engine) ExistQuant(f ID, level int32) (ID, error) {
	defer e.sampleMetrics()
	return e.ap.ExistQuant(f, level)
}

// --- C6: TBDD layer, delegated to the Manager built at Init. ---

func (e *Engine) Tautology() TBDD               { return e.mgr.Tautology() }
func (e *Engine) Null() TBDD                    { return e.mgr.Null() }
func (e *Engine) AddRef(tr TBDD) TBDD           { return e.mgr.AddRef(tr) }
func (e *Engine) DelRef(tr TBDD)                { e.mgr.DelRef(tr) }
func (e *Engine) IsTrue(tr TBDD) bool           { return e.mgr.IsTrue(tr) }
func (e *Engine) IsFalse(tr TBDD) bool          { return e.mgr.IsFalse(tr) }

func (e *Engine) FromClauseID(id int) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.FromClauseID(id)
}

func (e *Engine) FromClause(lits []int) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.FromClause(lits)
}

func (e *Engine) TAnd(t1, t2 TBDD) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.And(t1, t2)
}

func (e *Engine) Validate(r ID, tr TBDD) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.Validate(r, tr)
}

func (e *Engine) ValidateWithAnd(r ID, tl, tr TBDD) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.ValidateWithAnd(r, tl, tr)
}

func (e *Engine) Trust(r ID) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.Trust(r)
}

func (e *Engine) FromXor(vars []int, phase int) (TBDD, error) {
	defer e.sampleMetrics()
	return e.mgr.FromXor(vars, phase)
}

func (e *Engine) ValidateClause(lits []int, tr TBDD) (int, error) {
	defer e.sampleMetrics()
	return e.mgr.ValidateClause(lits, tr)
}

func (e *Engine) AssertClause(lits []int) (int, error) {
	defer e.sampleMetrics()
	return e.mgr.AssertClause(lits)
}

// --- Resource management ---

// GC runs a mark-sweep collection pass over the node store immediately,
// rather than waiting for the store's own load-factor trigger.
func (e *Engine) GC() int {
	freed := e.s.GC()
	e.sampleMetrics()
	return freed
}

// Manager exposes the underlying tbdd.Manager for callers (such as
// xorset) that need the lower-level C6 API directly.
func (e *Engine) Manager() *tbdd.Manager { return e.mgr }

// Store exposes the underlying node store for callers that need direct
// C2 access (e.g. xorset's BDD construction helpers).
func (e *Engine) Store() *store.Store { return e.s }

// Finish flushes the proof output stream, finalizing FRAT bookkeeping if
// applicable. A no-op in no-proof mode.
func (e *Engine) Finish() error {
	if e.pf == nil {
		return nil
	}
	return errors.Wrap(e.pf.Finish(), "engine: finishing proof")
}
