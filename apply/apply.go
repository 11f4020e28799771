// Package apply implements C5: the proof-justified recursive apply and
// existential quantify operations. Grounded on
// original_source/buddy/src/prover.c's justify_apply and the
// pcbdd-returning entry points declared in kernel.h
// (bdd_and_justify/bdd_imptst_justify/bdd_and_imptst_justify), whose
// bodies live in buddy's bddop.c, which is not present in the reference
// pack, so the recursive cofactor-split shell around justify_apply is an
// adaptation of the standard ROBDD apply algorithm rather than a
// line-for-line port; the proof-hint
// assembly and RUP check in hints.go are a direct port.
package apply

import (
	"github.com/pkg/errors"

	"github.com/go-air/tbdd/opcache"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
)

// ErrProofFailed reports that neither the single-step nor the
// split-proof RUP check could justify a synthesized node; this
// corresponds to bdd_error(TBDD_PROOF) in the original, which aborted
// the process.
var ErrProofFailed = errors.New("apply: could not justify synthesized node")

// Result pairs a BDD root with the ID of the clause asserting it,
// mirroring buddy's pcbdd. ClauseID is proof.Tautology when no clause
// was needed (terminal short-circuits, or no-proof mode).
type Result struct {
	Root     store.ID
	ClauseID int
}

// Applier performs justified apply/quantify over a shared node store,
// operation cache, and (optionally) proof writer. A nil proof writer
// puts the Applier in no-proof mode: every Result.ClauseID is
// proof.Tautology and no clauses are emitted.
type Applier struct {
	s     *store.Store
	cache *opcache.Cache
	pf    *proof.Writer
}

// New returns an Applier. pf may be nil for no-proof mode.
func New(s *store.Store, cache *opcache.Cache, pf *proof.Writer) *Applier {
	return &Applier{s: s, cache: cache, pf: pf}
}

func (a *Applier) litOf(id store.ID) int {
	switch id {
	case store.True:
		return a.pf.TrueVar()
	case store.False:
		return -a.pf.TrueVar()
	default:
		return a.s.XVar(id)
	}
}

func splitLevel(s *store.Store, a, b store.ID) int32 {
	la, lb := s.Level(a), s.Level(b)
	if la < lb {
		return la
	}
	return lb
}

func cofactor(s *store.Store, id store.ID, level int32) (lo, hi store.ID) {
	if s.Level(id) == level {
		return s.Low(id), s.High(id)
	}
	return id, id
}

// topLevel brackets a public entry point: it marks the GC save stack,
// runs f, refs the result so it survives the unwind, and flushes any
// clause deletions the store deferred while f ran (mirroring
// process_deferred_deletions being called after every top-level
// tbdd_and/tbdd_validate in tbdd.c).
func (a *Applier) topLevel(f func() (Result, error)) (Result, error) {
	mark := a.s.Mark()
	res, err := f()
	if err != nil {
		a.s.Unwind(mark)
		return Result{}, err
	}
	a.s.AddRef(res.Root)
	a.s.Unwind(mark)
	if a.pf != nil {
		if derr := a.pf.ProcessDeferred(); derr != nil {
			return Result{}, errors.Wrap(derr, "apply: flushing deferred deletions")
		}
	}
	return res, nil
}

// And computes l & r, returning the result node and (in proof mode) the
// clause ID asserting xvar(result) given xvar(l) and xvar(r).
func (a *Applier) And(l, r store.ID) (Result, error) {
	return a.topLevel(func() (Result, error) { return a.andRec(l, r) })
}

func (a *Applier) andRec(l, r store.ID) (Result, error) {
	switch {
	case l == store.False || r == store.False:
		return Result{store.False, proof.Tautology}, nil
	case l == store.True:
		return Result{r, proof.Tautology}, nil
	case r == store.True:
		return Result{l, proof.Tautology}, nil
	case l == r:
		return Result{l, proof.Tautology}, nil
	}
	if e, ok := a.cache.Lookup(l, r, -1, opcache.OpAnd); ok {
		return Result{e.Result, e.ClauseID}, nil
	}

	level := splitLevel(a.s, l, r)
	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)

	resl, err := a.andRec(ll, rl)
	if err != nil {
		return Result{}, err
	}
	a.s.PushSave(resl.Root)
	resh, err := a.andRec(lh, rh)
	if err != nil {
		return Result{}, err
	}
	a.s.PushSave(resh.Root)

	var res store.ID
	if resl.Root == resh.Root {
		res = resl.Root
	} else {
		res, err = a.s.MakeNode(level, resl.Root, resh.Root)
		if err != nil {
			return Result{}, errors.Wrap(err, "apply: and")
		}
	}
	a.s.PushSave(res)

	clauseID := proof.Tautology
	if a.pf != nil {
		clauseID, err = a.justifyAnd(l, r, level, resl, resh, res)
		if err != nil {
			return Result{}, err
		}
	}
	a.cache.Insert(l, r, -1, opcache.OpAnd, res, clauseID)
	return Result{res, clauseID}, nil
}

// ImpTest tests whether l implies r, i.e. whether ¬l ∨ r is valid.
// Result.Root is store.True iff the implication holds; the clause
// chain it returns relates the operands' own extension variables
// directly rather than naming a fresh "implication" variable (see
// justifyImpTest).
func (a *Applier) ImpTest(l, r store.ID) (Result, error) {
	return a.topLevel(func() (Result, error) { return a.impTestRec(l, r) })
}

func (a *Applier) impTestRec(l, r store.ID) (Result, error) {
	switch {
	case l == store.False || r == store.True || l == r:
		return Result{store.True, proof.Tautology}, nil
	case l == store.True:
		return Result{r, proof.Tautology}, nil
	}
	if e, ok := a.cache.Lookup(l, r, -1, opcache.OpImpTest); ok {
		return Result{e.Result, e.ClauseID}, nil
	}

	level := splitLevel(a.s, l, r)
	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)

	resl, err := a.impTestRec(ll, rl)
	if err != nil {
		return Result{}, err
	}
	a.s.PushSave(resl.Root)
	resh, err := a.impTestRec(lh, rh)
	if err != nil {
		return Result{}, err
	}
	a.s.PushSave(resh.Root)

	var res store.ID
	if resl.Root == resh.Root {
		res = resl.Root
	} else {
		res, err = a.s.MakeNode(level, resl.Root, resh.Root)
		if err != nil {
			return Result{}, errors.Wrap(err, "apply: imptest")
		}
	}
	a.s.PushSave(res)

	clauseID := proof.Tautology
	if a.pf != nil {
		clauseID, err = a.justifyImpTest(l, r, level, resl, resh)
		if err != nil {
			return Result{}, err
		}
	}
	a.cache.Insert(l, r, -1, opcache.OpImpTest, res, clauseID)
	return Result{res, clauseID}, nil
}

// AndImpTest tests whether l & r implies target, justified against
// target's existing extension variable rather than synthesizing a
// fresh conjunction node, the recursive generalization of
// tbdd_validate_with_and's bdd_and_imptst_justify call.
func (a *Applier) AndImpTest(l, r, target store.ID) (Result, error) {
	return a.topLevel(func() (Result, error) { return a.andImpTestRec(l, r, target) })
}

func (a *Applier) andImpTestRec(l, r, target store.ID) (Result, error) {
	switch {
	case l == store.False || r == store.False:
		return Result{store.True, proof.Tautology}, nil
	case target == store.True:
		return Result{store.True, proof.Tautology}, nil
	case l == store.True:
		return a.impTestRec(r, target)
	case r == store.True:
		return a.impTestRec(l, target)
	}
	if e, ok := a.cache.Lookup(l, r, target, opcache.OpAndImpTest); ok {
		return Result{e.Result, e.ClauseID}, nil
	}

	level := splitLevel(a.s, l, r)
	if tl := a.s.Level(target); tl < level {
		level = tl
	}
	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)
	tl, th := cofactor(a.s, target, level)

	resl, err := a.andImpTestRec(ll, rl, tl)
	if err != nil {
		return Result{}, err
	}
	a.s.PushSave(resl.Root)
	resh, err := a.andImpTestRec(lh, rh, th)
	if err != nil {
		return Result{}, err
	}
	a.s.PushSave(resh.Root)

	var res store.ID
	if resl.Root == resh.Root {
		res = resl.Root
	} else {
		res, err = a.s.MakeNode(level, resl.Root, resh.Root)
		if err != nil {
			return Result{}, errors.Wrap(err, "apply: and_imptest")
		}
	}
	a.s.PushSave(res)

	clauseID := proof.Tautology
	if a.pf != nil {
		clauseID, err = a.justifyAndImpTest(l, r, target, level, resl, resh)
		if err != nil {
			return Result{}, err
		}
	}
	a.cache.Insert(l, r, target, opcache.OpAndImpTest, res, clauseID)
	return Result{res, clauseID}, nil
}

// ExistQuant existentially quantifies f over the variable at level:
// result = restrict(f,level,0) ∨ restrict(f,level,1). It is not a
// justified-apply primitive: buddy's bdd_exist has no RUP-justified
// counterpart in prover.c, so it never emits or consumes clauses, and
// its result is a bare BDD with no justification.
func (a *Applier) ExistQuant(f store.ID, level int32) (store.ID, error) {
	mark := a.s.Mark()
	lo, err := a.restrict(f, level, 0)
	if err != nil {
		a.s.Unwind(mark)
		return 0, err
	}
	a.s.PushSave(lo)
	hi, err := a.restrict(f, level, 1)
	if err != nil {
		a.s.Unwind(mark)
		return 0, err
	}
	a.s.PushSave(hi)
	res, err := a.orRec(lo, hi)
	if err != nil {
		a.s.Unwind(mark)
		return 0, err
	}
	a.s.AddRef(res)
	a.s.Unwind(mark)
	return res, nil
}

// restrict sets the variable at level to branch (0 or 1) throughout f.
func (a *Applier) restrict(f store.ID, level int32, branch int) (store.ID, error) {
	if f == store.True || f == store.False {
		return f, nil
	}
	fl := a.s.Level(f)
	if fl > level {
		return f, nil
	}
	if fl == level {
		if branch == 0 {
			return a.s.Low(f), nil
		}
		return a.s.High(f), nil
	}
	lo, err := a.restrict(a.s.Low(f), level, branch)
	if err != nil {
		return 0, err
	}
	a.s.PushSave(lo)
	hi, err := a.restrict(a.s.High(f), level, branch)
	if err != nil {
		return 0, err
	}
	a.s.PushSave(hi)
	if lo == hi {
		return lo, nil
	}
	res, err := a.s.MakeNode(fl, lo, hi)
	if err != nil {
		return 0, errors.Wrap(err, "apply: restrict")
	}
	a.s.PushSave(res)
	return res, nil
}

// orRec computes the disjunction of two BDDs. Existential quantify's OR
// step needs no proof of its own (see ExistQuant's doc comment), so
// this is a plain memoized apply with no proof-sink interaction.
func (a *Applier) orRec(l, r store.ID) (store.ID, error) {
	switch {
	case l == store.True || r == store.True:
		return store.True, nil
	case l == store.False:
		return r, nil
	case r == store.False:
		return l, nil
	case l == r:
		return l, nil
	}
	if e, ok := a.cache.Lookup(l, r, -1, opcache.OpExistQuant); ok {
		return e.Result, nil
	}

	level := splitLevel(a.s, l, r)
	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)

	resl, err := a.orRec(ll, rl)
	if err != nil {
		return 0, err
	}
	a.s.PushSave(resl)
	resh, err := a.orRec(lh, rh)
	if err != nil {
		return 0, err
	}
	a.s.PushSave(resh)

	var res store.ID
	if resl == resh {
		res = resl
	} else {
		res, err = a.s.MakeNode(level, resl, resh)
		if err != nil {
			return 0, errors.Wrap(err, "apply: or")
		}
	}
	a.s.PushSave(res)
	a.cache.Insert(l, r, -1, opcache.OpExistQuant, res, proof.Tautology)
	return res, nil
}
