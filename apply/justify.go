package apply

import (
	"github.com/pkg/errors"

	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
)

// The four defining-clause shapes, reconstructed from a node's own
// xvar n, its split variable v, and its already-resolved child
// literals, matching the order proof.Writer.DefiningClauses emits
// them in (HU, LU, HD, LD), so dclause+0..3 index them directly.
func clauseHU(n, v, hLit, lLit int) []int { return []int{n, -v, -hLit} }
func clauseLU(n, v, hLit, lLit int) []int { return []int{n, v, -lLit} }
func clauseHD(n, v, hLit, lLit int) []int { return []int{-n, -v, hLit} }
func clauseLD(n, v, hLit, lLit int) []int { return []int{-n, v, lLit} }

func (h *hintSet) resetUsed() {
	for i := range h.used {
		h.used[i] = false
	}
}

// complete cleans every populated hint clause, demoting one to
// tautology (dropping it from consideration) if cleaning finds it
// trivially true, mirroring prover.c's complete_hints.
func (h *hintSet) complete() {
	for k := hintResHU; k <= hintOPL; k++ {
		if h.id[k] == tautologyID {
			continue
		}
		cleaned, taut, err := proof.Clean(h.clause[k])
		if err != nil || taut {
			h.id[k] = tautologyID
			continue
		}
		h.clause[k] = cleaned
	}
}

func (a *Applier) addClauseUsed(lits []int, h *hintSet, order []hintKind, limit int) (int, error) {
	var hints []int
	for i := 0; i < limit; i++ {
		k := order[i]
		if h.used[k] {
			hints = append(hints, h.id[k])
		}
	}
	id, err := a.pf.AddClause(lits, hints)
	if err != nil {
		return 0, errors.Wrap(err, "apply: emitting justified clause")
	}
	return id, nil
}

// finishJustify runs the single-step-then-split-proof strategy common
// to every justified apply call, once targ (the clause to derive) and
// h (the candidate hint set) are assembled. v is the DIMACS variable
// of the split level, needed to build the intermediate clause's extra
// literal in the split-proof path.
func (a *Applier) finishJustify(v int, targ []int, h *hintSet) (int, error) {
	if h.id[hintOPH] == tautologyID {
		h.resetUsed()
		if rupCheck(targ, orderHL, hintCount, h) {
			return a.addClauseUsed(targ, h, orderHL, hintCount)
		}
	}
	if h.id[hintOPL] == tautologyID {
		h.resetUsed()
		if rupCheck(targ, orderLH, hintCount, h) {
			return a.addClauseUsed(targ, h, orderLH, hintCount)
		}
	}

	// Neither ordering alone derives a conflict; split the proof around
	// the split variable (prover.c's two-step fallback).
	h.resetUsed()
	itarg := make([]int, 0, len(targ)+1)
	itarg = append(itarg, -v)
	itarg = append(itarg, targ...)
	itarg, itaut, err := proof.Clean(itarg)
	if err != nil {
		return 0, errors.Wrap(err, "apply: split target clause")
	}
	if itaut {
		return tautologyID, nil
	}
	if !rupCheck(itarg, orderH, hintCount/2, h) {
		return 0, errors.Wrap(ErrProofFailed, "first half of split proof")
	}
	iid, err := a.addClauseUsed(itarg, h, orderH, hintCount/2)
	if err != nil {
		return 0, err
	}
	h.set(hintExtra, iid, itarg)
	h.resetUsed()
	if !rupCheck(targ, orderL, hintCount/2+1, h) {
		return 0, errors.Wrap(ErrProofFailed, "second half of split proof")
	}
	return a.addClauseUsed(targ, h, orderL, hintCount/2+1)
}

func (a *Applier) justifyAnd(l, r store.ID, level int32, resl, resh Result, res store.ID) (int, error) {
	targ := []int{-a.litOf(l), -a.litOf(r), a.litOf(res)}
	cleaned, taut, err := proof.Clean(targ)
	if err != nil {
		return 0, errors.Wrap(err, "apply: and target clause")
	}
	if taut {
		return tautologyID, nil
	}

	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)

	h := newHintSet()
	v := a.pf.VarOf(level)
	if a.s.Level(l) == level {
		n, d := a.s.XVar(l), a.s.DClause(l)
		hLit, lLit := a.litOf(a.s.High(l)), a.litOf(a.s.Low(l))
		h.set(hintArg1HD, d+2, clauseHD(n, v, hLit, lLit))
		h.set(hintArg1LD, d+3, clauseLD(n, v, hLit, lLit))
	}
	if a.s.Level(r) == level {
		n, d := a.s.XVar(r), a.s.DClause(r)
		hLit, lLit := a.litOf(a.s.High(r)), a.litOf(a.s.Low(r))
		h.set(hintArg2HD, d+2, clauseHD(n, v, hLit, lLit))
		h.set(hintArg2LD, d+3, clauseLD(n, v, hLit, lLit))
	}
	if a.s.Level(res) == level {
		n, d := a.s.XVar(res), a.s.DClause(res)
		hLit, lLit := a.litOf(a.s.High(res)), a.litOf(a.s.Low(res))
		h.set(hintResHU, d+0, clauseHU(n, v, hLit, lLit))
		h.set(hintResLU, d+1, clauseLU(n, v, hLit, lLit))
	}
	h.set(hintOPH, resh.ClauseID, []int{-a.litOf(lh), -a.litOf(rh), a.litOf(resh.Root)})
	h.set(hintOPL, resl.ClauseID, []int{-a.litOf(ll), -a.litOf(rl), a.litOf(resl.Root)})
	h.complete()

	return a.finishJustify(v, cleaned, h)
}

// justifyImpTest builds the clause ¬xvar(l) ∨ xvar(r) directly. The
// implication relates the operands' own extension variables, with no
// separate variable introduced for "l implies r" (see ImpTest's doc
// comment).
func (a *Applier) justifyImpTest(l, r store.ID, level int32, resl, resh Result) (int, error) {
	targ := []int{-a.litOf(l), a.litOf(r)}
	cleaned, taut, err := proof.Clean(targ)
	if err != nil {
		return 0, errors.Wrap(err, "apply: imptest target clause")
	}
	if taut {
		return tautologyID, nil
	}

	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)

	h := newHintSet()
	v := a.pf.VarOf(level)
	if a.s.Level(r) == level {
		n, d := a.s.XVar(r), a.s.DClause(r)
		hLit, lLit := a.litOf(a.s.High(r)), a.litOf(a.s.Low(r))
		h.set(hintResHU, d+0, clauseHU(n, v, hLit, lLit))
		h.set(hintResLU, d+1, clauseLU(n, v, hLit, lLit))
	}
	h.set(hintOPH, resh.ClauseID, []int{-a.litOf(lh), a.litOf(rh)})
	h.set(hintOPL, resl.ClauseID, []int{-a.litOf(ll), a.litOf(rl)})
	h.complete()

	return a.finishJustify(v, cleaned, h)
}

// justifyAndImpTest builds the clause ¬xvar(l) ∨ ¬xvar(r) ∨ xvar(target),
// combining AND's ARG1/ARG2 defining-clause hints for the conjunction's
// operands with IMPTST's RES hints for the (externally supplied)
// target's own defining clauses. This adapts rather than ports
// bdd_and_imptst_justify, whose body is not in the reference sources.
func (a *Applier) justifyAndImpTest(l, r, target store.ID, level int32, resl, resh Result) (int, error) {
	targ := []int{-a.litOf(l), -a.litOf(r), a.litOf(target)}
	cleaned, taut, err := proof.Clean(targ)
	if err != nil {
		return 0, errors.Wrap(err, "apply: and_imptest target clause")
	}
	if taut {
		return tautologyID, nil
	}

	ll, lh := cofactor(a.s, l, level)
	rl, rh := cofactor(a.s, r, level)
	tl, th := cofactor(a.s, target, level)

	h := newHintSet()
	v := a.pf.VarOf(level)
	if a.s.Level(l) == level {
		n, d := a.s.XVar(l), a.s.DClause(l)
		hLit, lLit := a.litOf(a.s.High(l)), a.litOf(a.s.Low(l))
		h.set(hintArg1HD, d+2, clauseHD(n, v, hLit, lLit))
		h.set(hintArg1LD, d+3, clauseLD(n, v, hLit, lLit))
	}
	if a.s.Level(r) == level {
		n, d := a.s.XVar(r), a.s.DClause(r)
		hLit, lLit := a.litOf(a.s.High(r)), a.litOf(a.s.Low(r))
		h.set(hintArg2HD, d+2, clauseHD(n, v, hLit, lLit))
		h.set(hintArg2LD, d+3, clauseLD(n, v, hLit, lLit))
	}
	if a.s.Level(target) == level {
		n, d := a.s.XVar(target), a.s.DClause(target)
		hLit, lLit := a.litOf(a.s.High(target)), a.litOf(a.s.Low(target))
		h.set(hintResHU, d+0, clauseHU(n, v, hLit, lLit))
		h.set(hintResLU, d+1, clauseLU(n, v, hLit, lLit))
	}
	h.set(hintOPH, resh.ClauseID, []int{-a.litOf(lh), -a.litOf(rh), a.litOf(th)})
	h.set(hintOPL, resl.ClauseID, []int{-a.litOf(ll), -a.litOf(rl), a.litOf(tl)})
	h.complete()

	return a.finishJustify(v, cleaned, h)
}
