package xorset

import (
	"github.com/go-air/tbdd/store"
	"github.com/go-air/tbdd/tbdd"
)

// Set is an accumulating collection of XOR constraints, the Go analog
// of original_source/src/buddy/pseudoboolean.cxx's xor_set: a front-end
// adds constraints as it derives them, then either sums the whole set
// into one validated constraint or Gauss-Jordan-eliminates it into an
// external/internal split.
type Set struct {
	items  []*Constraint
	maxVar int
}

// NewSet returns an empty constraint set.
func NewSet() *Set { return &Set{} }

// Add copies con into the set, skipping degenerate (always-true, no
// variables) constraints as not worth keeping (xor_set::add).
func (s *Set) Add(con *Constraint) {
	if con.IsDegenerate() {
		return
	}
	c := con.clone()
	if n := len(c.Vars); n > 0 && c.Vars[n-1] > s.maxVar {
		s.maxVar = c.Vars[n-1]
	}
	s.items = append(s.items, c)
}

// Len reports how many constraints are currently in the set.
func (s *Set) Len() int { return len(s.items) }

// IsInfeasible reports whether the set reduces to the single infeasible
// constraint (no variables, odd phase), the signature of a set that sums
// to a contradiction (xor_set::is_infeasible).
func (s *Set) IsInfeasible() bool {
	if len(s.items) != 1 {
		return false
	}
	return s.items[0].IsInfeasible()
}

// Clear empties the set.
func (s *Set) Clear() {
	s.items = nil
	s.maxVar = 0
}

// Sum reduces the whole set to a single validated constraint, using the
// linear fold for small sets and the min-cost graph contraction
// heuristic otherwise, then empties the set (xor_set::sum).
func (s *Set) Sum(m *tbdd.Manager, st *store.Store, seed uint64) (*Constraint, error) {
	sum, err := sumList(m, st, s.items, seed)
	if err != nil {
		return nil, err
	}
	s.Clear()
	return sum, nil
}

// pivotRec records a chosen pivot: the equation it was drawn from, the
// variable it eliminates, and its tie-broken cost (pivot).
type pivotRec struct {
	equationID int
	variable   int
	cost       int64
}

// gauss performs Gauss-Jordan elimination over a fixed set of XOR
// equations, reducing them to row-echelon form while tracking which
// pivot variable eliminated each equation (gauss).
type gauss struct {
	m  *tbdd.Manager
	st *store.Store

	internalVariables map[int]bool
	equations         []*Constraint // nil once eliminated
	equationCount     int
	remaining         int
	variableCount     int
	pivotSequence     []int

	externalEquations []*Constraint
	internalEquations []*Constraint

	imap         []map[int]bool // index v-1 -> equation ids mentioning v
	pivotList    []*pivotRec     // index v-1 -> current best pivot for v
	pivotByCost  map[int64]*pivotRec
	seq          *sequencer
}

func newGauss(m *tbdd.Manager, st *store.Store, eqs []*Constraint, internalVars map[int]bool, variableCount int, seed uint64) *gauss {
	g := &gauss{
		m:                 m,
		st:                st,
		internalVariables: internalVars,
		equations:         append([]*Constraint(nil), eqs...),
		equationCount:     len(eqs),
		remaining:         len(eqs),
		variableCount:     variableCount,
		pivotSequence:     nil,
		imap:              make([]map[int]bool, variableCount),
		pivotList:         make([]*pivotRec, variableCount),
		pivotByCost:       make(map[int64]*pivotRec),
		seq:               newSequencer(seed),
	}
	for i := range g.imap {
		g.imap[i] = make(map[int]bool)
	}
	for eid, eq := range eqs {
		for _, v := range eq.Vars {
			g.imap[v-1][eid] = true
		}
	}
	for v := 1; v <= variableCount; v++ {
		piv := g.choosePivot(v)
		g.pivotList[v-1] = piv
		if piv != nil {
			g.pivotByCost[piv.cost] = piv
		}
	}
	return g
}

func (g *gauss) newLower() int { return int(g.seq.next()) }

// choosePivot finds the cheapest equation in which v appears, penalizing
// external (non-internal) variables so internal ones pivot first
// (gauss::choose_pivot).
func (g *gauss) choosePivot(v int) *pivotRec {
	var best *pivotRec
	cols := len(g.imap[v-1])
	for eid := range g.imap[v-1] {
		row := g.equations[eid]
		c := (cols - 1) * (len(row.Vars) - 1)
		if !g.internalVariables[v] {
			c += externalPenalty
		}
		cost := pack(c, g.newLower())
		if best == nil || cost < best.cost {
			best = &pivotRec{equationID: eid, variable: v, cost: cost}
		}
	}
	return best
}

// step performs one elimination round, using the globally cheapest
// available pivot, and reports whether it produced an infeasible
// equation (gauss::gauss_step).
func (g *gauss) step() (bool, error) {
	var piv *pivotRec
	for _, p := range g.pivotByCost {
		if piv == nil || p.cost < piv.cost {
			piv = p
		}
	}
	peid, pvar := piv.equationID, piv.variable
	delete(g.pivotByCost, piv.cost)
	g.pivotList[pvar-1] = nil

	g.pivotSequence = append(g.pivotSequence, pvar)
	peq := g.equations[peid]
	g.equations[peid] = nil
	g.remaining--

	touched := make(map[int]bool)
	for _, v := range peq.Vars {
		delete(g.imap[v-1], peid)
		if v != pvar {
			touched[v] = true
		}
	}

	for eid := range g.imap[pvar-1] {
		eq := g.equations[eid]
		for _, v := range eq.Vars {
			if v != pvar {
				delete(g.imap[v-1], eid)
				touched[v] = true
			}
		}
		neq, err := Plus(g.m, g.st, peq, eq)
		if err != nil {
			return false, err
		}
		if neq.IsInfeasible() {
			g.equations[eid] = nil
			g.internalEquations = nil
			g.externalEquations = []*Constraint{neq}
			g.pivotSequence = []int{pvar}
			return true, nil
		} else if neq.IsDegenerate() {
			g.equations[eid] = nil
			g.remaining--
		} else {
			g.equations[eid] = neq
			for _, v := range neq.Vars {
				g.imap[v-1][eid] = true
			}
		}
	}
	g.imap[pvar-1] = make(map[int]bool)
	if g.internalVariables[pvar] {
		g.internalEquations = append(g.internalEquations, peq)
	} else {
		g.externalEquations = append(g.externalEquations, peq)
	}

	for tv := range touched {
		if opiv := g.pivotList[tv-1]; opiv != nil {
			delete(g.pivotByCost, opiv.cost)
		}
		npiv := g.choosePivot(tv)
		g.pivotList[tv-1] = npiv
		if npiv != nil {
			g.pivotByCost[npiv.cost] = npiv
		}
	}
	return false, nil
}

// jordanize eliminates the pivot variable of each external equation from
// every earlier external equation, turning the external set into
// reduced row-echelon (Jordan) form (gauss::jordanize).
func (g *gauss) jordanize() error {
	for peid := len(g.externalEquations) - 1; peid > 0; peid-- {
		peq := g.externalEquations[peid]
		tid := peid + len(g.internalEquations)
		pvar := g.pivotSequence[tid]
		for eid := peid - 1; eid >= 0; eid-- {
			eq := g.externalEquations[eid]
			if containsVar(eq.Vars, pvar) {
				neq, err := Plus(g.m, g.st, eq, peq)
				if err != nil {
					return err
				}
				g.externalEquations[eid] = neq
			}
		}
	}
	return nil
}

func containsVar(vars []int, v int) bool {
	for _, x := range vars {
		if x == v {
			return true
		}
	}
	return false
}

// run drives elimination to completion, then splits the surviving
// equations into eset (external variables, Jordan form, enough to tell
// sat/unsat) and iset (internal-pivoted equations, needed only to
// reconstruct solutions), returning the pivot order used
// (gauss::gauss_jordan).
func (g *gauss) run(eset, iset *Set) ([]int, error) {
	infeasible := false
	var err error
	for !infeasible && g.remaining > 0 {
		infeasible, err = g.step()
		if err != nil {
			return nil, err
		}
	}
	eset.Clear()
	iset.Clear()
	if infeasible {
		eset.Add(g.externalEquations[0])
		return g.pivotSequence, nil
	}
	if err := g.jordanize(); err != nil {
		return nil, err
	}
	for _, eq := range g.internalEquations {
		iset.Add(eq)
	}
	for _, eq := range g.externalEquations {
		eset.Add(eq)
	}
	return g.pivotSequence, nil
}

// GaussJordan eliminates s's equations against internalVariables (the
// set of variables considered purely internal bookkeeping, pivoted on
// first), depositing the reduced external-variable equations into eset
// and the internal-pivoted equations into iset, and returns the pivot
// order (xor_set::gauss_jordan).
func (s *Set) GaussJordan(m *tbdd.Manager, st *store.Store, internalVariables map[int]bool, seed uint64, eset, iset *Set) ([]int, error) {
	g := newGauss(m, st, s.items, internalVariables, s.maxVar, seed)
	return g.run(eset, iset)
}
