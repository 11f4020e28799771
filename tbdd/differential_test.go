package tbdd

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-air/tbdd/apply"
	"github.com/go-air/tbdd/opcache"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
)

// giniSAT reports whether clauses (1-based DIMACS literals) are
// satisfiable, using go-air/gini as an independent oracle, fed the
// module's plain int literal clauses directly (one z.Lit per literal,
// a zero Lit terminating each clause, the library's own incremental
// Add/Solve convention).
func giniSAT(clauses [][]int) bool {
	g := gini.New()
	for _, cl := range clauses {
		for _, lit := range cl {
			v := z.Var(abs(lit))
			if lit < 0 {
				g.Add(v.Neg())
			} else {
				g.Add(v.Pos())
			}
		}
		g.Add(0)
	}
	return g.Solve() == 1
}

func newDifferentialFixture(t *testing.T, varCount int, clauses [][]int) *Manager {
	t.Helper()
	var buf bytes.Buffer
	vc, cc := varCount, 0
	w, err := proof.New(&buf, &vc, &cc, clauses, proof.LRAT, false)
	require.NoError(t, err)

	cache := opcache.New(64)
	s := store.New(64, store.WithProofSink(w), store.WithLiveCacheIDs(cache.LiveIDs))
	cache.SetEvictHandler(func(id int) { w.DeferDeleteClauses(id) })
	ap := apply.New(s, cache, w)
	return NewManager(s, ap, w)
}

// tbddSAT builds the conjunction of clauses as TBDDs, the way a
// front-end asserting an input formula would, and reports whether the
// result is satisfiable.
func tbddSAT(t *testing.T, varCount int, clauses [][]int) bool {
	t.Helper()
	m := newDifferentialFixture(t, varCount, clauses)
	result := m.Tautology()
	for i := range clauses {
		tc, err := m.FromClauseID(i + 1)
		require.NoError(t, err)
		next, err := m.And(result, tc)
		require.NoError(t, err)
		result = next
	}
	return !m.IsFalse(result)
}

func TestDifferentialAgreesWithGiniOnFixedInstances(t *testing.T) {
	cases := []struct {
		vars    int
		clauses [][]int
	}{
		{3, [][]int{{1, -2}, {2, 3}, {-1, -3}}},                 // satisfiable
		{1, [][]int{{1}, {-1}}},                                 // trivially unsat
		{2, [][]int{{1, 2}, {-1, 2}, {1, -2}, {-1, -2}}},        // all four clauses over 2 vars: unsat
		{3, [][]int{{1, 2, 3}, {-1, 2}, {-2, 3}, {-3}}},         // satisfiable
	}
	for _, tc := range cases {
		want := giniSAT(tc.clauses)
		got := tbddSAT(t, tc.vars, tc.clauses)
		assert.Equal(t, want, got, "clauses=%v", tc.clauses)
	}
}

func TestDifferentialAgreesWithGiniOnRandomInstances(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const nVars = 5
	for trial := 0; trial < 20; trial++ {
		nClauses := 3 + rng.Intn(6)
		clauses := make([][]int, nClauses)
		for i := range clauses {
			clen := 1 + rng.Intn(3)
			cl := make([]int, 0, clen)
			seen := make(map[int]bool, clen)
			for len(cl) < clen {
				v := 1 + rng.Intn(nVars)
				if rng.Intn(2) == 0 {
					v = -v
				}
				if seen[v] || seen[-v] {
					continue
				}
				seen[v] = true
				cl = append(cl, v)
			}
			clauses[i] = cl
		}

		want := giniSAT(clauses)
		got := tbddSAT(t, nVars, clauses)
		assert.Equal(t, want, got, "trial %d: clauses=%v", trial, clauses)
	}
}
