package xorset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-air/tbdd/apply"
	"github.com/go-air/tbdd/opcache"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
	"github.com/go-air/tbdd/tbdd"
)

func newFixture(t *testing.T, vc int) (*store.Store, *tbdd.Manager) {
	t.Helper()
	var buf bytes.Buffer
	vcCounter, cc := vc, 0
	w, err := proof.New(&buf, &vcCounter, &cc, nil, proof.LRAT, false)
	require.NoError(t, err)

	cache := opcache.New(64)
	s := store.New(16, store.WithProofSink(w), store.WithLiveCacheIDs(cache.LiveIDs))
	cache.SetEvictHandler(func(id int) { w.DeferDeleteClauses(id) })
	ap := apply.New(s, cache, w)
	return s, tbdd.NewManager(s, ap, w)
}

func TestAssertedConstraintBuildsNonFalseBDD(t *testing.T) {
	_, m := newFixture(t, 4)
	c, err := NewAsserted(m, []int{1, 2, 3}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, store.False, c.Validation.Root)
	assert.Equal(t, []int{1, 2, 3}, c.Vars)
}

func TestTautologyIsDegenerate(t *testing.T) {
	_, m := newFixture(t, 2)
	c := Tautology(m)
	assert.True(t, c.IsDegenerate())
	assert.False(t, c.IsInfeasible())
}

func TestCoefficientSumCancelsSharedVariables(t *testing.T) {
	got := coefficientSum([]int{1, 2, 3}, []int{2, 3, 4})
	assert.Equal(t, []int{1, 4}, got)
}

func TestPlusOfIdenticalConstraintsIsDegenerate(t *testing.T) {
	s, m := newFixture(t, 4)
	c, err := NewAsserted(m, []int{1, 2}, 1)
	require.NoError(t, err)
	c2, err := NewAsserted(m, []int{1, 2}, 1)
	require.NoError(t, err)

	sum, err := Plus(m, s, c, c2)
	require.NoError(t, err)
	assert.True(t, sum.IsDegenerate(), "a constraint summed with itself cancels entirely")
}

func TestPlusCombinesPhasesAndVariables(t *testing.T) {
	s, m := newFixture(t, 6)
	c1, err := NewAsserted(m, []int{1, 2}, 1)
	require.NoError(t, err)
	c2, err := NewAsserted(m, []int{2, 3}, 0)
	require.NoError(t, err)

	sum, err := Plus(m, s, c1, c2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, sum.Vars)
	assert.Equal(t, 1, sum.Phase)
}

func TestSetSumOfTwoConstraintsMatchesDirectPlus(t *testing.T) {
	s, m := newFixture(t, 6)
	c1, err := NewAsserted(m, []int{1, 2}, 1)
	require.NoError(t, err)
	c2, err := NewAsserted(m, []int{2, 3}, 0)
	require.NoError(t, err)

	set := NewSet()
	set.Add(c1)
	set.Add(c2)
	sum, err := set.Sum(m, s, defaultSeed)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, sum.Vars)
	assert.Equal(t, 1, sum.Phase)
	assert.Equal(t, 0, set.Len(), "Sum empties the set")
}

func TestSetDetectsInfeasibleChain(t *testing.T) {
	// x1^x2=1, x2^x3=1, x1^x3=1 sums to 0=1: infeasible.
	s, m := newFixture(t, 8)
	c1, err := NewAsserted(m, []int{1, 2}, 1)
	require.NoError(t, err)
	c2, err := NewAsserted(m, []int{2, 3}, 1)
	require.NoError(t, err)
	c3, err := NewAsserted(m, []int{1, 3}, 1)
	require.NoError(t, err)

	set := NewSet()
	set.Add(c1)
	set.Add(c2)
	set.Add(c3)
	sum, err := set.Sum(m, s, defaultSeed)
	require.NoError(t, err)
	assert.True(t, sum.IsInfeasible())
}

func TestGaussJordanSeparatesInternalAndExternalPivots(t *testing.T) {
	s, m := newFixture(t, 10)
	// Internal helper variable 5 ties external variables 1,2,3,4 together.
	c1, err := NewAsserted(m, []int{1, 2, 5}, 0)
	require.NoError(t, err)
	c2, err := NewAsserted(m, []int{3, 4, 5}, 1)
	require.NoError(t, err)

	set := NewSet()
	set.Add(c1)
	set.Add(c2)

	internal := map[int]bool{5: true}
	var eset, iset Set
	pivots, err := set.GaussJordan(m, s, internal, defaultSeed, &eset, &iset)
	require.NoError(t, err)
	assert.Len(t, pivots, 2)
	assert.Contains(t, pivots, 5, "internal variable should be preferred as a pivot")
}

func TestSumGraphMatchesLinearFoldForFiveConstraints(t *testing.T) {
	s, m := newFixture(t, 12)
	cs := make([]*Constraint, 0, 5)
	pairs := [][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 6}}
	for _, p := range pairs {
		c, err := NewAsserted(m, []int{p[0], p[1]}, 1)
		require.NoError(t, err)
		cs = append(cs, c)
	}
	linear, err := sumListLinear(m, s, append([]*Constraint(nil), cs...))
	require.NoError(t, err)

	graphed, err := sumList(m, s, cs, defaultSeed)
	require.NoError(t, err)
	assert.Equal(t, linear.Vars, graphed.Vars)
	assert.Equal(t, linear.Phase, graphed.Phase)
}
