package apply

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-air/tbdd/opcache"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
)

func newFixture(t *testing.T) (*store.Store, *opcache.Cache, *proof.Writer, *Applier) {
	t.Helper()
	var buf bytes.Buffer
	vc, cc := 2, 0
	w, err := proof.New(&buf, &vc, &cc, nil, proof.LRAT, false)
	require.NoError(t, err)

	cache := opcache.New(64)
	s := store.New(8, store.WithProofSink(w), store.WithLiveCacheIDs(cache.LiveIDs))
	cache.SetEvictHandler(func(id int) { w.DeferDeleteClauses(id) })
	return s, cache, w, New(s, cache, w)
}

func TestAndWithTrueIsIdentity(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.And(store.True, v1)
	require.NoError(t, err)
	assert.Equal(t, v1, res.Root)
	assert.Equal(t, proof.Tautology, res.ClauseID)
}

func TestAndWithFalseIsFalse(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.And(store.False, v1)
	require.NoError(t, err)
	assert.Equal(t, store.False, res.Root)
}

func TestAndOfDistinctVarsProducesJustifiedNode(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)
	v2, err := s.MakeNode(1, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.And(v1, v2)
	require.NoError(t, err)
	assert.NotEqual(t, store.False, res.Root)
	assert.NotEqual(t, proof.Tautology, res.ClauseID, "a genuine new node needs a real justifying clause")
}

func TestImpTestReflexive(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.ImpTest(v1, v1)
	require.NoError(t, err)
	assert.Equal(t, store.True, res.Root)
}

func TestImpTestFalseImpliesAnything(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.ImpTest(store.False, v1)
	require.NoError(t, err)
	assert.Equal(t, store.True, res.Root)
}

func TestAndImpTestOfConjunctAgainstItself(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)
	v2, err := s.MakeNode(1, store.False, store.True)
	require.NoError(t, err)

	conj, err := ap.And(v1, v2)
	require.NoError(t, err)

	res, err := ap.AndImpTest(v1, v2, conj.Root)
	require.NoError(t, err)
	assert.Equal(t, store.True, res.Root, "v1 & v2 trivially implies their own conjunction")
}

func TestExistQuantOverSingleVarIsTautology(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v1, err := s.MakeNode(0, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.ExistQuant(v1, 0)
	require.NoError(t, err)
	assert.Equal(t, store.True, res)
}

func TestExistQuantLeavesUnrelatedVarIntact(t *testing.T) {
	s, _, _, ap := newFixture(t)
	v2, err := s.MakeNode(1, store.False, store.True)
	require.NoError(t, err)

	res, err := ap.ExistQuant(v2, 0)
	require.NoError(t, err)
	assert.Equal(t, v2, res)
}
