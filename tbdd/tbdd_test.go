package tbdd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-air/tbdd/apply"
	"github.com/go-air/tbdd/opcache"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
)

func newFixture(t *testing.T, clauses [][]int) *Manager {
	t.Helper()
	var buf bytes.Buffer
	vc, cc := 3, 0
	w, err := proof.New(&buf, &vc, &cc, clauses, proof.LRAT, false)
	require.NoError(t, err)

	cache := opcache.New(64)
	s := store.New(16, store.WithProofSink(w), store.WithLiveCacheIDs(cache.LiveIDs))
	cache.SetEvictHandler(func(id int) { w.DeferDeleteClauses(id) })
	ap := apply.New(s, cache, w)
	return NewManager(s, ap, w)
}

func TestFromClauseIDBuildsTrustedBDD(t *testing.T) {
	m := newFixture(t, [][]int{{1, -2}})
	tr, err := m.FromClauseID(1)
	require.NoError(t, err)
	assert.NotEqual(t, store.False, tr.Root)
}

func TestFromClauseIDRejectsUnknownClause(t *testing.T) {
	m := newFixture(t, [][]int{{1, -2}})
	_, err := m.FromClauseID(99)
	assert.Error(t, err)
}

func TestAndOfTautologyIsIdentity(t *testing.T) {
	m := newFixture(t, [][]int{{1}, {2}})
	t1, err := m.FromClauseID(1)
	require.NoError(t, err)

	res, err := m.And(m.Tautology(), t1)
	require.NoError(t, err)
	assert.Equal(t, t1.Root, res.Root)
}

func TestValidateSameRootIsNoOp(t *testing.T) {
	m := newFixture(t, [][]int{{1}})
	t1, err := m.FromClauseID(1)
	require.NoError(t, err)

	res, err := m.Validate(t1.Root, t1)
	require.NoError(t, err)
	assert.Equal(t, t1.Root, res.Root)
}

func TestFromXorOddParity(t *testing.T) {
	m := newFixture(t, nil)
	tr, err := m.FromXor([]int{1, 2}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, store.False, tr.Root)
}
