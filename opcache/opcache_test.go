package opcache

import (
	"testing"

	"github.com/go-air/tbdd/store"
	"github.com/stretchr/testify/assert"
)

func TestPrimeGTE(t *testing.T) {
	type tc struct {
		In       int
		Expected int
	}
	for _, tt := range []tc{
		{In: 0, Expected: 2},
		{In: 1, Expected: 2},
		{In: 2, Expected: 2},
		{In: 8, Expected: 11},
		{In: 100, Expected: 101},
		{In: 101, Expected: 101},
	} {
		assert.Equal(t, tt.Expected, PrimeGTE(tt.In))
	}
}

func TestLookupMissThenHit(t *testing.T) {
	c := New(16)
	_, ok := c.Lookup(1, 2, -1, OpAnd)
	assert.False(t, ok)

	c.Insert(1, 2, -1, OpAnd, 7, 100)
	e, ok := c.Lookup(1, 2, -1, OpAnd)
	assert.True(t, ok)
	assert.EqualValues(t, 7, e.Result)
	assert.Equal(t, 100, e.ClauseID)
}

func TestDistinctOpsDoNotAlias(t *testing.T) {
	c := New(16)
	c.Insert(1, 2, -1, OpAnd, 7, 100)
	_, ok := c.Lookup(1, 2, -1, OpImpTest)
	assert.False(t, ok)
}

func TestEvictionCallsHandler(t *testing.T) {
	c := New(2) // tiny table forces collisions
	var evicted []int
	c.SetEvictHandler(func(id int) { evicted = append(evicted, id) })

	for a := 0; a < 10; a++ {
		c.Insert(store.ID(a), 0, -1, OpAnd, store.ID(a), 1000+a)
	}
	assert.NotEmpty(t, evicted)
}

func TestResetDefersAllLiveClauses(t *testing.T) {
	c := New(8)
	c.Insert(1, 2, -1, OpAnd, 7, 100)
	c.Insert(3, 4, -1, OpAnd, 8, 101)
	var evicted []int
	c.SetEvictHandler(func(id int) { evicted = append(evicted, id) })
	c.Reset()
	assert.ElementsMatch(t, []int{100, 101}, evicted)

	_, ok := c.Lookup(1, 2, -1, OpAnd)
	assert.False(t, ok)
}

func TestLiveIDsDeduplicates(t *testing.T) {
	c := New(8)
	c.Insert(1, 2, -1, OpAnd, 3, 0)
	c.Insert(2, 4, -1, OpAnd, 3, 1)
	ids := c.LiveIDs()
	assert.ElementsMatch(t, []store.ID{1, 2, 3, 4}, ids)
}
