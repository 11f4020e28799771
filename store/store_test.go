package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeNodeReduction(t *testing.T) {
	s := New(4)
	id, err := s.MakeNode(3, True, True)
	require.NoError(t, err)
	assert.Equal(t, True, id) // low == high collapses, P1
}

func TestMakeNodeHashConsUniqueness(t *testing.T) {
	s := New(4)
	a, err := s.MakeNode(3, False, True)
	require.NoError(t, err)
	b, err := s.MakeNode(3, False, True)
	require.NoError(t, err)
	assert.Equal(t, a, b) // P2: repeated make_node returns same ID

	assert.Equal(t, int32(3), s.Level(a))
	assert.Equal(t, False, s.Low(a))
	assert.Equal(t, True, s.High(a))
}

func TestMakeNodeDistinguishesTriples(t *testing.T) {
	s := New(4)
	a, _ := s.MakeNode(3, False, True)
	b, _ := s.MakeNode(2, False, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, int32(2), s.Level(b))
}

func TestMakeNodeRejectsBadOrder(t *testing.T) {
	s := New(4)
	child, _ := s.MakeNode(3, False, True)
	_, err := s.MakeNode(5, child, True) // level(child) < level(parent): violates I2
	assert.ErrorIs(t, err, ErrIllBDD)
}

func TestMakeNodeRejectsOutOfRangeVar(t *testing.T) {
	s := New(4)
	_, err := s.MakeNode(MaxVar+1, False, True)
	assert.ErrorIs(t, err, ErrVar)
}

func TestRefCountSaturates(t *testing.T) {
	s := New(4)
	id, _ := s.MakeNode(3, False, True)
	for i := 0; i < MaxRef+10; i++ {
		s.AddRef(id)
	}
	assert.Equal(t, MaxRef, s.RefCount(id))
	s.DelRef(id)
	assert.Equal(t, MaxRef, s.RefCount(id)) // saturated nodes never decrement
}

func TestGCReclaimsUnreferencedNodes(t *testing.T) {
	s := New(4)
	baseline := s.Live()
	for i := 0; i < 200; i++ {
		_, err := s.MakeNode(int32(i%3), False, True)
		require.NoError(t, err)
	}
	freed := s.GC()
	assert.Greater(t, freed, 0)
	assert.LessOrEqual(t, s.Live(), baseline+2)
}

func TestGCRetainsReferencedAndSaved(t *testing.T) {
	s := New(4)
	kept, _ := s.MakeNode(5, False, True)
	s.AddRef(kept)

	saved, _ := s.MakeNode(6, False, True)
	mark := s.PushSave(saved)

	for i := 0; i < 50; i++ {
		s.MakeNode(int32(7+i), False, True)
	}
	s.GC()

	assert.True(t, s.valid(kept))
	assert.True(t, s.valid(saved))

	s.Unwind(mark)
}

func TestGrowBeyondMaxNodesFails(t *testing.T) {
	s := New(2, WithMaxNodes(3))
	first, err := s.MakeNode(1, False, True)
	require.NoError(t, err)
	s.AddRef(first) // keep alive so GC can't reclaim it to make room
	_, err = s.MakeNode(2, False, True)
	assert.ErrorIs(t, err, ErrNodeNum)
}
