package ilist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushAndFill(t *testing.T) {
	type tc struct {
		Name     string
		Build    func() *IList
		Expected []int
	}

	for _, tt := range []tc{
		{
			Name:     "push three",
			Build:    func() *IList { return New(0).Push(1).Push(2).Push(3) },
			Expected: []int{1, 2, 3},
		},
		{
			Name:     "fill1",
			Build:    func() *IList { return New(0).Fill1(7) },
			Expected: []int{7},
		},
		{
			Name:     "fill4",
			Build:    func() *IList { return New(0).Fill4(1, 2, 3, 4) },
			Expected: []int{1, 2, 3, 4},
		},
		{
			Name:     "fill overwrites previous contents",
			Build:    func() *IList { return New(0).Push(9).Push(9).Fill2(1, 2) },
			Expected: []int{1, 2},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.Expected, tt.Build().Slice())
		})
	}
}

func TestStaticResizePastCapacityPanics(t *testing.T) {
	l := Make(make([]int, 2))
	assert.Panics(t, func() { l.Resize(3) })
}

func TestMemberSortReverse(t *testing.T) {
	l := CopyFrom([]int{3, 1, 2})
	assert.True(t, l.Member(2))
	assert.False(t, l.Member(9))

	l.Sort()
	assert.Equal(t, []int{1, 2, 3}, l.Slice())

	l.Reverse()
	assert.Equal(t, []int{3, 2, 1}, l.Slice())
}

func TestCopyIsIndependent(t *testing.T) {
	orig := CopyFrom([]int{1, 2, 3})
	dup := orig.Copy()
	dup.Set(0, 99)
	assert.Equal(t, 1, orig.Get(0))
	assert.Equal(t, 99, dup.Get(0))
}

func TestSentinels(t *testing.T) {
	assert.Equal(t, 0, TautologyClause.Len())
	assert.Equal(t, "TAUT", TautologyClause.String(" "))
	assert.Equal(t, 0, FalseCube.Len())
	assert.NotSame(t, TautologyClause, FalseCube)
}

func TestString(t *testing.T) {
	l := CopyFrom([]int{1, -2, 3})
	assert.Equal(t, "1 -2 3", l.String(" "))
}
