// Package ilist implements a small resizable vector of signed integers,
// used throughout tbdd to represent clauses, hint lists, and variable
// sets. It is the Go analogue of buddy's ilist: the length/max-length
// prefix trick used there is a C memory-layout optimization that the Go
// translation replaces with an explicit Static flag and a plain slice.
package ilist

import (
	"sort"
	"strconv"
	"strings"
)

// IList is a resizable vector of ints. A zero IList is an empty dynamic
// list ready to use.
type IList struct {
	data   []int
	static bool
}

// TautologyClause is a sentinel representing a clause that is always
// satisfied. Its identity (pointer), not its contents, is what callers
// test for.
var TautologyClause = &IList{}

// FalseCube is a sentinel representing a cube that can never be
// satisfied (the conjunction of some variable with its own negation).
var FalseCube = &IList{}

// New returns an empty dynamically-growable list with room for
// maxLength elements before the first reallocation.
func New(maxLength int) *IList {
	if maxLength < 0 {
		maxLength = 0
	}
	return &IList{data: make([]int, 0, maxLength)}
}

// Make wraps a caller-owned slice as a statically backed IList: Resize
// past len(buf) is an error instead of triggering growth, mirroring a
// buddy ilist built over caller memory via ilist_make.
func Make(buf []int) *IList {
	return &IList{data: buf[:0:len(buf)], static: true}
}

// Len returns the number of elements currently in the list.
func (l *IList) Len() int {
	if l == TautologyClause || l == FalseCube {
		return 0
	}
	return len(l.data)
}

// Slice returns the backing elements. Callers must not retain it past
// the next mutating call on l.
func (l *IList) Slice() []int {
	return l.data
}

// Get returns the element at index i.
func (l *IList) Get(i int) int {
	return l.data[i]
}

// Set overwrites the element at index i.
func (l *IList) Set(i, v int) {
	l.data[i] = v
}

// Resize changes the list's length to n, growing the backing storage if
// necessary. Shrinking simply truncates; growing a statically backed
// list past its original capacity panics, matching buddy's "resize
// (static)" fatal error.
func (l *IList) Resize(n int) *IList {
	switch {
	case n <= len(l.data):
		l.data = l.data[:n]
	case n <= cap(l.data):
		l.data = l.data[:n]
	case l.static:
		panic("ilist: resize past capacity of statically backed list")
	default:
		grown := make([]int, n, growCap(cap(l.data), n))
		copy(grown, l.data)
		l.data = grown
	}
	return l
}

func growCap(have, need int) int {
	c := have * 2
	if c < need {
		c = need
	}
	if c < 4 {
		c = 4
	}
	return c
}

// Push appends val to the end of the list.
func (l *IList) Push(val int) *IList {
	n := len(l.data)
	l.Resize(n + 1)
	l.data[n] = val
	return l
}

// Fill1 overwrites the list's contents with a single element.
func (l *IList) Fill1(v1 int) *IList {
	l.Resize(1)
	l.data[0] = v1
	return l
}

// Fill2 overwrites the list's contents with two elements.
func (l *IList) Fill2(v1, v2 int) *IList {
	l.Resize(2)
	l.data[0], l.data[1] = v1, v2
	return l
}

// Fill3 overwrites the list's contents with three elements.
func (l *IList) Fill3(v1, v2, v3 int) *IList {
	l.Resize(3)
	l.data[0], l.data[1], l.data[2] = v1, v2, v3
	return l
}

// Fill4 overwrites the list's contents with four elements.
func (l *IList) Fill4(v1, v2, v3, v4 int) *IList {
	l.Resize(4)
	l.data[0], l.data[1], l.data[2], l.data[3] = v1, v2, v3, v4
	return l
}

// Copy returns a new dynamically backed list with the same contents.
func (l *IList) Copy() *IList {
	c := New(len(l.data))
	c.data = append(c.data, l.data...)
	return c
}

// CopyFrom returns a new dynamically backed list populated from ls.
func CopyFrom(ls []int) *IList {
	c := New(len(ls))
	c.data = append(c.data, ls...)
	return c
}

// Member reports whether val appears in the list.
func (l *IList) Member(val int) bool {
	for _, v := range l.data {
		if v == val {
			return true
		}
	}
	return false
}

// Sort puts the list's elements into ascending order.
func (l *IList) Sort() {
	sort.Ints(l.data)
}

// Reverse reverses the list's elements in place.
func (l *IList) Reverse() {
	for i, j := 0, len(l.data)-1; i < j; i, j = i+1, j-1 {
		l.data[i], l.data[j] = l.data[j], l.data[i]
	}
}

// String renders the list's elements separated by sep.
func (l *IList) String(sep string) string {
	if l == TautologyClause {
		return "TAUT"
	}
	if l == nil {
		return "NULL"
	}
	parts := make([]string, len(l.data))
	for i, v := range l.data {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
