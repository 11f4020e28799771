package proof

import (
	"sort"

	"github.com/pkg/errors"
)

// Format selects which of the three clausal proof formats a Writer
// emits.
type Format int

const (
	LRAT Format = iota
	DRAT
	FRAT
)

func (f Format) String() string {
	switch f {
	case LRAT:
		return "LRAT"
	case DRAT:
		return "DRAT"
	case FRAT:
		return "FRAT"
	default:
		return "unknown"
	}
}

// ErrZeroLiteral is returned by Clean when a clause contains the
// literal 0, which is never valid (0 is the DIMACS clause terminator,
// not a variable).
var ErrZeroLiteral = errors.New("proof: literal 0 in clause")

// Clean puts a clause into canonical form: literals are deduplicated
// and sorted into a fixed descending order, complementary pairs mark
// the clause as tautological, and a literal 0 is rejected outright.
// Clean is idempotent (P3): re-cleaning an already-clean clause is a
// no-op.
func Clean(lits []int) (cleaned []int, tautological bool, err error) {
	seen := make(map[int]bool, len(lits))
	out := make([]int, 0, len(lits))
	for _, l := range lits {
		if l == 0 {
			return nil, false, ErrZeroLiteral
		}
		if seen[l] {
			continue
		}
		if seen[-l] {
			return nil, true, nil
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return absInt(out[i]) > absInt(out[j])
	})
	return out, false, nil
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
