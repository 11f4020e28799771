// Package xorset implements C6's pseudoboolean-XOR layer: a proof-backed
// representation of parity constraints (x1 ⊕ x2 ⊕ ... ⊕ xn = phase) over
// BDD variables, a combining operator that sums two constraints into
// their BDD-validated XOR sum, and a cost-minimizing graph-contraction
// heuristic for summing many constraints at once.
//
// Grounded on original_source/src/buddy/pseudoboolean.cxx and
// original_source/buddy/src/pseudoboolean.h (xor_constraint, xor_plus,
// sum_graph/get_sum, the Sequencer pseudo-RNG, and the gauss/xor_set
// Gauss-Jordan machinery). bddop.c's bdd_build_xor (the recursive BDD
// builder the LRAT-mode constructor calls before validating) is not in
// the reference pack either, so buildXorBDD below is my own
// construction of the same parity-function BDD, built bottom-up in the
// same style as tbdd.buildClauseBDD.
package xorset

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/go-air/tbdd/store"
	"github.com/go-air/tbdd/tbdd"
)

// Constraint is a single parity constraint over Vars (ascending, distinct
// DIMACS variables), true when their XOR equals Phase (0 or 1), together
// with the TBDD that proves its BDD representation follows from the
// input clauses (xor_constraint).
type Constraint struct {
	Vars       []int
	Phase      int
	Validation tbdd.TBDD
}

// IsInfeasible reports whether the constraint has no solution: an empty
// variable list asserting an odd (nonzero) parity.
func (c *Constraint) IsInfeasible() bool { return len(c.Vars) == 0 && c.Phase != 0 }

// IsDegenerate reports whether the constraint is vacuously true and
// imposes no restriction (an empty variable list with even parity).
func (c *Constraint) IsDegenerate() bool { return len(c.Vars) == 0 && c.Phase == 0 }

func (c *Constraint) clone() *Constraint {
	vars := append([]int(nil), c.Vars...)
	return &Constraint{Vars: vars, Phase: c.Phase, Validation: c.Validation}
}

// Tautology returns the degenerate, always-true constraint with no
// variables (xor_constraint's default constructor).
func Tautology(m *tbdd.Manager) *Constraint {
	return &Constraint{Validation: m.Tautology()}
}

// NewFromProduct builds the constraint asserting vars XOR to phase,
// validated from vfun: the BDD for the constraint must follow from the
// clauses vfun already proves (xor_constraint(vars, phase, vfun)), the
// LRAT-mode path.
func NewFromProduct(m *tbdd.Manager, s *store.Store, vars []int, phase int, vfun tbdd.TBDD) (*Constraint, error) {
	sorted := sortedCopy(vars)
	xfun, err := buildXorBDD(s, sorted, phase)
	if err != nil {
		return nil, errors.Wrap(err, "xorset: building constraint bdd")
	}
	tr, err := m.Validate(xfun, vfun)
	if err != nil {
		return nil, errors.Wrap(err, "xorset: validating constraint")
	}
	return &Constraint{Vars: sorted, Phase: phase, Validation: tr}, nil
}

// NewFromProductOfTwo is NewFromProduct's two-antecedent form, used when
// the constraint follows from the conjunction of two existing
// justifications without materializing that conjunction first
// (xor_constraint(vars, phase, vfun1, vfun2)).
func NewFromProductOfTwo(m *tbdd.Manager, s *store.Store, vars []int, phase int, vfun1, vfun2 tbdd.TBDD) (*Constraint, error) {
	sorted := sortedCopy(vars)
	xfun, err := buildXorBDD(s, sorted, phase)
	if err != nil {
		return nil, errors.Wrap(err, "xorset: building constraint bdd")
	}
	tr, err := m.ValidateWithAnd(xfun, vfun1, vfun2)
	if err != nil {
		return nil, errors.Wrap(err, "xorset: validating constraint")
	}
	return &Constraint{Vars: sorted, Phase: phase, Validation: tr}, nil
}

// NewAsserted builds vars XOR phase with no antecedent proof, trusting
// the checker to confirm it independently, the DRAT-mode path
// (xor_constraint(vars, phase), which defers to tbdd_from_xor).
func NewAsserted(m *tbdd.Manager, vars []int, phase int) (*Constraint, error) {
	sorted := sortedCopy(vars)
	tr, err := m.FromXor(sorted, phase)
	if err != nil {
		return nil, errors.Wrap(err, "xorset: asserting xor")
	}
	return &Constraint{Vars: sorted, Phase: phase, Validation: tr}, nil
}

func sortedCopy(vars []int) []int {
	sorted := append([]int(nil), vars...)
	sort.Ints(sorted)
	return sorted
}

// buildXorBDD constructs the ROBDD for "vars (ascending) XOR together to
// phase", bottom-up from the highest-level variable so every MakeNode
// call's children already exist, mirroring tbdd.buildClauseBDD's
// traversal direction.
func buildXorBDD(s *store.Store, vars []int, phase int) (store.ID, error) {
	r0, r1 := store.True, store.False // f(nil, 0), f(nil, 1)
	for i := len(vars) - 1; i >= 0; i-- {
		level := int32(vars[i] - 1)
		n0, err := s.MakeNode(level, r0, r1) // phase 0: low keeps phase, high flips it
		if err != nil {
			return 0, err
		}
		n1, err := s.MakeNode(level, r1, r0) // phase 1: low keeps phase, high flips it
		if err != nil {
			return 0, err
		}
		r0, r1 = n0, n1
	}
	if phase == 0 {
		return r0, nil
	}
	return r1, nil
}

// coefficientSum merges two ascending, distinct variable lists under GF(2)
// addition: a variable present in both cancels out (coefficient_sum).
func coefficientSum(list1, list2 []int) []int {
	i, j := 0, 0
	result := make([]int, 0, len(list1)+len(list2))
	for i < len(list1) && j < len(list2) {
		v1, v2 := list1[i], list2[j]
		switch {
		case v1 < v2:
			result = append(result, v1)
			i++
		case v2 < v1:
			result = append(result, v2)
			j++
		default:
			i++
			j++
		}
	}
	result = append(result, list1[i:]...)
	result = append(result, list2[j:]...)
	return result
}

// Plus computes the XOR sum of c and other: the combined variable set
// (with shared variables cancelling) and XOR'd phase, validated from both
// operands' justifications (xor_plus).
func Plus(m *tbdd.Manager, s *store.Store, c, other *Constraint) (*Constraint, error) {
	nvars := coefficientSum(c.Vars, other.Vars)
	nphase := c.Phase ^ other.Phase
	return NewFromProductOfTwo(m, s, nvars, nphase, c.Validation, other.Validation)
}
