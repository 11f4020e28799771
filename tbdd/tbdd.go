// Package tbdd implements C6's trusted-BDD layer: a TBDD pairs a BDD
// root with the ID of the clause that justifies it, so every value a
// front-end holds is already proof-backed. Grounded directly on
// original_source/buddy/src/tbdd.c/.h (TBDD struct, tbdd_create,
// tbdd_from_clause(_id), tbdd_and, tbdd_validate,
// tbdd_validate_with_and, tbdd_validate_clause).
package tbdd

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/go-air/tbdd/apply"
	"github.com/go-air/tbdd/proof"
	"github.com/go-air/tbdd/store"
)

// Tautology marks a TBDD whose validity needs no clause: both
// terminals constructed by Tautology()/Null(), and any short-circuited
// operation result, carry this clause ID.
const Tautology = proof.Tautology

// TBDD is a BDD root together with the clause that proves it follows
// from the input clauses, mirroring buddy's TBDD struct. The zero
// value is not valid; use Tautology() or one of the constructors.
type TBDD struct {
	Root     store.ID
	ClauseID int
}

// Manager wires a node store, operation cache, applier and proof
// writer together to build and validate TBDDs, the Go analog of the
// tbdd_init/tbdd_done process-global state, made an explicit value the
// caller owns instead of a package singleton.
type Manager struct {
	s  *store.Store
	ap *apply.Applier
	pf *proof.Writer // nil in no-proof mode
}

// NewManager returns a Manager. pf may be nil for no-proof mode, in
// which case every TBDD constructed carries ClauseID == Tautology.
func NewManager(s *store.Store, ap *apply.Applier, pf *proof.Writer) *Manager {
	return &Manager{s: s, ap: ap, pf: pf}
}

// Create wraps root with clauseID as its justification, taking a
// reference on root (tbdd_create's AddRef semantics).
func (m *Manager) Create(root store.ID, clauseID int) TBDD {
	m.s.AddRef(root)
	return TBDD{Root: root, ClauseID: clauseID}
}

// Tautology returns the constant-true TBDD, needing no proof.
func (m *Manager) Tautology() TBDD { return TBDD{Root: store.True, ClauseID: Tautology} }

// Null returns the constant-false TBDD used as an error sentinel by
// callers that need a TBDD-typed zero value.
func (m *Manager) Null() TBDD { return TBDD{Root: store.False, ClauseID: Tautology} }

// IsTrue reports whether tr's underlying BDD is the true terminal.
func (m *Manager) IsTrue(tr TBDD) bool { return tr.Root == store.True }

// IsFalse reports whether tr's underlying BDD is the false terminal.
func (m *Manager) IsFalse(tr TBDD) bool { return tr.Root == store.False }

// AddRef increments tr's underlying BDD refcount and returns tr
// unchanged, for callers that want to keep a second owning handle.
func (m *Manager) AddRef(tr TBDD) TBDD {
	m.s.AddRef(tr.Root)
	return tr
}

// DelRef releases tr's reference. Once every reference to a TBDD is
// gone, its root (and the defining clauses of any node only it kept
// alive) become eligible for collection.
func (m *Manager) DelRef(tr TBDD) { m.s.DelRef(tr.Root) }

// FromClauseID builds the BDD representation of input clause id and
// proves it true under every assignment satisfying the clause, the
// LRAT path, which looks the clause's literals up from the proof
// writer's live dictionary instead of taking them from the caller
// (tbdd_from_clause_id). With no proof writer there is no clause
// dictionary to look id up in, and it returns Tautology().
func (m *Manager) FromClauseID(id int) (TBDD, error) {
	if m.pf == nil {
		return m.Tautology(), nil
	}
	lits := m.pf.InputClause(id)
	if lits == nil {
		return TBDD{}, errors.Errorf("tbdd: invalid input clause #%d", id)
	}
	return m.fromClauseWithID(lits, id)
}

// FromClause builds the BDD representation of clause and asserts it as
// a new clause of its own (rather than reusing an existing input
// clause's ID), the DRAT path (tbdd_from_clause), which must name a
// clause the checker can accept without an LRAT-style provenance
// chain.
func (m *Manager) FromClause(lits []int) (TBDD, error) {
	if m.pf == nil {
		return m.fromClauseWithID(lits, Tautology)
	}
	id, err := m.pf.AddClause(lits, nil)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: asserting input clause")
	}
	tr, err := m.fromClauseWithID(lits, id)
	if err != nil {
		return TBDD{}, err
	}
	if err := m.pf.DeleteClauses([]int{id}); err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: retiring asserted clause")
	}
	return tr, nil
}

// fromClauseWithID builds BDD_build_clause(lits) bottom-up and proves
// the resulting node true given clause id, by walking the clause's
// literals in ascending variable order (the chain from the root down)
// and, at each step, citing two of the node's defining clauses (LU then
// HU for a negative literal, HU then LU for a positive one) as
// antecedents alongside id, a direct port of tbdd_from_clause_with_id.
func (m *Manager) fromClauseWithID(lits []int, id int) (TBDD, error) {
	cleaned, taut, err := proof.Clean(append([]int(nil), lits...))
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: cleaning clause")
	}
	if taut {
		return m.Tautology(), nil
	}

	root, err := buildClauseBDD(m.s, cleaned)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: building clause BDD")
	}
	if m.pf == nil {
		return m.Create(root, Tautology), nil
	}

	ordered := append([]int(nil), cleaned...)
	sort.Sort(byAbs(ordered))

	var antecedents []int
	nd := root
	for _, lit := range ordered {
		if lit < 0 {
			antecedents = append(antecedents, m.s.DClause(nd)+1, m.s.DClause(nd)+0) // LU, HU
			nd = m.s.High(nd)
		} else {
			antecedents = append(antecedents, m.s.DClause(nd)+0, m.s.DClause(nd)+1) // HU, LU
			nd = m.s.Low(nd)
		}
	}
	antecedents = append(antecedents, id)

	clauseID, err := m.pf.AddClause([]int{m.s.XVar(root)}, antecedents)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validating clause BDD")
	}
	return m.Create(root, clauseID), nil
}

// buildClauseBDD constructs the BDD for a clean (deduplicated,
// descending |literal|) clause as a chain of don't-care nodes ending
// at False on the falsifying path, mirroring BDD_build_clause.
func buildClauseBDD(s *store.Store, lits []int) (store.ID, error) {
	res := store.False
	for i := 0; i < len(lits); i++ {
		lit := lits[i]
		v := int32(abs(lit)) - 1
		var low, high store.ID
		if lit < 0 {
			low, high = store.True, res
		} else {
			low, high = res, store.True
		}
		n, err := s.MakeNode(v, low, high)
		if err != nil {
			return 0, err
		}
		res = n
	}
	return res, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type byAbs []int

func (b byAbs) Len() int           { return len(b) }
func (b byAbs) Less(i, j int) bool { return abs(b[i]) < abs(b[j]) }
func (b byAbs) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// And forms the conjunction of two TBDDs, proving it from their
// justifications (tbdd_and).
func (m *Manager) And(t1, t2 TBDD) (TBDD, error) {
	if m.pf == nil {
		res, err := m.ap.And(t1.Root, t2.Root)
		if err != nil {
			return TBDD{}, err
		}
		return m.Create(res.Root, Tautology), nil
	}
	if m.IsTrue(t1) {
		return m.AddRef(t2), nil
	}
	if m.IsTrue(t2) {
		return m.AddRef(t1), nil
	}

	p, err := m.ap.And(t1.Root, t2.Root)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: and")
	}
	lits := []int{m.litOfRoot(p.Root)}
	clauseID, err := m.pf.AddClause(lits, []int{t1.ClauseID, t2.ClauseID, p.ClauseID})
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validating conjunction")
	}
	if err := m.pf.ProcessDeferred(); err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: and: flushing deferred deletions")
	}
	return m.Create(p.Root, clauseID), nil
}

// Validate upgrades a bare BDD r to a TBDD by proving tr.Root implies
// r (tbdd_validate).
func (m *Manager) Validate(r store.ID, tr TBDD) (TBDD, error) {
	if r == tr.Root {
		return m.AddRef(tr), nil
	}
	if m.pf == nil {
		return m.Create(r, Tautology), nil
	}

	p, err := m.ap.ImpTest(tr.Root, r)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validate")
	}
	if p.Root != store.True {
		return TBDD{}, errors.Errorf("tbdd: failed to prove implication N%d --> N%d", tr.Root, r)
	}
	clauseID, err := m.pf.AddClause([]int{m.litOfRoot(r)}, []int{p.ClauseID, tr.ClauseID})
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validate: asserting implied unit clause")
	}
	if err := m.pf.ProcessDeferred(); err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validate: flushing deferred deletions")
	}
	return m.Create(r, clauseID), nil
}

// ValidateWithAnd validates r from the conjunction of tl and tr without
// materializing the conjunction as its own TBDD first
// (tbdd_validate_with_and).
func (m *Manager) ValidateWithAnd(r store.ID, tl, tr TBDD) (TBDD, error) {
	if m.pf == nil {
		return m.Create(r, Tautology), nil
	}
	if m.IsTrue(tl) {
		return m.Validate(r, tr)
	}
	if m.IsTrue(tr) {
		return m.Validate(r, tl)
	}

	p, err := m.ap.AndImpTest(tl.Root, tr.Root, r)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validate_with_and")
	}
	if p.Root != store.True {
		return TBDD{}, errors.Errorf("tbdd: failed to prove implication N%d & N%d --> N%d", tl.Root, tr.Root, r)
	}
	clauseID, err := m.pf.AddClause([]int{m.litOfRoot(r)}, []int{tl.ClauseID, tr.ClauseID, p.ClauseID})
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validate_with_and: asserting implied unit clause")
	}
	if err := m.pf.ProcessDeferred(); err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: validate_with_and: flushing deferred deletions")
	}
	return m.Create(r, clauseID), nil
}

// Trust asserts r as trustworthy without proof, for DRAT mode only,
// where the checker itself must independently confirm it
// (tbdd_trust).
func (m *Manager) Trust(r store.ID) (TBDD, error) {
	if m.pf == nil {
		return m.Create(r, Tautology), nil
	}
	clauseID, err := m.pf.AddClause([]int{m.litOfRoot(r)}, nil)
	if err != nil {
		return TBDD{}, errors.Wrap(err, "tbdd: trust")
	}
	return m.Create(r, clauseID), nil
}

func (m *Manager) litOfRoot(id store.ID) int {
	switch id {
	case store.True:
		return m.pf.TrueVar()
	case store.False:
		return -m.pf.TrueVar()
	default:
		return m.s.XVar(id)
	}
}

// ValidateClause validates that clause is implied by tr, either
// directly by walking a path through tr's BDD (when one exists) or, if
// not, by first building an intermediate BDD for the clause and
// chaining through it (tbdd_validate_clause / test_validation_path /
// tbdd_validate_clause_path).
func (m *Manager) ValidateClause(lits []int, tr TBDD) (int, error) {
	if m.pf == nil {
		return Tautology, nil
	}
	clause, taut, err := proof.Clean(append([]int(nil), lits...))
	if err != nil {
		return 0, errors.Wrap(err, "tbdd: validate_clause: cleaning")
	}
	if taut {
		return Tautology, nil
	}

	if onPath(m.s, clause, tr.Root) {
		return m.validateClausePath(clause, tr)
	}

	cr, err := buildClauseBDD(m.s, clause)
	if err != nil {
		return 0, errors.Wrap(err, "tbdd: validate_clause: building intermediate BDD")
	}
	m.s.AddRef(cr)
	defer m.s.DelRef(cr)
	tcr, err := m.Validate(cr, tr)
	if err != nil {
		return 0, errors.Wrap(err, "tbdd: validate_clause: validating intermediate BDD")
	}
	defer m.DelRef(tcr)
	return m.validateClausePath(clause, tcr)
}

// onPath reports whether every variable clause mentions lies on a
// single root-to-False path through r's BDD, matching the falsifying
// assignment, the condition under which validateClausePath can cite
// r's own defining clauses directly instead of needing a fresh
// intermediate BDD.
func onPath(s *store.Store, clause []int, r store.ID) bool {
	for i := len(clause) - 1; i >= 0; i-- {
		lit := clause[i]
		level := int32(abs(lit)) - 1
		rl := s.Level(r)
		if rl > level {
			continue
		}
		if rl < level {
			return false
		}
		if lit < 0 {
			r = s.High(r)
		} else {
			r = s.Low(r)
		}
	}
	return r == store.False
}

func (m *Manager) validateClausePath(clause []int, tr TBDD) (int, error) {
	antecedents := []int{tr.ClauseID}
	r := tr.Root
	for i := len(clause) - 1; i >= 0; i-- {
		lit := clause[i]
		level := int32(abs(lit)) - 1
		rl := m.s.Level(r)
		if rl > level {
			continue
		}
		if rl < level {
			return 0, errors.New("tbdd: validate_clause: path diverged from clause")
		}
		var id int
		if lit < 0 {
			id = m.s.DClause(r) + 2 // HD
			r = m.s.High(r)
		} else {
			id = m.s.DClause(r) + 3 // LD
			r = m.s.Low(r)
		}
		if id != Tautology {
			antecedents = append(antecedents, id)
		}
	}
	id, err := m.pf.AddClause(clause, antecedents)
	if err != nil {
		return 0, errors.Wrap(err, "tbdd: validate_clause: asserting clause")
	}
	return id, nil
}

// FromXor builds the BDD representation of vars XOR'd together (phase
// 1) or XNOR'd (phase 0), and a proof that it is correct, by asserting
// one clause per falsifying assignment and conjoining them
// (TBDD_from_xor). Intended for DRAT mode, or small var counts in any
// mode; xorset.Sum provides the scalable construction used once the
// front-end has accumulated many XOR constraints.
func (m *Manager) FromXor(vars []int, phase int) (TBDD, error) {
	sorted := append([]int(nil), vars...)
	sort.Ints(sorted)
	n := len(sorted)
	result := m.Tautology()
	for bits := 0; bits < 1<<n; bits++ {
		if parity(bits) == phase {
			continue
		}
		lits := make([]int, n)
		for i, v := range sorted {
			if bits&(1<<i) != 0 {
				lits[i] = -v
			} else {
				lits[i] = v
			}
		}
		tc, err := m.FromClause(lits)
		if err != nil {
			return TBDD{}, errors.Wrap(err, "tbdd: from_xor")
		}
		if m.IsTrue(result) {
			result = tc
			continue
		}
		next, err := m.And(result, tc)
		if err != nil {
			return TBDD{}, errors.Wrap(err, "tbdd: from_xor: conjoining clause")
		}
		m.DelRef(tc)
		m.DelRef(result)
		result = next
	}
	return result, nil
}

func parity(w int) int {
	odd := 0
	for w > 0 {
		odd ^= w & 1
		w >>= 1
	}
	return odd
}

// AssertClause asserts clause with no antecedent proof, the DRAT path
// for a fact the checker must independently confirm (assert_clause).
func (m *Manager) AssertClause(lits []int) (int, error) {
	if m.pf == nil {
		return Tautology, nil
	}
	id, err := m.pf.AddClause(lits, nil)
	if err != nil {
		return 0, errors.Wrap(err, "tbdd: assert_clause")
	}
	return id, nil
}
