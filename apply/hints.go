package apply

// hintKind names the up-to-nine candidate antecedent clauses
// justify_apply assembles for one recursive step, ported from
// prover.c's jtype_t enum. Not every kind applies to every call: a
// kind with no defining clause at this split level is left at
// tautology and skipped.
type hintKind int

const (
	hintResHU hintKind = iota
	hintArg1HD
	hintArg2HD
	hintOPH
	hintResLU
	hintArg1LD
	hintArg2LD
	hintOPL
	hintExtra
)

const hintCount = int(hintExtra) // 8 base hints; hintExtra is the 9th, split-proof-only

var orderHL = []hintKind{hintResHU, hintArg1HD, hintArg2HD, hintOPH, hintResLU, hintArg1LD, hintArg2LD, hintOPL}
var orderLH = []hintKind{hintResLU, hintArg1LD, hintArg2LD, hintOPL, hintResHU, hintArg1HD, hintArg2HD, hintOPH}
var orderH = []hintKind{hintResHU, hintArg1HD, hintArg2HD, hintOPH}
var orderL = []hintKind{hintExtra, hintResLU, hintArg1LD, hintArg2LD, hintOPL}

// tautologyID marks a hint slot with no candidate clause at this step.
const tautologyID = -1

// hintSet holds the (id, clause) pair for every hint kind during one
// justifyApply call, plus which ones rupCheck actually consumed.
type hintSet struct {
	id     [hintExtra + 1]int
	clause [hintExtra + 1][]int
	used   [hintExtra + 1]bool
}

func newHintSet() *hintSet {
	h := &hintSet{}
	for i := range h.id {
		h.id[i] = tautologyID
	}
	return h
}

func (h *hintSet) set(k hintKind, id int, clause []int) {
	h.id[k] = id
	h.clause[k] = clause
}

// rupCheck attempts to derive a conflict from target's negation by
// forward unit-propagating through the hint clauses named in order (the
// first limit of them), exactly mirroring prover.c's rup_check: literals
// already falsified by a propagated unit are dropped from a working
// copy of the clause, a clause that shrinks to empty signals a
// conflict, and a clause that shrinks to exactly one literal becomes a
// new unit. Encountering a hint clause already satisfied by a current
// unit is treated as a failure of this attempt, not a skip: it means
// the schema chosen for this order can't complete the chain.
func rupCheck(target []int, order []hintKind, limit int, h *hintSet) bool {
	units := make([]int, 0, len(target)+hintCount)
	for _, lit := range target {
		units = append(units, -lit)
	}
	for i := 0; i < limit; i++ {
		k := order[i]
		if h.id[k] == tautologyID {
			continue
		}
		cclause := append([]int(nil), h.clause[k]...)
		li := 0
		for li < len(cclause) {
			lit := cclause[li]
			found := false
			conflictUnit := false
			for _, u := range units {
				if lit == -u {
					found = true
					break
				}
				if lit == u {
					conflictUnit = true
					break
				}
			}
			if conflictUnit {
				return false
			}
			if found {
				if len(cclause) == 1 {
					h.used[k] = true
					return true
				}
				cclause[li] = cclause[len(cclause)-1]
				cclause = cclause[:len(cclause)-1]
				continue
			}
			li++
		}
		if len(cclause) == 1 {
			units = append(units, cclause[0])
			h.used[k] = true
		}
	}
	return false
}
