// Package proof implements C4, the proof writer: it emits clause
// additions and deletions in LRAT, DRAT, or FRAT, text or binary,
// tracks the shared clause-ID counter, and defers clause deletions
// until a top-level apply call has returned. Grounded on
// original_source/buddy/src/prover.c's generate_clause/delete_clauses/
// defer_delete_clause/process_deferred_deletions, translated from a
// process-singleton into a value the caller owns (see DESIGN.md).
package proof

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrProofFailed is the PROOF error kind: a RUP check failed, or a
// clause was otherwise malformed past what Clean tolerates.
var ErrProofFailed = errors.New("proof: RUP check or clause malformed")

// ErrSuppressed is returned by AddClause when addition is a no-op
// because the empty clause has already been written (further additions
// are suppressed once a proof reaches UNSAT).
var ErrSuppressed = errors.New("proof: addition suppressed after empty clause")

// Tautology is returned (with a nil error) by AddClause when the
// cleaned clause is a tautology and therefore need not be added.
const Tautology = -1

// Writer owns the proof output stream and all of its bookkeeping: the
// clause counter, the live-clause dictionary, the deferred-deletion
// queue, and the once-only empty-clause bookkeeping.
type Writer struct {
	out    *bufio.Writer
	closer io.Closer
	format Format
	binary bool

	varCounter    *int
	clauseCounter *int

	varOrder []int // level -> DIMACS variable number; nil means level+1
	trueVar  int

	live     map[int][]int // clause id -> literals, for delete replay / LRAT lookup
	deferred []int

	deletedCount int

	emptyClauseID int // -1 until the empty clause is produced
	frFinalized   bool

	log *logrus.Entry
}

// Option configures a Writer at construction.
type Option func(*Writer)

// WithVarOrder supplies the level->variable mapping; level i's BDD
// splits on DIMACS variable order[i]. Without this option level i maps
// to variable i+1.
func WithVarOrder(order []int) Option {
	return func(w *Writer) { w.varOrder = order }
}

// WithLogger attaches a logger to the Writer. The Writer keeps it but
// writes no log records; RUP-check failures reach callers as errors.
func WithLogger(log *logrus.Entry) Option {
	return func(w *Writer) {
		if log != nil {
			w.log = log
		}
	}
}

// New constructs a Writer over out, taking the same arguments as
// buddy's own setup routine: varCounter and clauseCounter are shared
// with the front-end and are advanced as the core allocates extension
// variables and clauses; inputClauses[i] is the literal slice of input
// clause i+1 (1-indexed, matching DIMACS numbering).
func New(out io.Writer, varCounter, clauseCounter *int, inputClauses [][]int, format Format, binary bool, opts ...Option) (*Writer, error) {
	w := &Writer{
		out:           bufio.NewWriter(out),
		format:        format,
		binary:        binary,
		varCounter:    varCounter,
		clauseCounter: clauseCounter,
		live:          make(map[int][]int, len(inputClauses)),
		emptyClauseID: -1,
		log:           logrus.NewEntry(logrus.StandardLogger()),
	}
	if c, ok := out.(io.Closer); ok {
		w.closer = c
	}
	for _, o := range opts {
		o(w)
	}

	for i, lits := range inputClauses {
		id := i + 1
		w.live[id] = lits
	}
	if *clauseCounter < len(inputClauses) {
		*clauseCounter = len(inputClauses)
	}

	w.trueVar = w.NextVar()
	if _, err := w.AddClause([]int{w.trueVar}, nil); err != nil {
		return nil, errors.Wrap(err, "proof.New: asserting reserved true variable")
	}
	return w, nil
}

// NextVar allocates and returns a fresh extension variable.
func (w *Writer) NextVar() int {
	*w.varCounter++
	return *w.varCounter
}

// TrueVar returns the reserved extension variable that is always true,
// used by the node store to give FALSE/TRUE terminals a literal in
// defining clauses.
func (w *Writer) TrueVar() int { return w.trueVar }

// VarOf returns the DIMACS variable number a BDD level splits on, per
// the WithVarOrder mapping (or level+1 if none was supplied). The apply
// package needs this to reconstruct a node's defining-clause literals
// from its level rather than refetching them from the live dictionary.
func (w *Writer) VarOf(level int32) int { return w.varOf(level) }

func (w *Writer) varOf(level int32) int {
	if w.varOrder != nil && int(level) < len(w.varOrder) {
		return w.varOrder[level]
	}
	return int(level) + 1
}

// DefiningClauses emits the four clauses encoding n's Shannon
// expansion: HU, LU, HD, LD in that order, matching prover.c's
// defining_clause numbering, where hLit and lLit are already-resolved
// literals for the high/low children
// (TrueVar()/-TrueVar() for terminals, the child's own extension
// variable otherwise). It returns HU's clause ID; the remaining three
// are consecutive.
func (w *Writer) DefiningClauses(level int32, n, hLit, lLit int) int {
	v := w.varOf(level)
	hu, _ := w.addAxiom([]int{n, -v, -hLit})
	w.addAxiom([]int{n, v, -lLit})
	w.addAxiom([]int{-n, -v, hLit})
	w.addAxiom([]int{-n, v, lLit})
	return hu
}

// addAxiom emits a clause that needs no RUP justification (the four
// defining clauses are definitionally true of a freshly allocated
// extension variable, not derived facts).
func (w *Writer) addAxiom(lits []int) (int, error) {
	return w.emit(lits, nil)
}

// AddClause cleans lits, and if it is not tautological, assigns it the
// next clause ID, records it as live, and emits it with hints as
// antecedents (ignored for DRAT). It returns Tautology (with a nil
// error) if the clause was tautological, and ErrSuppressed once the
// empty clause has already been produced.
func (w *Writer) AddClause(lits []int, hints []int) (int, error) {
	if w.emptyClauseID >= 0 {
		return 0, ErrSuppressed
	}
	return w.emit(lits, hints)
}

func (w *Writer) emit(lits []int, hints []int) (int, error) {
	cleaned, taut, err := Clean(lits)
	if err != nil {
		return 0, errors.Wrap(err, "proof.emit")
	}
	if taut {
		return Tautology, nil
	}

	id := *w.clauseCounter + 1
	*w.clauseCounter = id
	w.live[id] = cleaned

	switch w.format {
	case LRAT:
		err = w.writeLRATAdd(id, cleaned, hints)
	case DRAT:
		err = w.writeDRATAdd(cleaned)
	case FRAT:
		err = w.writeFRATAdd(id, cleaned, hints)
	}
	if err != nil {
		return 0, errors.Wrap(err, "proof.emit: write")
	}

	if len(cleaned) == 0 {
		w.emptyClauseID = id
	}
	return id, nil
}

// InputClause returns the literals of input clause id (1-indexed), or
// nil if id is out of range or has been deleted, mirroring
// get_input_clause.
func (w *Writer) InputClause(id int) []int {
	return w.live[id]
}

// EmptyClauseID returns the ID of the empty clause once produced, or -1.
func (w *Writer) EmptyClauseID() int { return w.emptyClauseID }

// DeferDeleteClauses appends ids to the deferred-deletion queue. They
// are not actually removed from the proof until ProcessDeferred is
// called, because a hint clause in use by an in-flight RUP check must
// not be deleted mid-derivation.
func (w *Writer) DeferDeleteClauses(ids ...int) {
	w.deferred = append(w.deferred, ids...)
}

// ProcessDeferred flushes the deferred-deletion queue as a single
// delete-clauses emission. apply invokes this at every top-level
// return; nested applies share the same queue so an inner apply's
// evictions aren't lost.
func (w *Writer) ProcessDeferred() error {
	if len(w.deferred) == 0 {
		return nil
	}
	ids := w.deferred
	w.deferred = nil
	return w.DeleteClauses(ids)
}

// DeleteClauses removes ids from the live dictionary and emits a
// deletion record. Unit clauses are never deleted in DRAT or FRAT (a
// checker may still need them), and the empty clause is never deleted
// in any format.
func (w *Writer) DeleteClauses(ids []int) error {
	var toDelete []int
	for _, id := range ids {
		if id == w.emptyClauseID {
			continue
		}
		lits, ok := w.live[id]
		if !ok {
			continue
		}
		if w.format != LRAT && len(lits) == 1 {
			continue // DRAT/FRAT never delete units
		}
		toDelete = append(toDelete, id)
	}
	if len(toDelete) == 0 {
		return nil
	}

	var err error
	switch w.format {
	case LRAT:
		err = w.writeLRATDelete(toDelete)
	case DRAT:
		err = w.writeDRATDelete(toDelete)
	case FRAT:
		err = w.writeFRATDelete(toDelete)
	}
	if err != nil {
		return errors.Wrap(err, "proof.DeleteClauses")
	}
	for _, id := range toDelete {
		delete(w.live, id)
	}
	w.deletedCount += len(toDelete)
	return nil
}

// DeletedCount returns the cumulative number of clauses this writer has
// emitted deletion records for, for internal/metrics to sample.
func (w *Writer) DeletedCount() int { return w.deletedCount }

// EmittedCount returns the cumulative number of clauses asserted so far,
// input clauses included (the shared clause counter this writer advances).
func (w *Writer) EmittedCount() int { return *w.clauseCounter }

// Finish flushes the output stream, emitting the FRAT finalization
// record for the empty clause exactly once if applicable.
func (w *Writer) Finish() error {
	if w.format == FRAT && w.emptyClauseID >= 0 && !w.frFinalized {
		if err := w.writeFRATFinalize(w.emptyClauseID); err != nil {
			return errors.Wrap(err, "proof.Finish")
		}
		w.frFinalized = true
	}
	if err := w.out.Flush(); err != nil {
		return errors.Wrap(err, "proof.Finish: flush")
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

func (w *Writer) writeInts(lits []int) error {
	if w.binary {
		for _, l := range lits {
			if err := encodeSigned(w.out, l); err != nil {
				return err
			}
		}
		return encodeSigned(w.out, 0)
	}
	for _, l := range lits {
		if _, err := fmt.Fprintf(w.out, "%d ", l); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w.out, "0")
	return err
}

func (w *Writer) newline() error {
	if w.binary {
		return nil
	}
	_, err := fmt.Fprint(w.out, "\n")
	return err
}

func (w *Writer) writeLRATAdd(id int, lits []int, hints []int) error {
	if w.binary {
		if err := writeTag(w.out, 'a'); err != nil {
			return err
		}
		if err := encodeSigned(w.out, id); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(w.out, "%d ", id); err != nil {
		return err
	}
	if err := w.writeInts(lits); err != nil {
		return err
	}
	if !w.binary {
		if _, err := fmt.Fprint(w.out, " "); err != nil {
			return err
		}
	}
	if err := w.writeInts(hints); err != nil {
		return err
	}
	return w.newline()
}

func (w *Writer) writeLRATDelete(ids []int) error {
	last := *w.clauseCounter
	if w.binary {
		if err := writeTag(w.out, 'd'); err != nil {
			return err
		}
		if err := encodeSigned(w.out, last); err != nil {
			return err
		}
		return w.writeInts(ids)
	}
	if _, err := fmt.Fprintf(w.out, "%d d ", last); err != nil {
		return err
	}
	if err := w.writeInts(ids); err != nil {
		return err
	}
	return w.newline()
}

func (w *Writer) writeDRATAdd(lits []int) error {
	if w.binary {
		if err := writeTag(w.out, 'a'); err != nil {
			return err
		}
	}
	if err := w.writeInts(lits); err != nil {
		return err
	}
	return w.newline()
}

func (w *Writer) writeDRATDelete(ids []int) error {
	if w.binary {
		if err := writeTag(w.out, 'd'); err != nil {
			return err
		}
		for _, id := range ids {
			if err := w.writeInts(w.live[id]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range ids {
		if _, err := fmt.Fprint(w.out, "d "); err != nil {
			return err
		}
		if err := w.writeInts(w.live[id]); err != nil {
			return err
		}
		if err := w.newline(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFRATAdd(id int, lits []int, hints []int) error {
	if w.binary {
		if err := writeTag(w.out, 'a'); err != nil {
			return err
		}
	} else if _, err := fmt.Fprint(w.out, "a "); err != nil {
		return err
	}
	if !w.binary {
		if _, err := fmt.Fprintf(w.out, "%d ", id); err != nil {
			return err
		}
	} else if err := encodeSigned(w.out, id); err != nil {
		return err
	}
	if err := w.writeInts(lits); err != nil {
		return err
	}
	if len(hints) > 0 {
		if !w.binary {
			if _, err := fmt.Fprint(w.out, " l "); err != nil {
				return err
			}
		} else if err := writeTag(w.out, 'l'); err != nil {
			return err
		}
		if err := w.writeInts(hints); err != nil {
			return err
		}
	}
	return w.newline()
}

func (w *Writer) writeFRATDelete(ids []int) error {
	for _, id := range ids {
		if w.binary {
			if err := writeTag(w.out, 'd'); err != nil {
				return err
			}
			if err := encodeSigned(w.out, id); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintf(w.out, "d %d ", id); err != nil {
			return err
		}
		if err := w.writeInts(w.live[id]); err != nil {
			return err
		}
		if err := w.newline(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFRATFinalize(id int) error {
	if w.binary {
		if err := writeTag(w.out, 'f'); err != nil {
			return err
		}
		if err := encodeSigned(w.out, id); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(w.out, "f %d ", id); err != nil {
		return err
	}
	if err := w.writeInts(nil); err != nil {
		return err
	}
	return w.newline()
}
