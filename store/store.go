// Package store implements the shared hash-consed BDD node table: C2 of
// the engine. It owns node allocation, reference counting, garbage
// collection, and dynamic resizing, grounded on buddy's kernel.c/h
// (bddnode, bdd_makenode, bdd_resize, bdd_gbc) translated into Go's
// slice-of-structs idiom instead of a raw C array of bit-packed structs.
package store

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ID identifies a node. 0 and 1 are the FALSE and TRUE terminals.
type ID int32

const (
	False ID = 0
	True  ID = 1
)

// noLink marks the end of a hash-bucket or free-list chain. It cannot
// collide with a real ID since those are always >= 0.
const noLink ID = -1

// MaxVar is the largest representable variable level: a 21-bit
// non-negative integer, unchanged from buddy's MAXVAR.
const MaxVar = 1<<21 - 1

// MaxRef is the saturating reference count ceiling. Once a node's
// refcount reaches MaxRef it is treated as permanent until an explicit
// collection clears it; this keeps the per-node record a fixed, small
// size and is load-bearing for long chains of shared subexpressions
// (see kernel.h's MAXREF).
const MaxRef = 1023

// node is one entry of the flat node table.
type node struct {
	level    int32
	low      ID
	high     ID
	refcount uint16
	mark     bool
	next     ID // hash chain link, noLink if none
	inUse    bool

	// Proof-mode-only fields. xvar is 0 and dclause is -1 when the
	// store is not in proof mode.
	xvar    int
	dclause int
}

// ProofSink is the subset of the proof writer's behavior the node store
// needs: allocating extension variables, naming the reserved
// always-true variable so terminal children have a literal, and
// emitting/deferring deletion of the four defining clauses of a node.
// *proof.Writer satisfies this.
type ProofSink interface {
	NextVar() int
	TrueVar() int
	DefiningClauses(level int32, n, hLit, lLit int) (firstID int)
	DeferDeleteClauses(ids ...int)
}

// Store is the shared node table plus the state GC needs to find
// everything still reachable: refcounts, the GC reference stack pushed
// by in-flight apply recursions, and (read-only, from the store's point
// of view) the operation cache's live entries.
type Store struct {
	nodes   []node
	buckets []ID
	free    []ID

	maxNodes     int
	growthFactor float64
	gcThreshold  float64 // free fraction a GC pass must leave before the table grows

	saveStack []ID // GC reference stack; apply pushes intermediates here
	liveCache func() []ID

	proof ProofSink // nil outside proof mode

	log *logrus.Entry

	// Metrics hooks, set by engine.Engine; nil-safe.
	onAlloc  func()
	onGC     func(freed int)
	onResize func(newSize int)
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithMaxNodes bounds the table's growth. MakeNode fails with
// ErrNodeNum once this is reached and GC cannot free enough slots.
func WithMaxNodes(n int) Option {
	return func(s *Store) { s.maxNodes = n }
}

// WithGrowthFactor sets the multiplier used when the table is resized.
func WithGrowthFactor(f float64) Option {
	return func(s *Store) {
		if f > 1 {
			s.growthFactor = f
		}
	}
}

// WithGCThreshold sets the fraction (0,1) of slots that must be free
// after the GC pass allocation runs when the free list is empty; if
// fewer are free, allocation also grows the table.
func WithGCThreshold(f float64) Option {
	return func(s *Store) {
		if f > 0 && f < 1 {
			s.gcThreshold = f
		}
	}
}

// WithProofSink enables proof mode: every newly allocated node emits its
// four defining clauses through sink, and every collected node has them
// deferred for deletion.
func WithProofSink(sink ProofSink) Option {
	return func(s *Store) { s.proof = sink }
}

// WithLiveCacheIDs registers a callback returning every node ID
// currently held live by the operation cache, so GC's mark phase can
// treat cache entries as roots without the store importing opcache.
func WithLiveCacheIDs(f func() []ID) Option {
	return func(s *Store) { s.liveCache = f }
}

// WithLogger attaches a logger used for GC/resize diagnostics, which are
// logged at Debug level. Defaults to logrus's standard logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetricsHooks wires node-allocation, GC and resize events to the
// given callbacks; any of the three may be nil. engine.Engine uses this
// to feed internal/metrics' Prometheus collectors without this package
// importing them.
func WithMetricsHooks(onAlloc func(), onGC func(freed int), onResize func(newSize int)) Option {
	return func(s *Store) {
		s.onAlloc = onAlloc
		s.onGC = onGC
		s.onResize = onResize
	}
}

// New returns a Store with capacity initial, terminals preinstalled at
// IDs 0 and 1.
func New(initial int, opts ...Option) *Store {
	if initial < 2 {
		initial = 2
	}
	s := &Store{
		nodes:        make([]node, initial),
		buckets:      make([]ID, initial),
		maxNodes:     1 << 24,
		growthFactor: 2,
		gcThreshold:  0.25,
		log:          logrus.NewEntry(logrus.StandardLogger()),
	}
	for i := range s.buckets {
		s.buckets[i] = noLink
	}
	for _, o := range opts {
		o(s)
	}
	// Terminals occupy slots 0 and 1 and are never freed.
	s.nodes[False].level = MaxVar + 1
	s.nodes[False].next = noLink
	s.nodes[False].inUse = true
	s.nodes[True].level = MaxVar + 1
	s.nodes[True].next = noLink
	s.nodes[True].inUse = true
	for i := 2; i < initial; i++ {
		s.nodes[i].next = noLink
		s.free = append(s.free, ID(i))
	}
	return s
}

// Level returns the variable level of id, or MaxVar+1 for a terminal.
func (s *Store) Level(id ID) int32 { return s.nodes[id].level }

// Low returns the low (negative-cofactor) child of id.
func (s *Store) Low(id ID) ID { return s.nodes[id].low }

// High returns the high (positive-cofactor) child of id.
func (s *Store) High(id ID) ID { return s.nodes[id].high }

// XVar returns the extension variable naming id's function in the
// proof, or 0 outside proof mode or for a terminal.
func (s *Store) XVar(id ID) int { return s.nodes[id].xvar }

// DClause returns the ID of the first of id's four defining clauses, or
// -1 if the store is not in proof mode.
func (s *Store) DClause(id ID) int {
	if s.proof == nil {
		return -1
	}
	return s.nodes[id].dclause
}

// litOf resolves id to the literal a defining clause should use for it:
// the reserved true variable (or its negation) for a terminal, id's own
// extension variable otherwise. Terminals have no xvar of their own, so
// the proof writer's reserved trueVar stands in for them.
func (s *Store) litOf(id ID, trueVar int) int {
	switch id {
	case True:
		return trueVar
	case False:
		return -trueVar
	default:
		return s.nodes[id].xvar
	}
}

// IsTerminal reports whether id is False or True.
func (s *Store) IsTerminal(id ID) bool { return id == False || id == True }

// valid reports whether id refers to a live slot (terminal or allocated
// interior node), guarding against ErrIllBDD conditions.
func (s *Store) valid(id ID) bool {
	if s.IsTerminal(id) {
		return true
	}
	return int(id) >= 2 && int(id) < len(s.nodes) && s.nodes[id].inUse
}

// NumNodes returns the table's current capacity.
func (s *Store) NumNodes() int { return len(s.nodes) }

// Live returns the number of allocated (non-free, non-terminal) nodes.
func (s *Store) Live() int {
	return len(s.nodes) - len(s.free) - 2
}

func hashTriple(level int32, low, high ID) uint64 {
	// Cantor pairing applied twice, exactly as kernel.h's PAIR/TRIPLE
	// macros combine (level, low, high) into one hash.
	pair := func(a, b uint64) uint64 { return (a+b)*(a+b+1)/2 + a }
	return pair(uint64(uint32(level)), pair(uint64(uint32(low)), uint64(uint32(high))))
}

func (s *Store) bucketOf(level int32, low, high ID) int {
	return int(hashTriple(level, low, high) % uint64(len(s.buckets)))
}

// MakeNode returns the hash-consed node for (level, low, high),
// allocating a new slot if none exists. If low == high, the reduction
// rule collapses to low with no allocation (invariant I3).
func (s *Store) MakeNode(level int32, low, high ID) (ID, error) {
	if level < 0 || level > MaxVar {
		return 0, ErrVar
	}
	if !s.valid(low) || !s.valid(high) {
		return 0, ErrIllBDD
	}
	if low == high {
		return low, nil
	}
	if s.Level(low) <= level || s.Level(high) <= level {
		return 0, ErrIllBDD
	}
	b := s.bucketOf(level, low, high)
	for cur := s.buckets[b]; cur != noLink; cur = s.nodes[cur].next {
		n := &s.nodes[cur]
		if n.level == level && n.low == low && n.high == high {
			return cur, nil
		}
	}
	return s.allocate(level, low, high)
}

// allocate installs a brand new node for (level, low, high) into a free
// slot. When the free list is empty it runs GC first, and grows the
// table if that pass left fewer than gcThreshold of the slots free.
func (s *Store) allocate(level int32, low, high ID) (ID, error) {
	if len(s.free) == 0 {
		s.GC()
		if s.freeFraction() < s.gcThreshold {
			if err := s.grow(); err != nil && len(s.free) == 0 {
				return 0, err
			}
		}
	}
	if len(s.free) == 0 {
		return 0, errors.Wrap(ErrNodeNum, "make_node")
	}

	id := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	n := &s.nodes[id]
	*n = node{level: level, low: low, high: high, dclause: -1, inUse: true}

	b := s.bucketOf(level, low, high)
	n.next = s.buckets[b]
	s.buckets[b] = id

	if s.proof != nil {
		n.xvar = s.proof.NextVar()
		hLit := s.litOf(high, s.proof.TrueVar())
		lLit := s.litOf(low, s.proof.TrueVar())
		n.dclause = s.proof.DefiningClauses(level, n.xvar, hLit, lLit)
	}
	if s.onAlloc != nil {
		s.onAlloc()
	}
	return id, nil
}

func (s *Store) freeFraction() float64 {
	if len(s.nodes) == 0 {
		return 0
	}
	return float64(len(s.free)) / float64(len(s.nodes))
}

func (s *Store) grow() error {
	newSize := int(float64(len(s.nodes)) * s.growthFactor)
	if newSize <= len(s.nodes) {
		newSize = len(s.nodes) + 1
	}
	if newSize > s.maxNodes {
		newSize = s.maxNodes
	}
	if newSize <= len(s.nodes) {
		return errors.Wrap(ErrNodeNum, "grow: at max_nodes")
	}

	grown := make([]node, newSize)
	copy(grown, s.nodes)
	for i := len(s.nodes); i < newSize; i++ {
		grown[i].next = noLink
		s.free = append(s.free, ID(i))
	}
	s.nodes = grown
	s.rehash()
	if s.onResize != nil {
		s.onResize(newSize)
	}
	s.log.WithField("new_size", newSize).Debug("store resized")
	return nil
}

// rehash rebuilds the bucket chains from scratch over the current node
// table, used after resize (table size changed) and after GC (node set
// changed).
func (s *Store) rehash() {
	s.buckets = make([]ID, len(s.nodes))
	for i := range s.buckets {
		s.buckets[i] = noLink
	}
	for id := ID(2); int(id) < len(s.nodes); id++ {
		n := &s.nodes[id]
		if !n.inUse {
			n.next = noLink
			continue
		}
		b := s.bucketOf(n.level, n.low, n.high)
		n.next = s.buckets[b]
		s.buckets[b] = id
	}
}

// AddRef increments id's reference count, saturating at MaxRef.
func (s *Store) AddRef(id ID) {
	if s.IsTerminal(id) {
		return
	}
	n := &s.nodes[id]
	if n.refcount < MaxRef {
		n.refcount++
	}
}

// DelRef decrements id's reference count. A node at MaxRef is
// considered permanently referenced and is never decremented, matching
// buddy's DECREF semantics.
func (s *Store) DelRef(id ID) {
	if s.IsTerminal(id) {
		return
	}
	n := &s.nodes[id]
	if n.refcount != MaxRef && n.refcount > 0 {
		n.refcount--
	}
}

// RefCount returns id's current reference count.
func (s *Store) RefCount(id ID) int {
	if s.IsTerminal(id) {
		return MaxRef
	}
	return int(s.nodes[id].refcount)
}

// Mark returns the current depth of the GC save stack without pushing
// anything, for callers that want an Unwind point bracketing a whole
// top-level recursion rather than one more PushSave/Unwind pair.
func (s *Store) Mark() int { return len(s.saveStack) }

// PushSave pushes id onto the GC save stack, protecting it (and its
// descendants, via the mark phase during GC) from collection while an
// apply recursion is in flight. Returns the stack depth before the
// push, for use with Unwind.
func (s *Store) PushSave(id ID) int {
	mark := len(s.saveStack)
	s.saveStack = append(s.saveStack, id)
	return mark
}

// Unwind resets the save stack to a depth previously returned by
// PushSave, the way apply resets its stack pointer on every top-level
// call.
func (s *Store) Unwind(mark int) {
	s.saveStack = s.saveStack[:mark]
}

func (s *Store) mark(id ID) {
	if s.IsTerminal(id) {
		return
	}
	n := &s.nodes[id]
	if n.mark {
		return
	}
	n.mark = true
	s.mark(n.low)
	s.mark(n.high)
}
