// Package opcache implements the direct-mapped operation cache: C3 of
// the engine. It memoizes recursive apply results keyed on (a, b, c,
// op) and, in proof mode, the clause ID that justifies each entry.
// Collisions silently evict. This is a performance hint, not an index
// of live facts, and deliberately never grows a chain, following
// kernel.h's BddCache.
package opcache

import "github.com/go-air/tbdd/store"

// Op identifies which apply-family operation produced a cache entry.
type Op uint8

const (
	OpAnd Op = iota
	OpImpTest
	OpAndImpTest
	OpExistQuant
)

// Entry is one memoized result. ClauseID is only meaningful in proof
// mode; it names the clause that justifies Result given A, B, C and Op.
type Entry struct {
	A, B, C  store.ID
	Op       Op
	Result   store.ID
	ClauseID int
	valid    bool
}

// Deleter is invoked with the clause ID of an entry being evicted or
// cleared, so the proof writer can defer its deletion. It is only
// called when the evicted entry carried a real clause (ClauseID >= 0).
type Deleter func(clauseID int)

// Cache is a fixed-size direct-mapped table: slot = hash(a,b,c,op) mod
// len(table). A miss overwrites whatever was in the slot; proof mode
// routes the victim's clause ID to onEvict before doing so.
type Cache struct {
	table   []Entry
	onEvict Deleter

	hits   int64
	misses int64
}

// New returns a Cache sized to the smallest prime >= requested, so that
// colliding (a,b,c) triples spread across slots instead of aliasing on
// common strides (mirrors bdd_prime_gte feeding BddCache_init).
func New(requested int) *Cache {
	if requested < 1 {
		requested = 1
	}
	return &Cache{table: make([]Entry, PrimeGTE(requested))}
}

// SetEvictHandler installs the callback used to report a victim entry's
// clause ID on overwrite or Reset. Nil disables the hook.
func (c *Cache) SetEvictHandler(d Deleter) { c.onEvict = d }

func (c *Cache) hash(a, b, cc store.ID, op Op) uint64 {
	// Same triple-hash used by the node store, extended with the op
	// code so AND and IMPTST entries over the same operands don't
	// alias each other.
	pair := func(x, y uint64) uint64 { return (x+y)*(x+y+1)/2 + x }
	h := pair(uint64(uint32(a)), pair(uint64(uint32(b)), uint64(uint32(cc))))
	return pair(h, uint64(op))
}

func (c *Cache) slot(a, b, cc store.ID, op Op) int {
	return int(c.hash(a, b, cc, op) % uint64(len(c.table)))
}

// Lookup returns the entry stored for (a,b,c,op) and whether it was a
// hit. A slot whose key doesn't match the requested one is reported as
// a miss even if it holds some other live entry.
func (c *Cache) Lookup(a, b, cc store.ID, op Op) (Entry, bool) {
	e := &c.table[c.slot(a, b, cc, op)]
	if !e.valid || e.A != a || e.B != b || e.C != cc || e.Op != op {
		c.misses++
		return Entry{}, false
	}
	c.hits++
	return *e, true
}

// Stats returns the running count of Lookup hits and misses since
// construction (or the last ResetStats), for internal/metrics to sample.
func (c *Cache) Stats() (hits, misses int64) { return c.hits, c.misses }

// ResetStats zeroes the hit/miss counters without touching cache
// contents.
func (c *Cache) ResetStats() { c.hits, c.misses = 0, 0 }

// Insert overwrites the slot for (a,b,c,op) with result/clauseID. If
// the slot held a different live entry, its clause is reported to the
// evict handler before being overwritten.
func (c *Cache) Insert(a, b, cc store.ID, op Op, result store.ID, clauseID int) {
	idx := c.slot(a, b, cc, op)
	e := &c.table[idx]
	if e.valid && (e.A != a || e.B != b || e.C != cc || e.Op != op) && c.onEvict != nil && e.ClauseID >= 0 {
		c.onEvict(e.ClauseID)
	}
	*e = Entry{A: a, B: b, C: cc, Op: op, Result: result, ClauseID: clauseID, valid: true}
}

// Reset clears every slot, deferring deletion of every still-live
// entry's clause first.
func (c *Cache) Reset() {
	if c.onEvict != nil {
		for i := range c.table {
			if c.table[i].valid && c.table[i].ClauseID >= 0 {
				c.onEvict(c.table[i].ClauseID)
			}
		}
	}
	for i := range c.table {
		c.table[i] = Entry{}
	}
}

// Resize rebuilds the table at a new prime size, clearing all existing
// entries the same way Reset does.
func (c *Cache) Resize(requested int) {
	c.Reset()
	c.table = make([]Entry, PrimeGTE(requested))
}

// Size returns the number of slots in the table.
func (c *Cache) Size() int { return len(c.table) }

// LiveIDs returns every node ID referenced (as key operand or result)
// by a currently valid entry, deduplicated. The store's GC uses this to
// keep cache-referenced nodes alive without the store depending on the
// opcache package.
func (c *Cache) LiveIDs() []store.ID {
	seen := make(map[store.ID]struct{})
	var out []store.ID
	add := func(id store.ID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, e := range c.table {
		if !e.valid {
			continue
		}
		add(e.A)
		add(e.B)
		if e.C >= 0 {
			add(e.C)
		}
		add(e.Result)
	}
	return out
}
