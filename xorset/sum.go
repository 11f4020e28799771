package xorset

import "github.com/go-air/tbdd/tbdd"
import "github.com/go-air/tbdd/store"

// defaultSeed seeds every graph-summation/Gauss-Jordan tie-breaker the
// same way unless a caller overrides it, matching DEFAULT_SEED.
const defaultSeed = 123456

// externalPenalty is added to a pivot's cost when its variable is not
// internal, so internal variables are always preferred pivots
// (EXTERNAL_PENALTY).
const externalPenalty = 1 << 30

// sequencer is a seeded Lehmer (multiplicative) congruential generator,
// used both to randomize pivot/edge selection order and to manufacture
// unique low-order bits that break cost ties deterministically
// (buddy's Sequencer).
type sequencer struct {
	seed uint64
}

const (
	seqMult = 48271
	seqMod  = 2147483647
)

func newSequencer(seed uint64) *sequencer {
	sq := &sequencer{seed: seed}
	sq.setSeed(seed)
	return sq
}

func (sq *sequencer) setSeed(seed uint64) {
	if seed == 0 {
		seed = 1
	}
	sq.seed = seed
	sq.next()
	sq.next()
}

func (sq *sequencer) next() uint32 {
	sq.seed = (sq.seed * seqMult) % seqMod
	return uint32(sq.seed)
}

// pack combines a cost in the upper 32 bits with a tie-breaking value in
// the lower 32, so costs compare correctly as plain int64s (pack).
func pack(upper, lower int) int64 { return int64(upper)<<32 | int64(uint32(lower)) }

func orderedPack(x1, x2 int) int64 {
	if x1 < x2 {
		return pack(x1, x2)
	}
	return pack(x2, x1)
}

// xoverlap reports whether two constraints share at least one variable.
func xoverlap(c1, c2 *Constraint) bool {
	i, j := 0, 0
	for i < len(c1.Vars) && j < len(c2.Vars) {
		v1, v2 := c1.Vars[i], c2.Vars[j]
		switch {
		case v1 < v2:
			i++
		case v2 < v1:
			j++
		default:
			return true
		}
	}
	return false
}

// xcost is the number of nonzero coefficients the sum of c1 and c2 would
// have, packed with lower as a tie-breaker (xcost).
func xcost(c1, c2 *Constraint, lower int) int64 {
	i, j := 0, 0
	upper := 0
	for i < len(c1.Vars) && j < len(c2.Vars) {
		v1, v2 := c1.Vars[i], c2.Vars[j]
		switch {
		case v1 < v2:
			upper++
			i++
		case v2 < v1:
			upper++
			j++
		default:
			i++
			j++
		}
	}
	upper += len(c1.Vars) - i
	upper += len(c2.Vars) - j
	return pack(upper, lower)
}

type sgraphEdge struct {
	node1, node2 int
	cost         int64
}

// sumGraph implements the min-cost contraction heuristic for summing
// many XOR constraints: nodes are the remaining constraints, an edge
// joins two nodes sharing a variable, and each step contracts the
// cheapest edge (the one whose sum has fewest nonzero coefficients)
// until no edges remain (sum_graph).
type sumGraph struct {
	m         *tbdd.Manager
	s         *store.Store
	nodes     []*Constraint // nil once consumed
	neighbors []map[int]bool
	edges     map[int64]*sgraphEdge // cost -> edge
	edgeMap   map[int64]*sgraphEdge // ordered pack(n1,n2) -> edge
	seq       *sequencer
}

func newSumGraph(m *tbdd.Manager, s *store.Store, cs []*Constraint, seed uint64) *sumGraph {
	g := &sumGraph{
		m:         m,
		s:         s,
		nodes:     append([]*Constraint(nil), cs...),
		neighbors: make([]map[int]bool, len(cs)),
		edges:     make(map[int64]*sgraphEdge),
		edgeMap:   make(map[int64]*sgraphEdge),
		seq:       newSequencer(seed),
	}
	for i := range g.neighbors {
		g.neighbors[i] = make(map[int]bool)
	}
	imap := make(map[int][]int) // variable -> node indices seen so far
	for n1, c := range cs {
		for _, v := range c.Vars {
			for _, n2 := range imap[v] {
				if _, ok := g.edgeMap[orderedPack(n1, n2)]; !ok {
					g.addEdge(n1, n2)
				}
			}
			imap[v] = append(imap[v], n1)
		}
	}
	return g
}

func (g *sumGraph) newLower() int { return int(g.seq.next()) }

func (g *sumGraph) addEdge(n1, n2 int) {
	if n1 > n2 {
		n1, n2 = n2, n1
	}
	cost := xcost(g.nodes[n1], g.nodes[n2], g.newLower())
	e := &sgraphEdge{node1: n1, node2: n2, cost: cost}
	g.edges[cost] = e
	g.edgeMap[pack(n1, n2)] = e
	g.neighbors[n1][n2] = true
	g.neighbors[n2][n1] = true
}

func (g *sumGraph) removeEdge(e *sgraphEdge) {
	delete(g.edges, e.cost)
	delete(g.edgeMap, pack(e.node1, e.node2))
	delete(g.neighbors[e.node1], e.node2)
	delete(g.neighbors[e.node2], e.node1)
}

func (g *sumGraph) minEdge() *sgraphEdge {
	var best *sgraphEdge
	for cost, e := range g.edges {
		if best == nil || cost < best.cost {
			best = e
		}
	}
	return best
}

func (g *sumGraph) contractEdge(de *sgraphEdge) {
	n1, n2 := de.node1, de.node2
	newNeighbors := make(map[int]bool)
	var dedges []*sgraphEdge
	for nn1 := range g.neighbors[n1] {
		if nn1 == n2 {
			continue
		}
		dedges = append(dedges, g.edgeMap[orderedPack(n1, nn1)])
		if xoverlap(g.nodes[n1], g.nodes[nn1]) {
			newNeighbors[nn1] = true
		}
	}
	for nn2 := range g.neighbors[n2] {
		if nn2 == n1 {
			continue
		}
		dedges = append(dedges, g.edgeMap[orderedPack(n2, nn2)])
		if newNeighbors[nn2] {
			continue
		}
		if xoverlap(g.nodes[n1], g.nodes[nn2]) {
			newNeighbors[nn2] = true
		}
	}
	for _, e := range dedges {
		g.removeEdge(e)
	}
	g.neighbors[n1] = make(map[int]bool)
	g.neighbors[n2] = make(map[int]bool)
	for nn1 := range newNeighbors {
		g.addEdge(n1, nn1)
	}
}

// getSum repeatedly contracts the cheapest edge, then sums whatever
// disconnected components remain (one node each) into a single result
// (sum_graph::get_sum).
func (g *sumGraph) getSum() (*Constraint, error) {
	for len(g.edges) > 0 {
		e := g.minEdge()
		g.removeEdge(e)
		n1, n2 := e.node1, e.node2
		xc, err := Plus(g.m, g.s, g.nodes[n1], g.nodes[n2])
		if err != nil {
			return nil, err
		}
		g.nodes[n2] = nil
		if xc.IsDegenerate() {
			g.nodes[n1] = nil
			continue
		}
		g.nodes[n1] = xc
		g.contractEdge(e)
	}
	sum := Tautology(g.m)
	for _, c := range g.nodes {
		if c == nil {
			continue
		}
		next, err := Plus(g.m, g.s, sum, c)
		if err != nil {
			return nil, err
		}
		sum = next
	}
	return sum, nil
}

// sumListLinear folds constraints left to right, the cheap path for
// small lists (xor_sum_list_linear).
func sumListLinear(m *tbdd.Manager, s *store.Store, cs []*Constraint) (*Constraint, error) {
	if len(cs) == 0 {
		return Tautology(m), nil
	}
	sum := cs[0]
	for _, c := range cs[1:] {
		next, err := Plus(m, s, sum, c)
		if err != nil {
			return nil, err
		}
		sum = next
	}
	return sum, nil
}

// sumList dispatches to the linear fold for four or fewer constraints,
// or the min-cost graph contraction otherwise (trustbdd::xor_sum_list).
func sumList(m *tbdd.Manager, s *store.Store, cs []*Constraint, seed uint64) (*Constraint, error) {
	if len(cs) <= 4 {
		return sumListLinear(m, s, cs)
	}
	g := newSumGraph(m, s, cs, seed)
	return g.getSum()
}
