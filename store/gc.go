package store

// GC runs a mark-and-sweep collection: phase 1 marks every node
// reachable from a positive refcount, the GC save stack, or the
// operation cache's live entries; phase 2 frees everything unmarked,
// rebuilds the hash chains, and (in proof mode) defers deletion of each
// freed node's four defining clauses. It returns the number of nodes
// freed.
func (s *Store) GC() int {
	for i := range s.nodes {
		s.nodes[i].mark = false
	}

	for id := ID(2); int(id) < len(s.nodes); id++ {
		if s.nodes[id].inUse && s.nodes[id].refcount > 0 {
			s.mark(id)
		}
	}
	for _, id := range s.saveStack {
		s.mark(id)
	}
	if s.liveCache != nil {
		for _, id := range s.liveCache() {
			s.mark(id)
		}
	}

	var deferred []int
	freed := 0
	for id := ID(2); int(id) < len(s.nodes); id++ {
		n := &s.nodes[id]
		if !n.inUse || n.mark {
			continue
		}
		if s.proof != nil && n.dclause >= 0 {
			deferred = append(deferred, n.dclause, n.dclause+1, n.dclause+2, n.dclause+3)
		}
		*n = node{next: noLink, dclause: -1}
		s.free = append(s.free, id)
		freed++
	}

	s.rehash()
	if len(deferred) > 0 && s.proof != nil {
		s.proof.DeferDeleteClauses(deferred...)
	}
	if s.onGC != nil {
		s.onGC(freed)
	}
	s.log.WithField("freed", freed).Debug("gc complete")
	return freed
}
