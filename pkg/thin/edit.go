package thin

import (
	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// EdgeSet marks edges of one graph by id.
type EdgeSet struct {
	mask []bool
	n    int
}

// NewEdgeSet returns an empty set over a graph with size edges.
func NewEdgeSet(size int) *EdgeSet {
	return &EdgeSet{mask: make([]bool, size)}
}

// Add marks id and reports whether it was not marked before.
func (s *EdgeSet) Add(id rrgraph.EdgeID) bool {
	if s.mask[id] {
		return false
	}
	s.mask[id] = true
	s.n++
	return true
}

// AddAll marks every id.
func (s *EdgeSet) AddAll(ids []rrgraph.EdgeID) {
	for _, id := range ids {
		s.Add(id)
	}
}

// Has reports whether id is marked.
func (s *EdgeSet) Has(id rrgraph.EdgeID) bool { return s.mask[id] }

// Len returns the number of marked edges.
func (s *EdgeSet) Len() int { return s.n }

// Size returns the edge count of the graph the set belongs to.
func (s *EdgeSet) Size() int { return len(s.mask) }

// IDs returns the marked ids in increasing order.
func (s *EdgeSet) IDs() []rrgraph.EdgeID {
	ids := make([]rrgraph.EdgeID, 0, s.n)
	for i, marked := range s.mask {
		if marked {
			ids = append(ids, rrgraph.EdgeID(i))
		}
	}
	return ids
}

// Remove returns a graph holding the edges of g not in set, in their
// original order. The node table is shared with g.
func Remove(g *rrgraph.Graph, set *EdgeSet) (*rrgraph.Graph, error) {
	if set.Size() != g.EdgeCount() {
		return nil, errs.New(errs.ErrCodeInternal,
			"edge set covers %d edges, graph has %d", set.Size(), g.EdgeCount())
	}
	keep := make([]rrgraph.EdgeID, 0, g.EdgeCount()-set.Len())
	for i, marked := range set.mask {
		if !marked {
			keep = append(keep, rrgraph.EdgeID(i))
		}
	}
	return g.Derive(keep), nil
}
