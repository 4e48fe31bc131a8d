package thin

import "github.com/matzehuels/rrthin/pkg/rrgraph"

// SelectTiles marks Count(len(tile), rate) edges of every tile in idx.
// Tiles are sampled in layer, x, y order so a given seed always selects
// the same edges.
func SelectTiles(g *rrgraph.Graph, idx *SpatialIndex, s *Sampler, rate float64) *EdgeSet {
	set := NewEdgeSet(g.EdgeCount())
	for _, tile := range idx.Tiles() {
		set.AddAll(s.Sample(tile.Edges, rate))
	}
	return set
}

// FanIndex holds the fan-in and fan-out of the nodes touched by inter-die
// edges. Other nodes are not indexed.
type FanIndex struct {
	in  map[int][]rrgraph.EdgeID
	out map[int][]rrgraph.EdgeID
}

// NewFanIndex collects, for every node in nodes, all edges of g whose sink
// (fan-in) or source (fan-out) is that node.
func NewFanIndex(g *rrgraph.Graph, nodes []int) *FanIndex {
	f := &FanIndex{
		in:  make(map[int][]rrgraph.EdgeID, len(nodes)),
		out: make(map[int][]rrgraph.EdgeID, len(nodes)),
	}
	for _, id := range nodes {
		f.in[id] = nil
		f.out[id] = nil
	}
	for i, e := range g.Edges() {
		id := rrgraph.EdgeID(i)
		if list, ok := f.in[e.Sink]; ok {
			f.in[e.Sink] = append(list, id)
		}
		if list, ok := f.out[e.Src]; ok {
			f.out[e.Src] = append(list, id)
		}
	}
	return f
}

// In returns the edges whose sink is node.
func (f *FanIndex) In(node int) []rrgraph.EdgeID { return f.in[node] }

// Out returns the edges whose source is node.
func (f *FanIndex) Out(node int) []rrgraph.EdgeID { return f.out[node] }

// Nodes returns the number of indexed nodes.
func (f *FanIndex) Nodes() int { return len(f.in) }

// SelectMux marks edges in the switch groups around every inter-die edge:
// Count(|In(src)|, rate) of the fan-in of each inter-die source node and
// Count(|Out(sink)|, rate) of the fan-out of each inter-die sink node.
// Each node's group is sampled once, however many inter-die edges touch it.
// Groups are visited in tile order, then edge order.
func SelectMux(g *rrgraph.Graph, idx *SpatialIndex, fan *FanIndex, s *Sampler, rate float64) *EdgeSet {
	set := NewEdgeSet(g.EdgeCount())
	srcDone := make(map[int]bool)
	sinkDone := make(map[int]bool)
	for _, tile := range idx.Tiles() {
		for _, id := range tile.Edges {
			e := g.Edge(id)
			if !srcDone[e.Src] {
				srcDone[e.Src] = true
				set.AddAll(s.Sample(fan.In(e.Src), rate))
			}
			if !sinkDone[e.Sink] {
				sinkDone[e.Sink] = true
				set.AddAll(s.Sample(fan.Out(e.Sink), rate))
			}
		}
	}
	return set
}
