package thin

import (
	"slices"

	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// Tile is a non-empty spatial bucket.
type Tile struct {
	Key   rrgraph.Location
	Edges []rrgraph.EdgeID
}

// SpatialIndex buckets the inter-die edges of a graph by source tile.
// Buckets are a flat slice sized from the graph's extent, so building the
// index is a single pass over the edges.
type SpatialIndex struct {
	extent    rrgraph.Extent
	buckets   [][]rrgraph.EdgeID
	interDie  int
	endpoints []int
}

// NewSpatialIndex indexes every inter-die edge of g under the high corner
// of its source node. Intra-die edges are not indexed.
func NewSpatialIndex(g *rrgraph.Graph) *SpatialIndex {
	ext := g.Extent()
	idx := &SpatialIndex{
		extent:  ext,
		buckets: make([][]rrgraph.EdgeID, ext.Tiles()),
	}

	touched := make(map[int]struct{})
	for i := range g.EdgeCount() {
		id := rrgraph.EdgeID(i)
		src, sink := g.Endpoints(id)
		if src.High.Layer == sink.High.Layer {
			continue
		}
		slot := idx.slot(src.High)
		idx.buckets[slot] = append(idx.buckets[slot], id)
		idx.interDie++
		touched[src.ID] = struct{}{}
		touched[sink.ID] = struct{}{}
	}

	idx.endpoints = make([]int, 0, len(touched))
	for id := range touched {
		idx.endpoints = append(idx.endpoints, id)
	}
	slices.Sort(idx.endpoints)
	return idx
}

// slot orders buckets by layer, then x, then y.
func (s *SpatialIndex) slot(loc rrgraph.Location) int {
	return (loc.Layer*(s.extent.MaxX+1)+loc.X)*(s.extent.MaxY+1) + loc.Y
}

// Tile returns the inter-die edges bucketed under key, in edge order.
func (s *SpatialIndex) Tile(key rrgraph.Location) []rrgraph.EdgeID {
	if !s.extent.Contains(key) {
		return nil
	}
	return s.buckets[s.slot(key)]
}

// Tiles returns the non-empty buckets ordered by layer, x and y.
func (s *SpatialIndex) Tiles() []Tile {
	var tiles []Tile
	for l := 0; l <= s.extent.MaxLayer; l++ {
		for x := 0; x <= s.extent.MaxX; x++ {
			for y := 0; y <= s.extent.MaxY; y++ {
				key := rrgraph.Location{X: x, Y: y, Layer: l}
				if edges := s.buckets[s.slot(key)]; len(edges) > 0 {
					tiles = append(tiles, Tile{Key: key, Edges: edges})
				}
			}
		}
	}
	return tiles
}

// InterDie returns the number of indexed edges.
func (s *SpatialIndex) InterDie() int { return s.interDie }

// Endpoints returns the ids of nodes touched by an inter-die edge, sorted.
func (s *SpatialIndex) Endpoints() []int { return s.endpoints }
