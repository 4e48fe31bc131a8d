package rrgraph

import (
	"time"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

// =============================================================================
// Model
// =============================================================================

// Location is a tile coordinate.
type Location struct {
	X, Y, Layer int
}

// Node is one entry of the node table.
//
// Low and High bound the tiles the node occupies. Both carry the same Layer:
// a node never spans dies. Segment is SegmentNone unless Kind is a channel.
type Node struct {
	ID      int
	Kind    NodeKind
	Low     Location
	High    Location
	Segment SegmentClass
}

// Edge is a switch connecting two nodes. Switch is opaque.
type Edge struct {
	Src    int
	Sink   int
	Switch int
}

// EdgeID is the position of an edge in its graph's edge sequence. It is the
// edge's identity: two edges with the same endpoints and switch are still
// distinct edges.
type EdgeID int

// Extent holds the largest coordinate seen on each axis.
type Extent struct {
	MaxX, MaxY, MaxLayer int
}

// MaxTiles bounds the tile count of a graph's extent.
const MaxTiles = 1 << 24

// Tiles returns the number of tile keys inside the extent.
func (e Extent) Tiles() int {
	return (e.MaxX + 1) * (e.MaxY + 1) * (e.MaxLayer + 1)
}

// Contains reports whether loc lies inside the extent.
func (e Extent) Contains(loc Location) bool {
	return loc.X >= 0 && loc.Y >= 0 && loc.Layer >= 0 &&
		loc.X <= e.MaxX && loc.Y <= e.MaxY && loc.Layer <= e.MaxLayer
}

// check fails with MALFORMED_GRAPH when the extent holds more than MaxTiles
// tiles. Each factor is checked before multiplying, so huge coordinates
// cannot overflow the product.
func (e Extent) check() error {
	n := 1
	for _, d := range []int{e.MaxX, e.MaxY, e.MaxLayer} {
		if d < 0 || d >= MaxTiles || n*(d+1) > MaxTiles {
			return errs.New(errs.ErrCodeMalformedGraph,
				"grid extent %d x %d x %d exceeds %d tiles", e.MaxX+1, e.MaxY+1, e.MaxLayer+1, MaxTiles)
		}
		n *= d + 1
	}
	return nil
}

func (e *Extent) grow(loc Location) {
	e.MaxX = max(e.MaxX, loc.X)
	e.MaxY = max(e.MaxY, loc.Y)
	e.MaxLayer = max(e.MaxLayer, loc.Layer)
}

// Span is a half-open byte range [Start, End) in a source file.
type Span struct {
	Start, End int64
}

// Source describes the file a graph was loaded from. Spans holds, in file
// order, the byte range of every <edge> element including the indentation
// that precedes it.
type Source struct {
	Path    string
	Size    int64
	ModTime time.Time
	Spans   []Span
}

// Graph is an RR graph. It is immutable once built; editing produces a new
// Graph that shares the node table.
type Graph struct {
	grid   []Location
	nodes  []Node
	index  map[int]int // node id -> position in nodes; nil when ids are dense
	edges  []Edge
	origin []int // origin[i] is the source ordinal of edges[i]; nil means i
	extent Extent
	source *Source
}

// =============================================================================
// Construction
// =============================================================================

// New builds a graph from its three tables and checks referential integrity.
// Duplicate node ids fail with MALFORMED_GRAPH, edges naming unknown nodes
// with DANGLING_REFERENCE. With a non-empty grid, a node located outside the
// grid extent fails with MALFORMED_GRAPH; without one the extent is taken
// from the nodes. An extent above MaxTiles fails with MALFORMED_GRAPH. The
// slices are owned by the graph afterwards.
func New(grid []Location, nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{grid: grid, nodes: nodes, edges: edges}
	if err := g.buildIndex(); err != nil {
		return nil, err
	}
	if err := g.checkEdges(); err != nil {
		return nil, err
	}
	for _, loc := range grid {
		g.extent.grow(loc)
	}
	if err := g.extent.check(); err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if len(grid) == 0 {
			g.extent.grow(n.Low)
			g.extent.grow(n.High)
			continue
		}
		if !g.extent.Contains(n.Low) || !g.extent.Contains(n.High) {
			return nil, errs.New(errs.ErrCodeMalformedGraph,
				"node %d: loc (%d,%d)-(%d,%d) layer %d lies outside the %d x %d x %d grid",
				n.ID, n.Low.X, n.Low.Y, n.High.X, n.High.Y, n.Low.Layer,
				g.extent.MaxX+1, g.extent.MaxY+1, g.extent.MaxLayer+1)
		}
	}
	if len(grid) == 0 {
		if err := g.extent.check(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) buildIndex() error {
	dense := true
	for i, n := range g.nodes {
		if n.ID != i {
			dense = false
			break
		}
	}
	if dense {
		return nil
	}
	g.index = make(map[int]int, len(g.nodes))
	for i, n := range g.nodes {
		if _, dup := g.index[n.ID]; dup {
			return errs.New(errs.ErrCodeMalformedGraph, "duplicate node id %d", n.ID)
		}
		g.index[n.ID] = i
	}
	return nil
}

func (g *Graph) checkEdges() error {
	for i, e := range g.edges {
		if _, ok := g.position(e.Src); !ok {
			return errs.New(errs.ErrCodeDanglingReference,
				"edge %d: src_node %d is not in the node table", i, e.Src)
		}
		if _, ok := g.position(e.Sink); !ok {
			return errs.New(errs.ErrCodeDanglingReference,
				"edge %d: sink_node %d is not in the node table", i, e.Sink)
		}
	}
	return nil
}

// Derive returns a graph with the same nodes, grid and source whose edges
// are the given subset of g's edges. keep must be strictly increasing.
func (g *Graph) Derive(keep []EdgeID) *Graph {
	edges := make([]Edge, len(keep))
	origin := make([]int, len(keep))
	for i, id := range keep {
		edges[i] = g.edges[id]
		origin[i] = g.Origin(id)
	}
	return &Graph{
		grid:   g.grid,
		nodes:  g.nodes,
		index:  g.index,
		edges:  edges,
		origin: origin,
		extent: g.extent,
		source: g.source,
	}
}

// =============================================================================
// Accessors
// =============================================================================

func (g *Graph) position(id int) (int, bool) {
	if g.index == nil {
		return id, id >= 0 && id < len(g.nodes)
	}
	i, ok := g.index[id]
	return i, ok
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (Node, bool) {
	i, ok := g.position(id)
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns the node table in file order. Callers must not modify it.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the edge sequence. Callers must not modify it.
func (g *Graph) Edges() []Edge { return g.edges }

// Edge returns the edge with the given id.
func (g *Graph) Edge(id EdgeID) Edge { return g.edges[id] }

// Grid returns the grid_loc entries.
func (g *Graph) Grid() []Location { return g.grid }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Extent returns the grid extent.
func (g *Graph) Extent() Extent { return g.extent }

// Source returns the file the graph was loaded from, or nil.
func (g *Graph) Source() *Source { return g.source }

// Origin returns the ordinal, in the source file, of the edge id.
func (g *Graph) Origin(id EdgeID) int {
	if g.origin == nil {
		return int(id)
	}
	return g.origin[id]
}

// Endpoints returns the source and sink nodes of an edge.
func (g *Graph) Endpoints(id EdgeID) (src, sink Node) {
	e := g.edges[id]
	si, _ := g.position(e.Src)
	ki, _ := g.position(e.Sink)
	return g.nodes[si], g.nodes[ki]
}

// IsInterDie reports whether the edge connects nodes on different layers.
func (g *Graph) IsInterDie(id EdgeID) bool {
	src, sink := g.Endpoints(id)
	return src.High.Layer != sink.High.Layer
}

// TileOf returns the tile key an inter-die edge is bucketed under:
// the high corner of its source node.
func (g *Graph) TileOf(id EdgeID) Location {
	src, _ := g.Endpoints(id)
	return src.High
}
