package rrgraph

import (
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

// SnapshotVersion is bumped whenever the snapshot layout or the loader's
// interpretation of the XML changes, invalidating cached snapshots.
const SnapshotVersion = 1

// snapshot is the cached form of a loaded graph. Tables are stored as
// positional arrays to keep large graphs compact.
type snapshot struct {
	_msgpack struct{} `msgpack:",as_array"`

	Version int
	Grid    [][3]int
	Nodes   [][8]int // id, kind, xlow, ylow, xhigh, yhigh, layer, segment
	Edges   [][3]int
	Origin  []int
	Source  *snapshotSource
}

type snapshotSource struct {
	_msgpack struct{} `msgpack:",as_array"`

	Path    string
	Size    int64
	ModTime int64
	Spans   [][2]int64
}

// MarshalGraph encodes g as a zstd-compressed msgpack snapshot.
func MarshalGraph(g *Graph) ([]byte, error) {
	s := snapshot{
		Version: SnapshotVersion,
		Grid:    make([][3]int, len(g.grid)),
		Nodes:   make([][8]int, len(g.nodes)),
		Edges:   make([][3]int, len(g.edges)),
		Origin:  g.origin,
	}
	for i, l := range g.grid {
		s.Grid[i] = [3]int{l.X, l.Y, l.Layer}
	}
	for i, n := range g.nodes {
		s.Nodes[i] = [8]int{n.ID, int(n.Kind), n.Low.X, n.Low.Y, n.High.X, n.High.Y, n.High.Layer, int(n.Segment)}
	}
	for i, e := range g.edges {
		s.Edges[i] = [3]int{e.Src, e.Sink, e.Switch}
	}
	if src := g.source; src != nil {
		ss := &snapshotSource{
			Path:    src.Path,
			Size:    src.Size,
			ModTime: src.ModTime.UnixNano(),
			Spans:   make([][2]int64, len(src.Spans)),
		}
		for i, sp := range src.Spans {
			ss.Spans[i] = [2]int64{sp.Start, sp.End}
		}
		s.Source = ss
	}

	raw, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// UnmarshalGraph decodes a snapshot produced by [MarshalGraph]. Snapshots
// from another SnapshotVersion are rejected.
func UnmarshalGraph(data []byte) (*Graph, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var s snapshot
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, errs.New(errs.ErrCodeInternal, "snapshot version %d, want %d", s.Version, SnapshotVersion)
	}

	grid := make([]Location, len(s.Grid))
	for i, l := range s.Grid {
		grid[i] = Location{X: l[0], Y: l[1], Layer: l[2]}
	}
	nodes := make([]Node, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = Node{
			ID:      n[0],
			Kind:    NodeKind(n[1]),
			Low:     Location{X: n[2], Y: n[3], Layer: n[6]},
			High:    Location{X: n[4], Y: n[5], Layer: n[6]},
			Segment: SegmentClass(n[7]),
		}
	}
	edges := make([]Edge, len(s.Edges))
	for i, e := range s.Edges {
		edges[i] = Edge{Src: e[0], Sink: e[1], Switch: e[2]}
	}

	g, err := New(grid, nodes, edges)
	if err != nil {
		return nil, err
	}
	if len(s.Origin) > 0 {
		g.origin = s.Origin
	}
	if ss := s.Source; ss != nil {
		src := &Source{
			Path:    ss.Path,
			Size:    ss.Size,
			ModTime: time.Unix(0, ss.ModTime),
			Spans:   make([]Span, len(ss.Spans)),
		}
		for i, sp := range ss.Spans {
			src.Spans[i] = Span{Start: sp[0], End: sp[1]}
		}
		g.source = src
	}
	return g, nil
}
