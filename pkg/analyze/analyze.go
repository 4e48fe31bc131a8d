// Package analyze reports inter-die connectivity of an RR graph.
//
// For every tile holding inter-die edges the report counts the connections
// and sums the fan-in of their source nodes and the fan-out of their sink
// nodes, split by the wire class (L4 or L16) of the channel on the far side.
// Per-layer averages are taken over interior tiles (x > 0 and y > 0); the
// perimeter carries I/O blocks rather than switch boxes.
package analyze

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/rrthin/pkg/rrgraph"
	"github.com/matzehuels/rrthin/pkg/thin"
)

// Fan counts edges in a fan group by the wire class of the node across
// the switch. Other counts edges whose far node is not a channel.
type Fan struct {
	Total int `json:"total"`
	L4    int `json:"l4"`
	L16   int `json:"l16"`
	Other int `json:"other"`
}

func (f *Fan) add(n rrgraph.Node) {
	f.Total++
	switch n.Segment {
	case rrgraph.SegmentL4:
		f.L4++
	case rrgraph.SegmentL16:
		f.L16++
	default:
		f.Other++
	}
}

// Tile holds the totals for one tile.
type Tile struct {
	X           int `json:"x"`
	Y           int `json:"y"`
	Layer       int `json:"layer"`
	Connections int `json:"connections"`
	FanIn       Fan `json:"fan_in"`
	FanOut      Fan `json:"fan_out"`
}

// AvgFanIn returns the mean fan-in per inter-die connection.
func (t Tile) AvgFanIn() float64 { return ratio(t.FanIn.Total, t.Connections) }

// AvgFanOut returns the mean fan-out per inter-die connection.
func (t Tile) AvgFanOut() float64 { return ratio(t.FanOut.Total, t.Connections) }

// Layer aggregates the interior tiles of one source layer.
type Layer struct {
	Layer       int     `json:"layer"`
	Tiles       int     `json:"tiles"`
	Connections int     `json:"connections"`
	AvgPerTile  float64 `json:"avg_connections_per_tile"`
	AvgFanIn    float64 `json:"avg_fan_in"`
	AvgFanOut   float64 `json:"avg_fan_out"`

	fanIn, fanOut int
}

// Report is the result of [Analyze].
type Report struct {
	Nodes    int     `json:"nodes"`
	Edges    int     `json:"edges"`
	InterDie int     `json:"inter_die"`
	Tiles    []Tile  `json:"tiles"`
	Layers   []Layer `json:"layers"`
}

// Analyze computes the connectivity report of g.
func Analyze(g *rrgraph.Graph) *Report {
	idx := thin.NewSpatialIndex(g)
	fan := thin.NewFanIndex(g, idx.Endpoints())
	ext := g.Extent()

	r := &Report{
		Nodes:    g.NodeCount(),
		Edges:    g.EdgeCount(),
		InterDie: idx.InterDie(),
		Layers:   make([]Layer, ext.MaxLayer+1),
	}
	for l := range r.Layers {
		r.Layers[l].Layer = l
		r.Layers[l].Tiles = ext.MaxX * ext.MaxY
	}

	for _, bucket := range idx.Tiles() {
		t := Tile{X: bucket.Key.X, Y: bucket.Key.Y, Layer: bucket.Key.Layer}
		for _, id := range bucket.Edges {
			e := g.Edge(id)
			t.Connections++
			for _, in := range fan.In(e.Src) {
				far, _ := g.Node(g.Edge(in).Src)
				t.FanIn.add(far)
			}
			for _, out := range fan.Out(e.Sink) {
				far, _ := g.Node(g.Edge(out).Sink)
				t.FanOut.add(far)
			}
		}
		r.Tiles = append(r.Tiles, t)

		if t.X > 0 && t.Y > 0 {
			l := &r.Layers[t.Layer]
			l.Connections += t.Connections
			l.fanIn += t.FanIn.Total
			l.fanOut += t.FanOut.Total
		}
	}

	for i := range r.Layers {
		l := &r.Layers[i]
		l.AvgPerTile = ratio(l.Connections, l.Tiles)
		l.AvgFanIn = ratio(l.fanIn, l.Connections)
		l.AvgFanOut = ratio(l.fanOut, l.Connections)
	}
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteText writes the report in the line format of the rr_graph_analysis
// report: one block per tile, then per-layer averages.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("nodes: %d  edges: %d  inter-die: %d\n", r.Nodes, r.Edges, r.InterDie)
	for _, t := range r.Tiles {
		ew.printf("%d %d %d\n", t.X, t.Y, t.Layer)
		ew.printf("\t Number of inter-die connections: %d\n", t.Connections)
		ew.printf("\t Average inter-die edge fan-in: %.2f (l4: %.2f l16: %.2f)\n",
			t.AvgFanIn(), ratio(t.FanIn.L4, t.Connections), ratio(t.FanIn.L16, t.Connections))
		ew.printf("\t Average inter-die edge fan-out: %.2f (l4: %.2f l16: %.2f)\n",
			t.AvgFanOut(), ratio(t.FanOut.L4, t.Connections), ratio(t.FanOut.L16, t.Connections))
	}
	for _, l := range r.Layers {
		ew.printf("layer %d: %.2f connections per tile, fan-in %.2f, fan-out %.2f per connection\n",
			l.Layer, l.AvgPerTile, l.AvgFanIn, l.AvgFanOut)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
