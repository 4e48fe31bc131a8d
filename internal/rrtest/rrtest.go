// Package rrtest provides RR graph fixtures shared by package tests.
package rrtest

import (
	_ "embed"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// TwoDie is a four node graph: a CHANX (L4) and a CHANY (L16) node on layer
// 0 and an IPIN and an OPIN on layer 1, all at (0,0). Its ten edges all run
// from layer 0 to layer 1, so they share tile (0,0,0). Edges 0 and 1 are
// identical triples. The file carries channels, switches and segments
// sections that the loader skips.
//
//go:embed testdata/two_die.xml
var TwoDie []byte

// Dangling is TwoDie with two edges pointing at the missing node 9.
//
//go:embed testdata/dangling.xml
var Dangling []byte

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Random builds a graph of w*h tiles on the given number of layers, with
// perTile channel nodes on every tile and edges random edges between them.
// Roughly half of the edges cross layers.
func Random(t testing.TB, seed uint64, w, h, layers, perTile, edges int) *rrgraph.Graph {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))

	var grid []rrgraph.Location
	var nodes []rrgraph.Node
	for l := 0; l < layers; l++ {
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				loc := rrgraph.Location{X: x, Y: y, Layer: l}
				grid = append(grid, loc)
				for i := 0; i < perTile; i++ {
					kind, seg := rrgraph.KindChanX, rrgraph.SegmentL4
					if i%2 == 1 {
						kind, seg = rrgraph.KindChanY, rrgraph.SegmentL16
					}
					nodes = append(nodes, rrgraph.Node{
						ID: len(nodes), Kind: kind, Low: loc, High: loc, Segment: seg,
					})
				}
			}
		}
	}

	es := make([]rrgraph.Edge, edges)
	for i := range es {
		es[i] = rrgraph.Edge{
			Src:    rng.IntN(len(nodes)),
			Sink:   rng.IntN(len(nodes)),
			Switch: rng.IntN(4),
		}
	}

	g, err := rrgraph.New(grid, nodes, es)
	if err != nil {
		t.Fatalf("build random graph: %v", err)
	}
	return g
}
