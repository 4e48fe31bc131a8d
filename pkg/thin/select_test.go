package thin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/rrthin/internal/rrtest"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
	"github.com/matzehuels/rrthin/pkg/thin"
)

// muxGraph has two inter-die edges 0->10 and 1->11. Node 0 is fed by 2..5,
// node 1 by 6..7, node 10 drives 20..24 and node 11 drives 25. Node 30 is
// unrelated and its edges stay out of every group.
func muxGraph(t *testing.T) *rrgraph.Graph {
	t.Helper()
	node := func(id, layer int) rrgraph.Node {
		loc := rrgraph.Location{Layer: layer}
		return rrgraph.Node{ID: id, Kind: rrgraph.KindOPin, Low: loc, High: loc}
	}
	var nodes []rrgraph.Node
	for _, id := range []int{0, 1, 2, 3, 4, 5, 6, 7, 30, 31} {
		nodes = append(nodes, node(id, 0))
	}
	for _, id := range []int{10, 11, 20, 21, 22, 23, 24, 25} {
		nodes = append(nodes, node(id, 1))
	}
	edges := []rrgraph.Edge{
		{Src: 0, Sink: 10}, {Src: 1, Sink: 11},
		{Src: 2, Sink: 0}, {Src: 3, Sink: 0}, {Src: 4, Sink: 0}, {Src: 5, Sink: 0},
		{Src: 6, Sink: 1}, {Src: 7, Sink: 1},
		{Src: 10, Sink: 20}, {Src: 10, Sink: 21}, {Src: 10, Sink: 22}, {Src: 10, Sink: 23}, {Src: 10, Sink: 24},
		{Src: 11, Sink: 25},
		{Src: 30, Sink: 31}, {Src: 31, Sink: 30},
	}
	g, err := rrgraph.New([]rrgraph.Location{{}, {Layer: 1}}, nodes, edges)
	require.NoError(t, err)
	return g
}

func TestFanIndex(t *testing.T) {
	g := muxGraph(t)
	idx := thin.NewSpatialIndex(g)
	require.Equal(t, []int{0, 1, 10, 11}, idx.Endpoints())

	fan := thin.NewFanIndex(g, idx.Endpoints())
	require.Equal(t, 4, fan.Nodes())
	require.Equal(t, []rrgraph.EdgeID{2, 3, 4, 5}, fan.In(0))
	require.Equal(t, []rrgraph.EdgeID{0}, fan.Out(0))
	require.Equal(t, []rrgraph.EdgeID{0}, fan.In(10))
	require.Equal(t, []rrgraph.EdgeID{8, 9, 10, 11, 12}, fan.Out(10))
	require.Nil(t, fan.In(30), "nodes off the inter-die population are not indexed")
	require.Nil(t, fan.Out(2))
}

func TestSelectMuxGroupCounts(t *testing.T) {
	g := muxGraph(t)
	idx := thin.NewSpatialIndex(g)
	fan := thin.NewFanIndex(g, idx.Endpoints())

	tests := []struct {
		rate float64
		// removed from In(0), In(1), Out(10), Out(11)
		want [4]int
	}{
		{0, [4]int{0, 0, 0, 0}},
		{0.5, [4]int{2, 1, 2, 0}},
		{0.8, [4]int{3, 1, 4, 0}},
		{1, [4]int{4, 2, 5, 1}},
	}
	for _, tt := range tests {
		set := thin.SelectMux(g, idx, fan, thin.NewSampler(5), tt.rate)
		groups := [][]rrgraph.EdgeID{fan.In(0), fan.In(1), fan.Out(10), fan.Out(11)}

		total := 0
		for i, group := range groups {
			removed := 0
			for _, id := range group {
				if set.Has(id) {
					removed++
				}
			}
			require.Equal(t, tt.want[i], removed, "rate %v group %d", tt.rate, i)
			total += removed
		}
		require.Equal(t, total, set.Len(), "nothing outside the groups is marked")
		require.False(t, set.Has(0) || set.Has(1), "inter-die edges themselves are not in these groups")
		require.False(t, set.Has(14) || set.Has(15))
	}
}

func TestSelectMuxOnlyTouchesGroups(t *testing.T) {
	g := rrtest.Random(t, 21, 4, 4, 2, 2, 1500)
	idx := thin.NewSpatialIndex(g)
	fan := thin.NewFanIndex(g, idx.Endpoints())

	inGroup := make(map[rrgraph.EdgeID]bool)
	for _, tile := range idx.Tiles() {
		for _, id := range tile.Edges {
			e := g.Edge(id)
			for _, x := range fan.In(e.Src) {
				inGroup[x] = true
			}
			for _, x := range fan.Out(e.Sink) {
				inGroup[x] = true
			}
		}
	}

	set := thin.SelectMux(g, idx, fan, thin.NewSampler(2), 0.3)
	require.Positive(t, set.Len())
	for _, id := range set.IDs() {
		require.True(t, inGroup[id], "edge %d is outside every fan group", id)
	}

	all := thin.SelectMux(g, idx, fan, thin.NewSampler(2), 1)
	require.Equal(t, len(inGroup), all.Len())
}

func TestSelectMuxIsSeeded(t *testing.T) {
	g := rrtest.Random(t, 4, 3, 3, 2, 2, 800)
	idx := thin.NewSpatialIndex(g)
	fan := thin.NewFanIndex(g, idx.Endpoints())

	a := thin.SelectMux(g, idx, fan, thin.NewSampler(8), 0.5).IDs()
	b := thin.SelectMux(g, idx, fan, thin.NewSampler(8), 0.5).IDs()
	require.Equal(t, a, b)
}
