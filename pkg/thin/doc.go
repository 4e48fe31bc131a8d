// Package thin removes a controlled fraction of inter-die edges from an RR
// graph.
//
// An inter-die edge connects two nodes on different layers. Thinning works
// in four steps, each a separate type so callers (and tests) can observe the
// intermediate results:
//
//  1. [NewSpatialIndex] buckets inter-die edges by the tile of their source
//     node: (src.High.X, src.High.Y, src.High.Layer).
//  2. A [Sampler] picks floor(n*r) edges of every bucket uniformly at random
//     ([SelectTiles]).
//  3. For the MUX variant, [NewFanIndex] collects the full fan-in and fan-out
//     of every node touched by an inter-die edge, and [SelectMux] samples
//     floor(n*m) edges from each of those groups.
//  4. [Remove] filters the marked edges out in one linear pass and returns a
//     new graph that shares the node table with the input.
//
// Removal counts are deterministic; which edges are removed depends only on
// the sampler's seed.
//
//	idx := thin.NewSpatialIndex(g)
//	set := thin.SelectTiles(g, idx, thin.NewSampler(seed), 0.9)
//	out, err := thin.Remove(g, set)
package thin
