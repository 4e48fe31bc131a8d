package pipeline

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// DeriveSeed mixes a batch seed with a job's circuit and rate percentages.
// Rates enter as truncated percentages, the same values that appear in
// output names, so two jobs that write the same file draw the same edges.
func DeriveSeed(seed uint64, circuit string, rates ...float64) uint64 {
	buf := make([]byte, 0, 8+len(circuit)+1+8*len(rates))
	buf = binary.LittleEndian.AppendUint64(buf, seed)
	buf = append(buf, circuit...)
	buf = append(buf, 0)
	for _, r := range rates {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(rrgraph.Percent(r)))
	}
	return xxhash.Sum64(buf)
}

// baseSeed seeds the per-tile pass. It ignores the MUX rate, so a MUX job
// removes exactly the inter-die edges of the matching edge-only job.
func (o *Options) baseSeed() uint64 {
	return DeriveSeed(o.Seed, o.Circuit, o.EdgeRate)
}

// muxSeed seeds the fan-in/fan-out pass.
func (o *Options) muxSeed() uint64 {
	return DeriveSeed(o.Seed, o.Circuit, o.EdgeRate, o.MuxRate)
}
