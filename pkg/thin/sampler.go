package thin

import (
	"math"
	"math/rand/v2"
	"slices"

	errs "github.com/matzehuels/rrthin/pkg/errors"
	"github.com/matzehuels/rrthin/pkg/rrgraph"
)

// Count returns how many of n candidates a rate r removes: floor(n*r).
// Small groups may round to zero; there is no minimum of one. The tolerance
// keeps products such as 100*0.29 from truncating one short.
func Count(n int, r float64) int {
	if n <= 0 || r <= 0 {
		return 0
	}
	k := int(math.Floor(float64(n)*r + 1e-9))
	return min(k, n)
}

// ValidateRate rejects rates outside [0, 1].
func ValidateRate(r float64) error {
	return errs.ValidateRate("rate", r)
}

// Sampler draws uniform samples without replacement. It is not safe for
// concurrent use; every job owns its own.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler whose draws are fully determined by seed.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0xdeadbeef))}
}

// Sample returns Count(len(candidates), r) distinct candidates chosen
// uniformly at random. candidates is not modified.
func (s *Sampler) Sample(candidates []rrgraph.EdgeID, r float64) []rrgraph.EdgeID {
	n := len(candidates)
	k := Count(n, r)
	if k == 0 {
		return nil
	}
	picked := slices.Clone(candidates)
	for i := range k {
		j := i + s.rng.IntN(n-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:k]
}
