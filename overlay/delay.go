package overlay

import (
	"math"
	"math/rand"

	"github.com/grimadas/asci-a27/sim"
)

// A DelayPolicy adds artificial message-processing delay on top of the link
// latency, approximating the CPU cost a real node would spend on a message.
type DelayPolicy interface {
	ProcessingDelay(env *Envelope) sim.VTimeInSec
}

// NoDelay processes every message in zero virtual time.
type NoDelay struct{}

// ProcessingDelay returns zero.
func (NoDelay) ProcessingDelay(_ *Envelope) sim.VTimeInSec {
	return 0
}

// FixedDelay charges the same processing cost for every message.
type FixedDelay struct {
	Delay sim.VTimeInSec
}

// ProcessingDelay returns the fixed cost.
func (f FixedDelay) ProcessingDelay(_ *Envelope) sim.VTimeInSec {
	return f.Delay
}

// SampledDelay draws the processing cost from a log-normal distribution
// around a mean, seeded explicitly to keep runs repeatable.
type SampledDelay struct {
	mean sim.VTimeInSec
	rng  *rand.Rand
}

// NewSampledDelay creates a SampledDelay with its own seeded source.
func NewSampledDelay(mean sim.VTimeInSec, seed int64) *SampledDelay {
	return &SampledDelay{
		mean: mean,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// ProcessingDelay returns a log-normally distributed cost.
func (s *SampledDelay) ProcessingDelay(_ *Envelope) sim.VTimeInSec {
	norm := s.rng.NormFloat64()
	lognorm := math.Exp(norm)
	return sim.VTimeInSec(lognorm) * s.mean
}
