package network

import (
	"math"
	"math/rand"

	"github.com/grimadas/asci-a27/sim"
)

// A LatencyModel determines how long a message travels between two peers.
// Models that sample randomness must seed it explicitly so that runs stay
// repeatable.
type LatencyModel interface {
	Sample(src, dst Address) sim.VTimeInSec
}

// Zero delivers every message in the same virtual instant.
type Zero struct{}

// Sample returns zero.
func (Zero) Sample(_, _ Address) sim.VTimeInSec {
	return 0
}

// Fixed applies the same delay to every link.
type Fixed struct {
	Delay sim.VTimeInSec
}

// Sample returns the fixed delay.
func (f Fixed) Sample(_, _ Address) sim.VTimeInSec {
	return f.Delay
}

// Uniform samples delays uniformly from [Min, Max).
type Uniform struct {
	min, max sim.VTimeInSec
	rng      *rand.Rand
}

// NewUniform creates a Uniform model with its own seeded source.
func NewUniform(min, max sim.VTimeInSec, seed int64) *Uniform {
	return &Uniform{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Sample returns a delay in [Min, Max).
func (u *Uniform) Sample(_, _ Address) sim.VTimeInSec {
	return u.min + sim.VTimeInSec(u.rng.Float64())*(u.max-u.min)
}

// LogNormal samples delays from a log-normal distribution around a mean,
// which matches the long-tailed latency seen on real overlay links.
type LogNormal struct {
	mean sim.VTimeInSec
	rng  *rand.Rand
}

// NewLogNormal creates a LogNormal model with its own seeded source.
func NewLogNormal(mean sim.VTimeInSec, seed int64) *LogNormal {
	return &LogNormal{
		mean: mean,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Sample returns a log-normally distributed delay.
func (l *LogNormal) Sample(_, _ Address) sim.VTimeInSec {
	norm := l.rng.NormFloat64()
	lognorm := math.Exp(norm)
	return sim.VTimeInSec(lognorm) * l.mean
}

type link struct {
	src, dst Address
}

// PerLink holds an explicit delay per directed link and falls back to a
// default model for links it does not list.
type PerLink struct {
	fallback LatencyModel
	links    map[link]sim.VTimeInSec
}

// NewPerLink creates a PerLink model over the given fallback.
func NewPerLink(fallback LatencyModel) *PerLink {
	return &PerLink{
		fallback: fallback,
		links:    make(map[link]sim.VTimeInSec),
	}
}

// SetLink fixes the delay of one directed link.
func (p *PerLink) SetLink(src, dst Address, delay sim.VTimeInSec) {
	p.links[link{src: src, dst: dst}] = delay
}

// Sample returns the per-link delay, or the fallback's sample when the link
// is not listed.
func (p *PerLink) Sample(src, dst Address) sim.VTimeInSec {
	if delay, found := p.links[link{src: src, dst: dst}]; found {
		return delay
	}
	return p.fallback.Sample(src, dst)
}
