// Package simulation drives a complete run: it validates the settings,
// creates and wires the peers, instantiates one protocol per (peer, overlay)
// pair, and hands control to the virtual-time engine.
package simulation

import (
	"log"

	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/sim"
)

type declaredOverlay struct {
	name    string
	variant overlay.Variant
}

// Builder can be used to build a simulation.
type Builder struct {
	peerCount  int
	duration   sim.VTimeInSec
	indefinite bool

	topology network.Generator
	overlays []declaredOverlay
	latency  network.LatencyModel
	delay    overlay.DelayPolicy

	csvTracePath string
	recordPath   string
	monitorOn    bool
	monitorPort  int
	eventLogger  *log.Logger
}

// MakeBuilder creates a new builder with a fully-connected topology, zero
// link latency, and no processing delay.
func MakeBuilder() Builder {
	return Builder{
		topology: network.FullyConnected,
		latency:  network.Zero{},
		delay:    overlay.NoDelay{},
	}
}

// WithPeerCount sets the number of peers to simulate.
func (b Builder) WithPeerCount(n int) Builder {
	b.peerCount = n
	return b
}

// WithDuration sets the virtual-time horizon of the run. Events scheduled at
// or after the horizon do not fire.
func (b Builder) WithDuration(d sim.VTimeInSec) Builder {
	b.duration = d
	return b
}

// RunIndefinitely makes the run last until the event queue drains or Stop is
// called.
func (b Builder) RunIndefinitely() Builder {
	b.indefinite = true
	return b
}

// WithTopology sets the topology generator.
func (b Builder) WithTopology(g network.Generator) Builder {
	b.topology = g
	return b
}

// WithOverlay declares an overlay to instantiate on every peer. Overlays
// start in declaration order.
func (b Builder) WithOverlay(name string, v overlay.Variant) Builder {
	b.overlays = append(b.overlays, declaredOverlay{name: name, variant: v})
	return b
}

// WithLatencyModel sets the link latency model.
func (b Builder) WithLatencyModel(m network.LatencyModel) Builder {
	b.latency = m
	return b
}

// WithProcessingDelay sets the artificial message-processing delay policy.
func (b Builder) WithProcessingDelay(p overlay.DelayPolicy) Builder {
	b.delay = p
	return b
}

// WithCSVTracing writes a message and task trace to the given CSV file.
func (b Builder) WithCSVTracing(path string) Builder {
	b.csvTracePath = path
	return b
}

// WithRecording stores traces in a SQLite database at the given path.
func (b Builder) WithRecording(path string) Builder {
	b.recordPath = path
	return b
}

// WithMonitor starts the monitoring HTTP server on the given port. Port 0
// picks a random port.
func (b Builder) WithMonitor(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port
	return b
}

// WithEventLogging prints every processed event through the logger.
func (b Builder) WithEventLogging(logger *log.Logger) Builder {
	b.eventLogger = logger
	return b
}

// Build validates the settings and assembles a Simulation.
func (b Builder) Build() (*Simulation, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	return newSimulation(b), nil
}

func (b Builder) validate() error {
	if b.peerCount <= 0 {
		return configErr("peer count", "must be positive")
	}

	if b.indefinite && b.duration != 0 {
		return configErr("duration",
			"cannot be combined with an indefinite run")
	}

	if !b.indefinite && b.duration <= 0 {
		return configErr("duration",
			"must be positive unless the run is indefinite")
	}

	if b.topology == nil {
		return configErr("topology", "generator must be set")
	}

	if len(b.overlays) == 0 {
		return configErr("overlays", "at least one overlay must be declared")
	}

	seen := make(map[string]struct{})
	for _, o := range b.overlays {
		if o.name == "" {
			return configErr("overlays", "overlay name must not be empty")
		}

		if o.variant == nil {
			return configErr("overlays",
				"overlay "+o.name+" has no variant")
		}

		if _, dup := seen[o.name]; dup {
			return configErr("overlays",
				"overlay "+o.name+" declared twice")
		}
		seen[o.name] = struct{}{}
	}

	return nil
}
