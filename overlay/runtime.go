package overlay

import (
	"fmt"

	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/sim"
	"github.com/grimadas/asci-a27/wire"
)

// State is the lifecycle phase of an overlay instance.
type State int

// Overlay lifecycle states. Started is entered while the Started hook runs,
// Running right after it returns. A Stopped overlay refuses further sends
// and task registrations.
const (
	Created State = iota
	Started
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Started:
		return "Started"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HookPosOverlayStarted is a hook position that triggers when an overlay
// enters the Started state.
var HookPosOverlayStarted = &sim.HookPos{Name: "OverlayStarted"}

// HookPosOverlayStopped is a hook position that triggers when an overlay is
// stopped at teardown.
var HookPosOverlayStopped = &sim.HookPos{Name: "OverlayStopped"}

// A HandlerFunc processes one decoded message. The payload is the concrete
// type the registered factory produces.
type HandlerFunc func(from network.Address, payload wire.Payload) error

// A startEvent fires the Created to Started transition of one runtime.
type startEvent struct {
	*sim.EventBase
}

// A Runtime binds one protocol instance to one peer. It is the capability
// set the engine hands to the protocol: sending, task scheduling, and
// verified-peer access all go through here, so the protocol itself never
// touches the engine, the queue, or other peers.
type Runtime struct {
	sim.HookableBase

	engine     sim.Engine
	dispatcher *Dispatcher
	scheduler  *sim.TaskScheduler
	peer       *network.Peer
	overlay    string

	state    State
	codec    *wire.Registry
	handlers map[wire.MsgType]HandlerFunc
	protocol Protocol
}

// NewRuntime creates a Runtime for one (peer, overlay) pair.
func NewRuntime(
	overlayName string,
	peer *network.Peer,
	engine sim.Engine,
	dispatcher *Dispatcher,
	scheduler *sim.TaskScheduler,
) *Runtime {
	rt := new(Runtime)
	rt.engine = engine
	rt.dispatcher = dispatcher
	rt.scheduler = scheduler
	rt.peer = peer
	rt.overlay = overlayName
	rt.state = Created
	rt.codec = wire.NewRegistry()
	rt.handlers = make(map[wire.MsgType]HandlerFunc)
	return rt
}

// Instantiate builds the protocol through the variant and binds it to the
// runtime.
func (rt *Runtime) Instantiate(v Variant) (Protocol, error) {
	p, err := v(rt)
	if err != nil {
		return nil, err
	}

	rt.protocol = p

	return p, nil
}

// Name returns "overlay@peer", which identifies the runtime in hooks and
// traces.
func (rt *Runtime) Name() string {
	return rt.overlay + "@" + rt.peer.Address().Short()
}

// OverlayName returns the name the overlay was declared under.
func (rt *Runtime) OverlayName() string {
	return rt.overlay
}

// Address returns the address of the owning peer.
func (rt *Runtime) Address() network.Address {
	return rt.peer.Address()
}

// Now returns the current virtual time.
func (rt *Runtime) Now() sim.VTimeInSec {
	return rt.engine.CurrentTime()
}

// State returns the lifecycle state of the runtime.
func (rt *Runtime) State() State {
	return rt.state
}

// Protocol returns the protocol instance bound to the runtime.
func (rt *Runtime) Protocol() Protocol {
	return rt.protocol
}

// VerifiedPeers returns the addresses the owning peer may send to, in
// insertion order.
func (rt *Runtime) VerifiedPeers() []network.Address {
	return rt.peer.VerifiedPeers()
}

// AddVerifiedPeer grows the owning peer's verified set at runtime. This is
// the only mutation of verified sets after wiring, and a runtime may only
// grow its own peer's set.
func (rt *Runtime) AddVerifiedPeer(addr network.Address) error {
	if rt.state == Stopped {
		return ErrOverlayStopped
	}

	rt.peer.AddVerified(addr)

	return nil
}

// RegisterHandler binds a message type to a handler. The type tag and the
// decoder come from the factory's payload.
func (rt *Runtime) RegisterHandler(
	factory func() wire.Payload,
	fn HandlerFunc,
) error {
	msgType := factory().MsgType()

	if _, found := rt.handlers[msgType]; found {
		return fmt.Errorf("%w: tag %d", ErrDuplicateHandler, msgType)
	}

	if err := rt.codec.Register(factory); err != nil {
		return err
	}

	rt.handlers[msgType] = fn

	return nil
}

// Send serializes the payload and schedules its delivery. The recipient must
// be in the sender's verified set.
func (rt *Runtime) Send(to network.Address, p wire.Payload) error {
	if rt.state == Stopped {
		return ErrOverlayStopped
	}

	if !rt.peer.Knows(to) {
		return fmt.Errorf("%w: %s", ErrPeerNotVerified, to.Short())
	}

	return rt.dispatcher.send(rt, to, p)
}

// RegisterTask schedules a one-shot task on the owning peer.
func (rt *Runtime) RegisterTask(
	name string,
	fn sim.TaskFunc,
	delay sim.VTimeInSec,
) error {
	if rt.state == Stopped {
		return ErrOverlayStopped
	}

	return rt.scheduler.Register(name, fn, delay)
}

// RegisterRepeatingTask schedules a repeating task on the owning peer.
func (rt *Runtime) RegisterRepeatingTask(
	name string,
	fn sim.TaskFunc,
	delay sim.VTimeInSec,
	interval sim.VTimeInSec,
) error {
	if rt.state == Stopped {
		return ErrOverlayStopped
	}

	return rt.scheduler.RegisterRepeating(name, fn, delay, interval)
}

// CancelTask removes a pending task of the owning peer. It returns false
// when no task with the name exists.
func (rt *Runtime) CancelTask(name string) bool {
	return rt.scheduler.Cancel(name)
}

// ScheduleStart schedules the start signal of the runtime.
func (rt *Runtime) ScheduleStart(at sim.VTimeInSec) {
	rt.engine.Schedule(startEvent{
		EventBase: sim.NewEventBase(at, rt),
	})
}

// Handle processes the start signal of the runtime.
func (rt *Runtime) Handle(e sim.Event) error {
	switch e.(type) {
	case startEvent:
		rt.start()
	default:
		panic(fmt.Sprintf("cannot handle event of type %T", e))
	}

	return nil
}

func (rt *Runtime) start() {
	if rt.state != Created {
		return
	}

	rt.state = Started

	rt.InvokeHook(sim.HookCtx{
		Domain: rt,
		Pos:    HookPosOverlayStarted,
		Item:   rt.Name(),
	})

	if rt.protocol != nil {
		rt.protocol.Started()
	}

	rt.state = Running
}

// Stop moves the runtime to Stopped. Further sends and task registrations
// fail with ErrOverlayStopped, and deliveries to the runtime are dropped.
func (rt *Runtime) Stop() {
	if rt.state == Stopped {
		return
	}

	if sh, ok := rt.protocol.(StopHandler); ok {
		sh.Stopped()
	}

	rt.state = Stopped

	rt.InvokeHook(sim.HookCtx{
		Domain: rt,
		Pos:    HookPosOverlayStopped,
		Item:   rt.Name(),
	})
}

// deliver decodes the envelope and invokes the registered handler.
func (rt *Runtime) deliver(env *Envelope) error {
	fn, found := rt.handlers[env.Type]
	if !found {
		return fmt.Errorf("%w: tag %d at %s",
			ErrUnhandledMessageType, env.Type, rt.Name())
	}

	payload, err := rt.codec.Decode(env.Payload)
	if err != nil {
		return err
	}

	return fn(env.From, payload)
}
