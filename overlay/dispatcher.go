package overlay

import (
	"errors"
	"fmt"

	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/sim"
	"github.com/grimadas/asci-a27/wire"
)

// Message-flow hook positions. A telemetry layer subscribes to these instead
// of the engine formatting or persisting anything itself.
var (
	// HookPosMsgSend triggers when a message send is accepted. Item is the
	// *Envelope.
	HookPosMsgSend = &sim.HookPos{Name: "MsgSend"}

	// HookPosMsgDeliver triggers after a message is handled successfully.
	// Item is the *Envelope.
	HookPosMsgDeliver = &sim.HookPos{Name: "MsgDeliver"}

	// HookPosMsgUnhandled triggers when a delivery finds no handler for the
	// message type. Item is the *Envelope, Detail the error.
	HookPosMsgUnhandled = &sim.HookPos{Name: "MsgUnhandled"}

	// HookPosMsgDropped triggers when a delivery is dropped: no route, a
	// stopped recipient, or a payload that fails to decode. Item is the
	// *Envelope, Detail the error.
	HookPosMsgDropped = &sim.HookPos{Name: "MsgDropped"}

	// HookPosHandlerError triggers when a message handler returns an error.
	// The fault is isolated to the recipient; the loop continues. Item is
	// the *Envelope, Detail the error.
	HookPosHandlerError = &sim.HookPos{Name: "HandlerError"}
)

var (
	errNoRoute          = errors.New("no overlay attached for recipient")
	errRecipientStopped = errors.New("recipient overlay is stopped")
)

// A deliveryEvent carries one envelope to its recipient.
type deliveryEvent struct {
	*sim.EventBase
	env *Envelope
}

type routeKey struct {
	to      network.Address
	overlay string
}

// A Dispatcher routes envelopes between the runtimes of one simulation. It
// owns the delivery timing: link latency from the latency model plus the
// processing-delay policy. Zero-latency deliveries land at the same virtual
// time as the send but strictly after the sending event, because the queue
// breaks time ties by insertion order.
type Dispatcher struct {
	sim.HookableBase

	engine  sim.Engine
	latency network.LatencyModel
	delay   DelayPolicy
	routes  map[routeKey]*Runtime
}

// NewDispatcher creates a Dispatcher scheduling on the given engine.
func NewDispatcher(
	engine sim.Engine,
	latency network.LatencyModel,
	delay DelayPolicy,
) *Dispatcher {
	d := new(Dispatcher)
	d.engine = engine
	d.latency = latency
	d.delay = delay
	d.routes = make(map[routeKey]*Runtime)
	return d
}

// Attach registers a runtime as the delivery target for its (peer, overlay)
// pair.
func (d *Dispatcher) Attach(rt *Runtime) error {
	key := routeKey{to: rt.Address(), overlay: rt.OverlayName()}

	if _, found := d.routes[key]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, rt.Name())
	}

	d.routes[key] = rt

	return nil
}

// send envelopes the payload and schedules its delivery.
func (d *Dispatcher) send(
	from *Runtime,
	to network.Address,
	p wire.Payload,
) error {
	now := d.engine.CurrentTime()

	env := &Envelope{
		ID:      sim.GetIDGenerator().Generate(),
		Overlay: from.OverlayName(),
		Type:    p.MsgType(),
		From:    from.Address(),
		To:      to,
		Payload: wire.Encode(p),
		SentAt:  now,
	}
	env.DeliverAt = now +
		d.latency.Sample(env.From, env.To) +
		d.delay.ProcessingDelay(env)

	d.InvokeHook(sim.HookCtx{
		Domain: d,
		Pos:    HookPosMsgSend,
		Item:   env,
	})

	d.engine.Schedule(deliveryEvent{
		EventBase: sim.NewEventBase(env.DeliverAt, d),
		env:       env,
	})

	return nil
}

// Handle delivers the envelope carried by the event. Per-delivery faults are
// reported through hooks and never abort the loop.
func (d *Dispatcher) Handle(e sim.Event) error {
	evt := e.(deliveryEvent)
	env := evt.env

	rt, found := d.routes[routeKey{to: env.To, overlay: env.Overlay}]
	if !found {
		d.report(HookPosMsgDropped, env, errNoRoute)
		return nil
	}

	if rt.State() == Stopped {
		d.report(HookPosMsgDropped, env, errRecipientStopped)
		return nil
	}

	err := rt.deliver(env)
	switch {
	case err == nil:
		d.report(HookPosMsgDeliver, env, nil)
	case errors.Is(err, ErrUnhandledMessageType):
		d.report(HookPosMsgUnhandled, env, err)
	case isSerializationError(err):
		d.report(HookPosMsgDropped, env, err)
	default:
		d.report(HookPosHandlerError, env, err)
	}

	return nil
}

func isSerializationError(err error) bool {
	return errors.Is(err, wire.ErrTruncatedPayload) ||
		errors.Is(err, wire.ErrFieldMismatch) ||
		errors.Is(err, wire.ErrUnknownMsgType)
}

func (d *Dispatcher) report(pos *sim.HookPos, env *Envelope, err error) {
	d.InvokeHook(sim.HookCtx{
		Domain: d,
		Pos:    pos,
		Item:   env,
		Detail: err,
	})
}
