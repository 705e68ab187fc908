package overlay_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/sim"
	"github.com/grimadas/asci-a27/wire"
)

const testMsgType wire.MsgType = 9

type testMsg struct {
	Seq  uint64
	Body string
	Frac float64
}

func (m *testMsg) MsgType() wire.MsgType {
	return testMsgType
}

func (m *testMsg) EncodePayload(e *wire.Encoder) {
	e.PutUint64(m.Seq)
	e.PutString(m.Body)
	e.PutFloat64(m.Frac)
}

func (m *testMsg) DecodePayload(d *wire.Decoder) error {
	var err error

	m.Seq, err = d.Uint64()
	if err != nil {
		return err
	}

	m.Body, err = d.String()
	if err != nil {
		return err
	}

	m.Frac, err = d.Float64()
	if err != nil {
		return err
	}

	return nil
}

// skewedMsg claims the same tag as testMsg but declares a different field
// layout, so decoding a testMsg through it fails.
type skewedMsg struct {
	Body string
}

func (m *skewedMsg) MsgType() wire.MsgType {
	return testMsgType
}

func (m *skewedMsg) EncodePayload(e *wire.Encoder) {
	e.PutString(m.Body)
}

func (m *skewedMsg) DecodePayload(d *wire.Decoder) error {
	body, err := d.String()
	if err != nil {
		return err
	}

	m.Body = body

	return nil
}

type hookRecorder struct {
	ctxs []sim.HookCtx
}

func (r *hookRecorder) Func(ctx sim.HookCtx) {
	r.ctxs = append(r.ctxs, ctx)
}

func (r *hookRecorder) at(pos *sim.HookPos) []sim.HookCtx {
	out := make([]sim.HookCtx, 0)
	for _, ctx := range r.ctxs {
		if ctx.Pos == pos {
			out = append(out, ctx)
		}
	}
	return out
}

type delivered struct {
	from    network.Address
	payload *testMsg
	at      sim.VTimeInSec
}

// testFixture wires two peers with runtimes of one overlay.
type testFixture struct {
	engine     *sim.SerialEngine
	registry   *network.Registry
	dispatcher *overlay.Dispatcher
	addrs      []network.Address
	runtimes   []*overlay.Runtime
	recorder   *hookRecorder
}

func makeFixture(
	latency network.LatencyModel,
	delay overlay.DelayPolicy,
) *testFixture {
	f := &testFixture{
		engine:   sim.NewSerialEngine(),
		registry: network.NewRegistry(),
		recorder: &hookRecorder{},
	}

	f.dispatcher = overlay.NewDispatcher(f.engine, latency, delay)
	f.dispatcher.AcceptHook(f.recorder)

	f.addrs = network.DefaultAddresses(2)
	for _, addr := range f.addrs {
		peer, err := f.registry.CreatePeer(addr)
		Expect(err).ToNot(HaveOccurred())

		scheduler := sim.NewTaskScheduler(addr.Short(), f.engine)
		rt := overlay.NewRuntime("test", peer, f.engine, f.dispatcher, scheduler)
		Expect(f.dispatcher.Attach(rt)).To(Succeed())
		f.runtimes = append(f.runtimes, rt)
	}

	Expect(f.registry.Wire(network.FullyConnected(f.addrs))).To(Succeed())

	return f
}

var _ = Describe("Dispatcher", func() {
	It("should deliver a message exactly once with the sent field values", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		got := make([]delivered, 0)
		err := f.runtimes[1].RegisterHandler(
			func() wire.Payload { return &testMsg{} },
			func(from network.Address, payload wire.Payload) error {
				got = append(got, delivered{
					from:    from,
					payload: payload.(*testMsg),
					at:      f.engine.CurrentTime(),
				})
				return nil
			})
		Expect(err).ToNot(HaveOccurred())

		sent := &testMsg{Seq: 42, Body: "ping", Frac: 1.5}
		Expect(f.runtimes[0].Send(f.addrs[1], sent)).To(Succeed())

		_ = f.engine.Run()

		Expect(got).To(HaveLen(1))
		Expect(got[0].from).To(Equal(f.addrs[0]))
		Expect(got[0].payload.Seq).To(Equal(uint64(42)))
		Expect(got[0].payload.Body).To(Equal("ping"))
		Expect(got[0].payload.Frac).To(Equal(1.5))
		Expect(got[0].at).To(Equal(sim.VTimeInSec(0)))

		Expect(f.recorder.at(overlay.HookPosMsgSend)).To(HaveLen(1))
		Expect(f.recorder.at(overlay.HookPosMsgDeliver)).To(HaveLen(1))
	})

	It("should apply the link latency", func() {
		f := makeFixture(network.Fixed{Delay: 0.25}, overlay.NoDelay{})

		var deliveredAt sim.VTimeInSec
		err := f.runtimes[1].RegisterHandler(
			func() wire.Payload { return &testMsg{} },
			func(_ network.Address, _ wire.Payload) error {
				deliveredAt = f.engine.CurrentTime()
				return nil
			})
		Expect(err).ToNot(HaveOccurred())

		Expect(f.runtimes[0].Send(f.addrs[1], &testMsg{Seq: 1})).To(Succeed())

		_ = f.engine.Run()

		Expect(deliveredAt).To(Equal(sim.VTimeInSec(0.25)))
	})

	It("should apply the processing-delay policy", func() {
		f := makeFixture(
			network.Fixed{Delay: 0.25},
			overlay.FixedDelay{Delay: 0.05},
		)

		var deliveredAt sim.VTimeInSec
		err := f.runtimes[1].RegisterHandler(
			func() wire.Payload { return &testMsg{} },
			func(_ network.Address, _ wire.Payload) error {
				deliveredAt = f.engine.CurrentTime()
				return nil
			})
		Expect(err).ToNot(HaveOccurred())

		Expect(f.runtimes[0].Send(f.addrs[1], &testMsg{Seq: 1})).To(Succeed())

		_ = f.engine.Run()

		Expect(deliveredAt).To(Equal(sim.VTimeInSec(0.30)))
	})

	It("should report unhandled message types and keep running", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		// Recipient registers no handler.
		Expect(f.runtimes[0].Send(f.addrs[1], &testMsg{Seq: 1})).To(Succeed())

		laterFired := false
		scheduler := sim.NewTaskScheduler("later", f.engine)
		Expect(scheduler.Register("later", func() {
			laterFired = true
		}, 1.0)).To(Succeed())

		_ = f.engine.Run()

		unhandled := f.recorder.at(overlay.HookPosMsgUnhandled)
		Expect(unhandled).To(HaveLen(1))
		Expect(errors.Is(unhandled[0].Detail.(error),
			overlay.ErrUnhandledMessageType)).To(BeTrue())
		Expect(laterFired).To(BeTrue())
	})

	It("should drop payloads that fail to decode and keep running", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		handlerCalls := 0
		err := f.runtimes[1].RegisterHandler(
			func() wire.Payload { return &skewedMsg{} },
			func(_ network.Address, _ wire.Payload) error {
				handlerCalls++
				return nil
			})
		Expect(err).ToNot(HaveOccurred())

		Expect(f.runtimes[0].Send(f.addrs[1], &testMsg{Seq: 1})).To(Succeed())

		laterFired := false
		scheduler := sim.NewTaskScheduler("later", f.engine)
		Expect(scheduler.Register("later", func() {
			laterFired = true
		}, 1.0)).To(Succeed())

		_ = f.engine.Run()

		dropped := f.recorder.at(overlay.HookPosMsgDropped)
		Expect(dropped).To(HaveLen(1))
		Expect(errors.Is(dropped[0].Detail.(error),
			wire.ErrFieldMismatch)).To(BeTrue())

		Expect(handlerCalls).To(BeZero())
		Expect(f.recorder.at(overlay.HookPosHandlerError)).To(BeEmpty())
		Expect(laterFired).To(BeTrue())
	})

	It("should isolate handler errors to the offending peer", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		boom := errors.New("boom")
		err := f.runtimes[1].RegisterHandler(
			func() wire.Payload { return &testMsg{} },
			func(_ network.Address, _ wire.Payload) error {
				return boom
			})
		Expect(err).ToNot(HaveOccurred())

		deliveredToZero := 0
		err = f.runtimes[0].RegisterHandler(
			func() wire.Payload { return &testMsg{} },
			func(_ network.Address, _ wire.Payload) error {
				deliveredToZero++
				return nil
			})
		Expect(err).ToNot(HaveOccurred())

		Expect(f.runtimes[0].Send(f.addrs[1], &testMsg{Seq: 1})).To(Succeed())
		Expect(f.runtimes[1].Send(f.addrs[0], &testMsg{Seq: 2})).To(Succeed())

		_ = f.engine.Run()

		handlerErrs := f.recorder.at(overlay.HookPosHandlerError)
		Expect(handlerErrs).To(HaveLen(1))
		Expect(handlerErrs[0].Detail).To(MatchError(boom))
		Expect(deliveredToZero).To(Equal(1))
	})

	It("should drop deliveries to a stopped overlay", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		err := f.runtimes[1].RegisterHandler(
			func() wire.Payload { return &testMsg{} },
			func(_ network.Address, _ wire.Payload) error {
				Fail("stopped overlay must not handle messages")
				return nil
			})
		Expect(err).ToNot(HaveOccurred())

		Expect(f.runtimes[0].Send(f.addrs[1], &testMsg{Seq: 1})).To(Succeed())
		f.runtimes[1].Stop()

		_ = f.engine.Run()

		Expect(f.recorder.at(overlay.HookPosMsgDropped)).To(HaveLen(1))
	})

	It("should refuse sends to peers outside the verified set", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		stranger := network.DefaultAddresses(3)[2]
		err := f.runtimes[0].Send(stranger, &testMsg{Seq: 1})
		Expect(errors.Is(err, overlay.ErrPeerNotVerified)).To(BeTrue())
	})

	It("should refuse to attach two runtimes for the same route", func() {
		f := makeFixture(network.Zero{}, overlay.NoDelay{})

		peer, _ := f.registry.Peer(f.addrs[0])
		scheduler := sim.NewTaskScheduler("dup", f.engine)
		dup := overlay.NewRuntime("test", peer, f.engine, f.dispatcher, scheduler)

		err := f.dispatcher.Attach(dup)
		Expect(errors.Is(err, overlay.ErrDuplicateRoute)).To(BeTrue())
	})
})
