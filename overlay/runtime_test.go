package overlay_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/wire"
)

type recordingProtocol struct {
	rt *overlay.Runtime

	startedCount int
	stoppedCount int
	stateAtStart overlay.State
}

func (p *recordingProtocol) Started() {
	p.startedCount++
	p.stateAtStart = p.rt.State()
}

func (p *recordingProtocol) Stopped() {
	p.stoppedCount++
}

func recordingVariant(out **recordingProtocol) overlay.Variant {
	return func(rt *overlay.Runtime) (overlay.Protocol, error) {
		p := &recordingProtocol{rt: rt}
		*out = p
		return p, nil
	}
}

var _ = Describe("Runtime", func() {
	var (
		f        *testFixture
		rt       *overlay.Runtime
		protocol *recordingProtocol
	)

	BeforeEach(func() {
		f = makeFixture(network.Zero{}, overlay.NoDelay{})
		rt = f.runtimes[0]

		_, err := rt.Instantiate(recordingVariant(&protocol))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should walk the lifecycle from Created to Running", func() {
		Expect(rt.State()).To(Equal(overlay.Created))

		rt.ScheduleStart(0)
		_ = f.engine.Run()

		Expect(protocol.startedCount).To(Equal(1))
		Expect(protocol.stateAtStart).To(Equal(overlay.Started))
		Expect(rt.State()).To(Equal(overlay.Running))
	})

	It("should invoke Started only once", func() {
		rt.ScheduleStart(0)
		rt.ScheduleStart(0)
		_ = f.engine.Run()

		Expect(protocol.startedCount).To(Equal(1))
	})

	It("should notify the protocol at teardown", func() {
		rt.ScheduleStart(0)
		_ = f.engine.Run()

		rt.Stop()
		rt.Stop()

		Expect(protocol.stoppedCount).To(Equal(1))
		Expect(rt.State()).To(Equal(overlay.Stopped))
	})

	It("should refuse capabilities after Stopped", func() {
		rt.ScheduleStart(0)
		_ = f.engine.Run()
		rt.Stop()

		err := rt.Send(f.addrs[1], &testMsg{Seq: 1})
		Expect(errors.Is(err, overlay.ErrOverlayStopped)).To(BeTrue())

		err = rt.RegisterTask("t", func() {}, 0)
		Expect(errors.Is(err, overlay.ErrOverlayStopped)).To(BeTrue())

		err = rt.RegisterRepeatingTask("t", func() {}, 0, 1)
		Expect(errors.Is(err, overlay.ErrOverlayStopped)).To(BeTrue())

		err = rt.AddVerifiedPeer(f.addrs[1])
		Expect(errors.Is(err, overlay.ErrOverlayStopped)).To(BeTrue())
	})

	It("should refuse duplicate handlers for one message type", func() {
		factory := func() wire.Payload { return &testMsg{} }
		noop := func(_ network.Address, _ wire.Payload) error { return nil }

		Expect(rt.RegisterHandler(factory, noop)).To(Succeed())

		err := rt.RegisterHandler(factory, noop)
		Expect(errors.Is(err, overlay.ErrDuplicateHandler)).To(BeTrue())
	})

	It("should support dynamic peer discovery", func() {
		stranger := network.DefaultAddresses(3)[2]

		_, err := f.registry.CreatePeer(stranger)
		Expect(err).ToNot(HaveOccurred())

		err = rt.Send(stranger, &testMsg{Seq: 1})
		Expect(errors.Is(err, overlay.ErrPeerNotVerified)).To(BeTrue())

		Expect(rt.AddVerifiedPeer(stranger)).To(Succeed())
		Expect(rt.VerifiedPeers()).To(ContainElement(stranger))

		Expect(rt.Send(stranger, &testMsg{Seq: 1})).To(Succeed())
	})

	It("should schedule and cancel tasks through the peer scheduler", func() {
		fired := false

		Expect(rt.RegisterTask("once", func() { fired = true }, 1.0)).
			To(Succeed())
		Expect(rt.CancelTask("once")).To(BeTrue())
		Expect(rt.CancelTask("once")).To(BeFalse())

		_ = f.engine.Run()

		Expect(fired).To(BeFalse())
	})
})
