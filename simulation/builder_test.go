package simulation_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/simulation"
)

func noopVariant(rt *overlay.Runtime) (overlay.Protocol, error) {
	return &chatter{rt: rt}, nil
}

func expectConfigErr(err error, param string) {
	GinkgoHelper()

	var cfgErr *simulation.ConfigurationError
	Expect(errors.As(err, &cfgErr)).To(BeTrue())
	Expect(cfgErr.Param).To(Equal(param))
}

var _ = Describe("Builder", func() {
	var b simulation.Builder

	BeforeEach(func() {
		b = simulation.MakeBuilder().
			WithPeerCount(4).
			WithDuration(10).
			WithOverlay("chat", noopVariant)
	})

	It("should build a valid configuration", func() {
		s, err := b.Build()

		Expect(err).ToNot(HaveOccurred())
		Expect(s).ToNot(BeNil())
	})

	It("should reject a non-positive peer count", func() {
		_, err := b.WithPeerCount(0).Build()
		expectConfigErr(err, "peer count")
	})

	It("should reject a missing duration", func() {
		_, err := simulation.MakeBuilder().
			WithPeerCount(4).
			WithOverlay("chat", noopVariant).
			Build()
		expectConfigErr(err, "duration")
	})

	It("should reject a duration on an indefinite run", func() {
		_, err := b.RunIndefinitely().Build()
		expectConfigErr(err, "duration")
	})

	It("should reject a missing topology", func() {
		_, err := b.WithTopology(nil).Build()
		expectConfigErr(err, "topology")
	})

	It("should reject a run without overlays", func() {
		_, err := simulation.MakeBuilder().
			WithPeerCount(4).
			WithDuration(10).
			Build()
		expectConfigErr(err, "overlays")
	})

	It("should reject an empty overlay name", func() {
		_, err := b.WithOverlay("", noopVariant).Build()
		expectConfigErr(err, "overlays")
	})

	It("should reject an overlay without a variant", func() {
		_, err := b.WithOverlay("broken", nil).Build()
		expectConfigErr(err, "overlays")
	})

	It("should reject duplicate overlay names", func() {
		_, err := b.WithOverlay("chat", noopVariant).Build()
		expectConfigErr(err, "overlays")
	})
})
