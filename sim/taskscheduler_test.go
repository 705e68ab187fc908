package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TaskScheduler", func() {
	var (
		engine    *SerialEngine
		scheduler *TaskScheduler
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		scheduler = NewTaskScheduler("Peer1", engine)
	})

	It("should fire a one-shot task after the delay", func() {
		fireTimes := make([]VTimeInSec, 0)

		err := scheduler.Register("hello", func() {
			fireTimes = append(fireTimes, engine.CurrentTime())
		}, 3.0)
		Expect(err).ToNot(HaveOccurred())

		_ = engine.Run()

		Expect(fireTimes).To(Equal([]VTimeInSec{3.0}))
		Expect(scheduler.Pending("hello")).To(BeFalse())
	})

	It("should fire a repeating task without drift", func() {
		fireTimes := make([]VTimeInSec, 0)

		err := scheduler.RegisterRepeating("tick", func() {
			fireTimes = append(fireTimes, engine.CurrentTime())
		}, 1.0, 2.0)
		Expect(err).ToNot(HaveOccurred())

		_ = engine.RunUntil(10.0)

		Expect(fireTimes).To(Equal(
			[]VTimeInSec{1.0, 3.0, 5.0, 7.0, 9.0}))
	})

	It("should reject duplicate task names", func() {
		err := scheduler.Register("hello", func() {}, 1.0)
		Expect(err).ToNot(HaveOccurred())

		err = scheduler.Register("hello", func() {}, 2.0)
		Expect(err).To(MatchError(ErrDuplicateTask))

		_ = engine.Run()

		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(1.0)))
	})

	It("should keep the original schedule when a duplicate is rejected", func() {
		fireTimes := make([]VTimeInSec, 0)

		err := scheduler.Register("hello", func() {
			fireTimes = append(fireTimes, engine.CurrentTime())
		}, 1.0)
		Expect(err).ToNot(HaveOccurred())

		err = scheduler.Register("hello", func() {
			fireTimes = append(fireTimes, -1)
		}, 2.0)
		Expect(err).To(MatchError(ErrDuplicateTask))

		_ = engine.Run()

		Expect(fireTimes).To(Equal([]VTimeInSec{1.0}))
	})

	It("should reject non-positive intervals", func() {
		err := scheduler.RegisterRepeating("tick", func() {}, 1.0, 0)
		Expect(err).To(MatchError(ErrInvalidInterval))

		err = scheduler.RegisterRepeating("tick", func() {}, 1.0, -2.0)
		Expect(err).To(MatchError(ErrInvalidInterval))
	})

	It("should reject negative delays", func() {
		err := scheduler.Register("hello", func() {}, -1.0)
		Expect(err).To(MatchError(ErrInvalidDelay))
	})

	It("should not fire a cancelled task", func() {
		fired := false

		err := scheduler.Register("hello", func() { fired = true }, 1.0)
		Expect(err).ToNot(HaveOccurred())

		Expect(scheduler.Cancel("hello")).To(BeTrue())

		_ = engine.Run()

		Expect(fired).To(BeFalse())
	})

	It("should report cancelling a nonexistent task without failing", func() {
		Expect(scheduler.Cancel("no-such-task")).To(BeFalse())
	})

	It("should stop a repeating task that cancels itself", func() {
		count := 0

		err := scheduler.RegisterRepeating("tick", func() {
			count++
			if count == 3 {
				scheduler.Cancel("tick")
			}
		}, 0, 1.0)
		Expect(err).ToNot(HaveOccurred())

		_ = engine.Run()

		Expect(count).To(Equal(3))
	})

	It("should allow a one-shot task to re-register itself", func() {
		fireTimes := make([]VTimeInSec, 0)

		var fn TaskFunc
		fn = func() {
			fireTimes = append(fireTimes, engine.CurrentTime())
			if len(fireTimes) < 3 {
				err := scheduler.Register("again", fn, 1.0)
				Expect(err).ToNot(HaveOccurred())
			}
		}

		err := scheduler.Register("again", fn, 1.0)
		Expect(err).ToNot(HaveOccurred())

		_ = engine.Run()

		Expect(fireTimes).To(Equal([]VTimeInSec{1.0, 2.0, 3.0}))
	})
})
