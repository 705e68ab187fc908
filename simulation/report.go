package simulation

import (
	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/sim"
)

// A PeerError is a fault isolated to one overlay instance. The rest of the
// simulation kept running when it occurred.
type PeerError struct {
	Peer    network.Address
	Overlay string
	Time    sim.VTimeInSec
	Err     error
}

// A Report aggregates what happened during a run.
type Report struct {
	EndTime sim.VTimeInSec

	MessagesSent      uint64
	MessagesDelivered uint64
	MessagesDropped   uint64
	MessagesUnhandled uint64
	TasksFired        uint64

	PeerErrors []PeerError
}

// OK tells if the run completed without any per-peer fault.
func (r *Report) OK() bool {
	return len(r.PeerErrors) == 0
}

// A reportCollector is a hook that counts message and task activity into the
// report.
type reportCollector struct {
	tt     sim.TimeTeller
	report *Report
}

func (c *reportCollector) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case overlay.HookPosMsgSend:
		c.report.MessagesSent++
	case overlay.HookPosMsgDeliver:
		c.report.MessagesDelivered++
	case overlay.HookPosMsgDropped:
		c.report.MessagesDropped++
	case overlay.HookPosMsgUnhandled:
		c.report.MessagesUnhandled++
	case overlay.HookPosHandlerError:
		env := ctx.Item.(*overlay.Envelope)
		c.report.PeerErrors = append(c.report.PeerErrors, PeerError{
			Peer:    env.To,
			Overlay: env.Overlay,
			Time:    c.tt.CurrentTime(),
			Err:     ctx.Detail.(error),
		})
	case sim.HookPosTaskFire:
		c.report.TasksFired++
	}
}
