package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/grimadas/asci-a27/sim"
)

// A Progress is a hook that tallies processed events, which lets the monitor
// report how fast virtual time advances against wall time.
type Progress struct {
	startTime     time.Time
	eventsHandled uint64
}

// NewProgress creates a Progress tracker starting now.
func NewProgress() *Progress {
	return &Progress{startTime: time.Now()}
}

// Func counts the processed events.
func (p *Progress) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	atomic.AddUint64(&p.eventsHandled, 1)
}

// EventsHandled returns the number of events processed so far.
func (p *Progress) EventsHandled() uint64 {
	return atomic.LoadUint64(&p.eventsHandled)
}

// WallSeconds returns the wall-clock seconds elapsed since the tracker was
// created.
func (p *Progress) WallSeconds() float64 {
	return time.Since(p.startTime).Seconds()
}
