package sim

import (
	"log"
	"math"
	"reflect"
	"sync"
)

// A stopEvent halts the run that pops it. It is scheduled through the
// ordinary queue so that same-time events with a lower sequence number still
// fire first.
type stopEvent struct {
	*EventBase
}

// A SerialEngine is an Engine that always run events one after another.
type SerialEngine struct {
	HookableBase

	timeLock sync.RWMutex
	time     VTimeInSec
	queue    EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()
	//e.queue = NewInsertionQueue()

	return e
}

// Schedule register an event to be happen in the future.
func (e *SerialEngine) Schedule(evt Event) {
	now := e.readNow()
	if evt.Time() < now {
		log.Panicf(
			"scheduling an event earlier than current time, evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}

	e.queue.Push(evt)
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()
	return t
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine until the queue
// drains or a stop signal is processed.
func (e *SerialEngine) Run() error {
	return e.runUntil(VTimeInSec(math.Inf(1)))
}

// RunUntil processes events that happen strictly before the given time.
// Events at or after the horizon stay queued, and the clock is advanced to
// the horizon when the run returns.
func (e *SerialEngine) RunUntil(t VTimeInSec) error {
	return e.runUntil(t)
}

func (e *SerialEngine) runUntil(end VTimeInSec) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		if e.queue.Len() == 0 {
			e.advanceToHorizon(end)
			return nil
		}

		e.pauseLock.Lock()

		if e.queue.Peek().Time() >= end {
			e.advanceToHorizon(end)
			e.pauseLock.Unlock()
			return nil
		}

		evt := e.queue.Pop()
		now := e.readNow()
		if evt.Time() < now {
			log.Panicf(
				"cannot run event in the past, evt %s @ %.10f, now %.10f",
				reflect.TypeOf(evt), evt.Time(), now,
			)
		}
		e.writeNow(evt.Time())

		if _, isStop := evt.(stopEvent); isStop {
			e.pauseLock.Unlock()
			return nil
		}

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		handler := evt.Handler()
		_ = handler.Handle(evt)

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)

		e.pauseLock.Unlock()
	}
}

func (e *SerialEngine) advanceToHorizon(end VTimeInSec) {
	if math.IsInf(float64(end), 1) {
		return
	}

	if end > e.readNow() {
		e.writeNow(end)
	}
}

// Stop schedules a stop signal at the current time. Same-time events that
// were enqueued before the signal still fire before the engine halts.
func (e *SerialEngine) Stop() {
	evt := stopEvent{EventBase: NewEventBase(e.readNow(), nil)}
	e.queue.Push(evt)
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler to be called after the
// simulation ends.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished should be called after the simulation ends. This function
// calls all the registered SimulationEndHandler.
func (e *SerialEngine) Finished() {
	now := e.readNow()
	for _, h := range e.simulationEndHandlers {
		h.Handle(now)
	}
}
