package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler is a handler that is called after the simulation
// ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until the queue drains or a stop signal is
	// processed.
	Run() error

	// RunUntil processes events that happen strictly before the given time.
	// Events scheduled at or after the horizon stay in the queue.
	RunUntil(t VTimeInSec) error

	// Stop schedules a stop signal at the current time. Events already
	// enqueued at the same time with a lower sequence number still fire
	// before the engine halts.
	Stop()

	// Pause will pause the simulation until Continue is called.
	Pause()

	// Continue will continue the paused simulation.
	Continue()

	// RegisterSimulationEndHandler registers a handler that performs some
	// actions after the simulation is finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandler.
	Finished()
}
