package overlay

// A Protocol is the extension point of the engine. One instance runs on one
// peer and owns its state; it reaches the outside world only through the
// Runtime it was constructed with.
type Protocol interface {
	// Started is invoked exactly once when the owning peer's simulation
	// phase begins. Protocols register their initial tasks here.
	Started()
}

// A StopHandler is a Protocol that wants to be notified at teardown, before
// its runtime refuses further sends and task registrations.
type StopHandler interface {
	Stopped()
}

// A Variant constructs a protocol instance bound to a runtime. Handler
// registration happens here, so a variant that registers conflicting
// handlers fails the whole setup.
type Variant func(rt *Runtime) (Protocol, error)
