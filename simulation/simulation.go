package simulation

import (
	"fmt"

	"github.com/grimadas/asci-a27/datarecording"
	"github.com/grimadas/asci-a27/monitoring"
	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/sim"
	"github.com/grimadas/asci-a27/tracing"
)

// A Simulation owns the engine, the peers, and the overlay instances of one
// run.
type Simulation struct {
	settings Builder

	engine     sim.Engine
	registry   *network.Registry
	dispatcher *overlay.Dispatcher

	schedulers map[network.Address]*sim.TaskScheduler
	runtimes   []*overlay.Runtime
	byOverlay  map[string][]*overlay.Runtime

	recorder datarecording.DataRecorder
	tracers  []tracing.Tracer
	monitor  *monitoring.Monitor

	report *Report
}

func newSimulation(b Builder) *Simulation {
	s := &Simulation{
		settings:   b,
		engine:     sim.NewSerialEngine(),
		registry:   network.NewRegistry(),
		schedulers: make(map[network.Address]*sim.TaskScheduler),
		byOverlay:  make(map[string][]*overlay.Runtime),
		report:     &Report{},
	}

	s.dispatcher = overlay.NewDispatcher(s.engine, b.latency, b.delay)

	if b.eventLogger != nil {
		s.engine.AcceptHook(sim.NewEventLogger(b.eventLogger))
	}

	if b.csvTracePath != "" {
		csvTracer := tracing.NewCSVTracer(b.csvTracePath)
		csvTracer.Init()
		s.tracers = append(s.tracers, csvTracer)
	}

	if b.recordPath != "" {
		s.recorder = datarecording.New(b.recordPath)
		s.tracers = append(s.tracers,
			tracing.NewDBTracer(s.engine, s.recorder))
	}

	for _, t := range s.tracers {
		tracing.CollectMessages(s.dispatcher, t)
	}

	collector := &reportCollector{tt: s.engine, report: s.report}
	s.dispatcher.AcceptHook(collector)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		s.monitor.WithPortNumber(b.monitorPort)
		s.monitor.RegisterEngine(s.engine)
	}

	return s
}

// Engine returns the engine that drives the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Registry returns the peer registry of the simulation.
func (s *Simulation) Registry() *network.Registry {
	return s.registry
}

// DataRecorder returns the recording backend, or nil when recording is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.recorder
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Runtimes returns all the overlay runtimes in creation order.
func (s *Simulation) Runtimes() []*overlay.Runtime {
	return s.runtimes
}

// Protocols returns the protocol instances of one declared overlay in peer
// creation order.
func (s *Simulation) Protocols(overlayName string) []overlay.Protocol {
	runtimes := s.byOverlay[overlayName]

	out := make([]overlay.Protocol, 0, len(runtimes))
	for _, rt := range runtimes {
		out = append(out, rt.Protocol())
	}

	return out
}

// Stop requests the run to halt at the current virtual time. Indefinite runs
// end this way; timed runs may end early.
func (s *Simulation) Stop() {
	s.engine.Stop()
}

// Run performs the whole simulation: setup, event processing, and teardown.
// Setup failures abort before any event is processed. Per-peer faults during
// the run are collected into the report instead.
func (s *Simulation) Run() (*Report, error) {
	if err := s.setUp(); err != nil {
		return nil, fmt.Errorf("simulation setup: %w", err)
	}

	if s.monitor != nil {
		s.monitor.StartServer()
	}

	var err error
	if s.settings.indefinite {
		err = s.engine.Run()
	} else {
		err = s.engine.RunUntil(s.settings.duration)
	}
	if err != nil {
		return nil, fmt.Errorf("simulation run: %w", err)
	}

	s.tearDown()

	return s.report, nil
}

func (s *Simulation) setUp() error {
	addrs := network.DefaultAddresses(s.settings.peerCount)

	for _, addr := range addrs {
		if _, err := s.registry.CreatePeer(addr); err != nil {
			return err
		}

		s.schedulers[addr] = sim.NewTaskScheduler(addr.Short(), s.engine)
	}

	if err := s.registry.Wire(s.settings.topology(addrs)); err != nil {
		return err
	}

	for _, scheduler := range s.orderedSchedulers(addrs) {
		scheduler.AcceptHook(&reportCollector{
			tt:     s.engine,
			report: s.report,
		})

		for _, t := range s.tracers {
			tracing.CollectTasks(scheduler, t)
		}
	}

	for _, peer := range s.registry.Peers() {
		for _, declared := range s.settings.overlays {
			rt := overlay.NewRuntime(
				declared.name,
				peer,
				s.engine,
				s.dispatcher,
				s.schedulers[peer.Address()],
			)

			if _, err := rt.Instantiate(declared.variant); err != nil {
				return fmt.Errorf("overlay %s on peer %s: %w",
					declared.name, peer.Address().Short(), err)
			}

			if err := s.dispatcher.Attach(rt); err != nil {
				return err
			}

			for _, t := range s.tracers {
				tracing.CollectLifecycle(rt, s.engine, t)
			}

			s.runtimes = append(s.runtimes, rt)
			s.byOverlay[declared.name] =
				append(s.byOverlay[declared.name], rt)
		}
	}

	if s.monitor != nil {
		s.monitor.RegisterRuntimes(s.runtimes)
	}

	for _, rt := range s.runtimes {
		rt.ScheduleStart(0)
	}

	return nil
}

func (s *Simulation) orderedSchedulers(
	addrs []network.Address,
) []*sim.TaskScheduler {
	out := make([]*sim.TaskScheduler, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, s.schedulers[addr])
	}
	return out
}

func (s *Simulation) tearDown() {
	for _, rt := range s.runtimes {
		rt.Stop()
	}

	s.engine.Finished()

	for _, t := range s.tracers {
		if flusher, ok := t.(interface{ Flush() }); ok {
			flusher.Flush()
		}
	}

	if s.recorder != nil {
		s.recorder.Flush()
	}

	s.report.EndTime = s.engine.CurrentTime()
}

// Terminate releases the resources of the simulation.
func (s *Simulation) Terminate() {
	if s.recorder != nil {
		s.recorder.Close()
	}
}
