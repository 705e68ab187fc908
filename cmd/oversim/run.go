package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/grimadas/asci-a27/examples/pingpong"
	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/sim"
	"github.com/grimadas/asci-a27/simulation"
)

var runFlags struct {
	peers       int
	duration    float64
	topology    string
	degree      int
	latency     string
	latencyMean float64
	seed        int64
	interval    float64
	record      string
	trace       string
	monitor     bool
	open        bool
	verbose     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ping-pong overlay on a simulated network",
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()

	f.IntVar(&runFlags.peers, "peers", 6, "number of peers")
	f.Float64Var(&runFlags.duration, "duration", 10,
		"virtual seconds to simulate")
	f.StringVar(&runFlags.topology, "topology", "fully",
		"topology: fully, ring, star, or random")
	f.IntVar(&runFlags.degree, "degree", 3,
		"neighbors per peer for the random topology")
	f.StringVar(&runFlags.latency, "latency", "zero",
		"latency model: zero, fixed, uniform, or lognormal")
	f.Float64Var(&runFlags.latencyMean, "latency-mean", 0.1,
		"mean link latency in virtual seconds")
	f.Int64Var(&runFlags.seed, "seed", 1,
		"seed for random topologies and latency models")
	f.Float64Var(&runFlags.interval, "interval", 2,
		"virtual seconds between ping rounds")
	f.StringVar(&runFlags.record, "record", "",
		"record traces into a SQLite database at this path")
	f.StringVar(&runFlags.trace, "trace", "",
		"write a CSV trace to this path")
	f.BoolVar(&runFlags.monitor, "monitor", false,
		"serve the monitoring API while the simulation runs")
	f.BoolVar(&runFlags.open, "open", false,
		"open the monitoring API in the browser")
	f.BoolVar(&runFlags.verbose, "verbose", false,
		"log every processed event")

	rootCmd.AddCommand(runCmd)
}

func runSimulation(_ *cobra.Command, _ []string) error {
	topology, err := pickTopology()
	if err != nil {
		return err
	}

	latency, err := pickLatency()
	if err != nil {
		return err
	}

	b := simulation.MakeBuilder().
		WithPeerCount(runFlags.peers).
		WithDuration(sim.VTimeInSec(runFlags.duration)).
		WithTopology(topology).
		WithLatencyModel(latency).
		WithOverlay("pingpong",
			pingpong.Variant(sim.VTimeInSec(runFlags.interval)))

	if runFlags.record != "" {
		b = b.WithRecording(runFlags.record)
	}

	if runFlags.trace != "" {
		b = b.WithCSVTracing(runFlags.trace)
	}

	if runFlags.monitor {
		b = b.WithMonitor(monitorPort())
	}

	if runFlags.verbose {
		b = b.WithEventLogging(log.New(os.Stderr, "", 0))
	}

	s, err := b.Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	if runFlags.open {
		go openWhenServing(s)
	}

	report, err := s.Run()
	if err != nil {
		return err
	}

	printReport(s, report)

	return nil
}

func pickTopology() (network.Generator, error) {
	switch runFlags.topology {
	case "fully":
		return network.FullyConnected, nil
	case "ring":
		return network.Ring, nil
	case "star":
		return network.Star, nil
	case "random":
		if runFlags.degree < 1 {
			return nil, fmt.Errorf(
				"the random topology needs a positive --degree, got %d",
				runFlags.degree)
		}
		return network.RandomGraph(runFlags.degree, runFlags.seed), nil
	default:
		return nil, fmt.Errorf("unknown topology %q", runFlags.topology)
	}
}

func pickLatency() (network.LatencyModel, error) {
	mean := sim.VTimeInSec(runFlags.latencyMean)

	switch runFlags.latency {
	case "zero":
		return network.Zero{}, nil
	case "fixed":
		return network.Fixed{Delay: mean}, nil
	case "uniform":
		return network.NewUniform(0, 2*mean, runFlags.seed), nil
	case "lognormal":
		return network.NewLogNormal(mean, runFlags.seed), nil
	default:
		return nil, fmt.Errorf("unknown latency model %q", runFlags.latency)
	}
}

// monitorPort reads OVERSIM_MONITOR_PORT, falling back to a random port.
func monitorPort() int {
	v := os.Getenv("OVERSIM_MONITOR_PORT")
	if v == "" {
		return 0
	}

	port, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr,
			"Ignoring invalid OVERSIM_MONITOR_PORT %q\n", v)
		return 0
	}

	return port
}

// openWhenServing waits for the monitoring server to pick its port, then
// opens the browser.
func openWhenServing(s *simulation.Simulation) {
	for i := 0; i < 100; i++ {
		if m := s.Monitor(); m != nil && m.Port() != 0 {
			m.OpenUI()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func printReport(s *simulation.Simulation, report *simulation.Report) {
	fmt.Printf("Simulated %.2f virtual seconds with %d peers\n",
		float64(report.EndTime), runFlags.peers)
	fmt.Printf("  messages sent:      %d\n", report.MessagesSent)
	fmt.Printf("  messages delivered: %d\n", report.MessagesDelivered)
	fmt.Printf("  messages dropped:   %d\n", report.MessagesDropped)
	fmt.Printf("  messages unhandled: %d\n", report.MessagesUnhandled)
	fmt.Printf("  tasks fired:        %d\n", report.TasksFired)

	for _, e := range report.PeerErrors {
		fmt.Printf("  fault at t=%.6f on %s@%s: %v\n",
			float64(e.Time), e.Overlay, e.Peer.Short(), e.Err)
	}

	fmt.Println("Per-peer ping-pong stats:")
	for _, rt := range s.Runtimes() {
		pp := rt.Protocol().(*pingpong.PingPong)
		fmt.Printf("  %s: sent %d, answered %d, avg RTT %.6fs\n",
			rt.Address().Short(), pp.PingsSent, pp.PongsReceived,
			float64(pp.AvgRTT()))
	}
}
