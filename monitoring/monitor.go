// Package monitoring turns a running simulation into a small HTTP server,
// which allows pausing the engine, reading the virtual clock, and inspecting
// peers from outside the process.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	engine     sim.Engine
	runtimes   []*overlay.Runtime
	portNumber int
	actualPort int
	progress   *Progress
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		progress: NewProgress(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
	e.AcceptHook(m.progress)
}

// RegisterRuntimes registers the overlay runtimes to be monitored.
func (m *Monitor) RegisterRuntimes(runtimes []*overlay.Runtime) {
	m.runtimes = runtimes
}

// Port returns the port the server listens on, once StartServer ran.
func (m *Monitor) Port() int {
	return m.actualPort
}

// StartServer starts the monitor as a web server. The router is served
// directly, so several monitored simulations can coexist in one process.
func (m *Monitor) StartServer() {
	r := m.router()

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.actualPort = listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		m.actualPort)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

// OpenUI opens the monitor in the default browser.
func (m *Monitor) OpenUI() {
	err := browser.OpenURL(
		fmt.Sprintf("http://localhost:%d/api/progress", m.actualPort))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open browser: %s\n", err)
	}
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.reportProgress)
	r.HandleFunc("/api/peers", m.listPeers)
	r.HandleFunc("/api/peer/{name}", m.listPeerDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

type progressRsp struct {
	Now           sim.VTimeInSec `json:"now"`
	EventsHandled uint64         `json:"events_handled"`
	WallSeconds   float64        `json:"wall_seconds"`
	VirtualPerSec float64        `json:"virtual_seconds_per_wall_second"`
}

func (m *Monitor) reportProgress(w http.ResponseWriter, _ *http.Request) {
	rsp := progressRsp{
		Now:           m.engine.CurrentTime(),
		EventsHandled: m.progress.EventsHandled(),
		WallSeconds:   m.progress.WallSeconds(),
	}
	if rsp.WallSeconds > 0 {
		rsp.VirtualPerSec = float64(rsp.Now) / rsp.WallSeconds
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listPeers(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, rt := range m.runtimes {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "{\"name\":\"%s\",\"state\":\"%s\"}",
			rt.Name(), rt.State())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) listPeerDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rt := m.findRuntimeOr404(w, name)
	if rt == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(rt.Protocol())
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findRuntimeOr404(
	w http.ResponseWriter,
	name string,
) *overlay.Runtime {
	var runtime *overlay.Runtime
	for _, rt := range m.runtimes {
		if rt.Name() == name {
			runtime = rt
		}
	}

	if runtime == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Peer not found"))
		dieOnErr(err)
	}

	return runtime
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
