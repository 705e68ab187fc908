package tracing

import (
	"sync"

	"github.com/grimadas/asci-a27/datarecording"
	"github.com/grimadas/asci-a27/sim"
	"github.com/tebeka/atexit"
)

type taskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
	Detail    string
}

// DBTracer stores completed tasks through a recording backend, so that
// traces land next to the other simulation records.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	tracingTasks map[string]Task
}

// NewDBTracer creates a DBTracer writing into the trace table of the
// backend.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	backend datarecording.DataRecorder,
) *DBTracer {
	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      backend,
		tracingTasks: make(map[string]Task),
	}

	t.backend.CreateTable("trace", taskTableEntry{})

	atexit.Register(func() { t.backend.Flush() })

	return t
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startingTaskMustBeValid(task)

	t.tracingTasks[task.ID] = task
}

func (t *DBTracer) startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task where must be set")
	}
}

// EndTask marks the end of a task and writes it to the backend.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}
	delete(t.tracingTasks, task.ID)

	t.backend.InsertData("trace", taskTableEntry{
		ID:        originalTask.ID,
		ParentID:  originalTask.ParentID,
		Kind:      originalTask.Kind,
		What:      originalTask.What,
		Location:  originalTask.Where,
		StartTime: float64(originalTask.StartTime),
		EndTime:   float64(task.EndTime),
		Detail:    formatDetail(task.Detail),
	})
}

// Flush writes all the pending records of the backend.
func (t *DBTracer) Flush() {
	t.backend.Flush()
}
