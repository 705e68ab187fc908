package tracing

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

// CSVTracer stores the completed tasks into a CSV file.
type CSVTracer struct {
	path string
	file *os.File

	open       map[string]Task
	tasks      []Task
	bufferSize int
}

// NewCSVTracer creates a new CSVTracer.
func NewCSVTracer(path string) *CSVTracer {
	return &CSVTracer{
		path:       path,
		open:       make(map[string]Task),
		bufferSize: 1000,
	}
}

// Init creates the tracing csv file. If the file already exists, it will be
// overwritten.
func (t *CSVTracer) Init() {
	file, err := os.Create(t.path)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "ID, ParentID, Kind, What, Where, Start, End, Detail\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// StartTask marks the start of a task.
func (t *CSVTracer) StartTask(task Task) {
	t.open[task.ID] = task
}

// EndTask completes a task and buffers it for writing.
func (t *CSVTracer) EndTask(task Task) {
	started, found := t.open[task.ID]
	if !found {
		return
	}
	delete(t.open, task.ID)

	started.EndTime = task.EndTime
	started.Detail = task.Detail
	t.tasks = append(t.tasks, started)

	if len(t.tasks) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered tasks to the CSV file.
func (t *CSVTracer) Flush() {
	for _, task := range t.tasks {
		fmt.Fprintf(t.file, "%s, %s, %s, %s, %s, %.10f, %.10f, %s\n",
			task.ID,
			task.ParentID,
			task.Kind,
			task.What,
			task.Where,
			task.StartTime,
			task.EndTime,
			formatDetail(task.Detail),
		)
	}

	t.tasks = nil
}
