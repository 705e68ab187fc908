// Package tracing records what the simulation did: message journeys, task
// fires, and overlay lifecycle transitions, expressed as tasks with a start
// and an end in virtual time.
package tracing

import (
	"fmt"

	"github.com/grimadas/asci-a27/sim"
)

// A Task is one traced activity. A message becomes a task spanning
// send to delivery; a task fire or a lifecycle transition is an
// instantaneous task. Detail carries the fault that ended a task early,
// such as a decode error on a dropped message.
type Task struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id"`
	Kind      string         `json:"kind"`
	What      string         `json:"what"`
	Where     string         `json:"where"`
	StartTime sim.VTimeInSec `json:"start_time"`
	EndTime   sim.VTimeInSec `json:"end_time"`
	Detail    interface{}    `json:"-"`
}

// formatDetail renders a task detail for storage. A nil detail becomes the
// empty string.
func formatDetail(d interface{}) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%v", d)
}

// TaskFilter is a function that can filter interesting tasks. If this
// function returns true, the task is considered useful.
type TaskFilter func(t Task) bool
