package sim

import (
	"errors"
)

// Task scheduling errors. They are local to the registering caller and never
// abort the simulation.
var (
	// ErrDuplicateTask is returned when a task name is already pending on
	// the same scheduler.
	ErrDuplicateTask = errors.New("task with the same name is already registered")

	// ErrInvalidInterval is returned when a repeating task is registered
	// with a non-positive interval.
	ErrInvalidInterval = errors.New("task interval must be positive")

	// ErrInvalidDelay is returned when a task is registered with a negative
	// initial delay.
	ErrInvalidDelay = errors.New("task delay must not be negative")
)

// HookPosTaskRegister is a hook position that triggers when a task is
// registered.
var HookPosTaskRegister = &HookPos{Name: "TaskRegister"}

// HookPosTaskFire is a hook position that triggers when a task fires.
var HookPosTaskFire = &HookPos{Name: "TaskFire"}

// HookPosTaskCancel is a hook position that triggers when a pending task is
// cancelled.
var HookPosTaskCancel = &HookPos{Name: "TaskCancel"}

// A TaskFunc is the callback of a scheduled task. It runs to completion on
// the event loop and must not block on real-time I/O.
type TaskFunc func()

// TaskInfo describes a task to the hooks.
type TaskInfo struct {
	Owner     string
	Name      string
	Time      VTimeInSec
	Repeating bool
}

type scheduledTask struct {
	name      string
	fn        TaskFunc
	interval  VTimeInSec
	repeating bool
	nextFire  VTimeInSec
}

// A taskFireEvent triggers one firing of a named task.
type taskFireEvent struct {
	*EventBase
	task *scheduledTask
}

// A TaskScheduler keeps the named tasks of one peer and turns them into
// events on the engine. Task names are unique per scheduler, with at most one
// pending fire event per name.
type TaskScheduler struct {
	HookableBase

	engine Engine
	owner  string
	tasks  map[string]*scheduledTask
}

// NewTaskScheduler creates a TaskScheduler that schedules on the given
// engine. The owner name identifies the peer in hooks and traces.
func NewTaskScheduler(owner string, engine Engine) *TaskScheduler {
	s := new(TaskScheduler)
	s.engine = engine
	s.owner = owner
	s.tasks = make(map[string]*scheduledTask)
	return s
}

// Name returns the owner name of the scheduler.
func (s *TaskScheduler) Name() string {
	return s.owner
}

// Register enqueues a one-shot task that fires once after the given delay.
func (s *TaskScheduler) Register(
	name string,
	fn TaskFunc,
	delay VTimeInSec,
) error {
	return s.register(name, fn, delay, 0, false)
}

// RegisterRepeating enqueues a task that first fires after the given delay
// and then re-fires every interval. Re-arming is relative to the scheduled
// fire time, not the completion time, so the cadence never drifts.
func (s *TaskScheduler) RegisterRepeating(
	name string,
	fn TaskFunc,
	delay VTimeInSec,
	interval VTimeInSec,
) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	return s.register(name, fn, delay, interval, true)
}

func (s *TaskScheduler) register(
	name string,
	fn TaskFunc,
	delay VTimeInSec,
	interval VTimeInSec,
	repeating bool,
) error {
	if delay < 0 {
		return ErrInvalidDelay
	}

	if _, found := s.tasks[name]; found {
		return ErrDuplicateTask
	}

	task := &scheduledTask{
		name:      name,
		fn:        fn,
		interval:  interval,
		repeating: repeating,
		nextFire:  s.engine.CurrentTime() + delay,
	}
	s.tasks[name] = task

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosTaskRegister,
		Item:   s.taskInfo(task),
	})

	s.scheduleFire(task)

	return nil
}

func (s *TaskScheduler) scheduleFire(task *scheduledTask) {
	evt := taskFireEvent{
		EventBase: NewEventBase(task.nextFire, s),
		task:      task,
	}
	s.engine.Schedule(evt)
}

// Cancel removes a pending task. It returns false when no task with the name
// exists, which is never treated as fatal.
func (s *TaskScheduler) Cancel(name string) bool {
	task, found := s.tasks[name]
	if !found {
		return false
	}

	delete(s.tasks, name)

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosTaskCancel,
		Item:   s.taskInfo(task),
	})

	return true
}

// Pending tells if a task with the given name is waiting to fire.
func (s *TaskScheduler) Pending(name string) bool {
	_, found := s.tasks[name]
	return found
}

// Handle fires the task carried by the event. The fire event of a cancelled
// or replaced task is a no-op.
func (s *TaskScheduler) Handle(e Event) error {
	evt := e.(taskFireEvent)
	task := evt.task

	current, found := s.tasks[task.name]
	if !found || current != task {
		return nil
	}

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosTaskFire,
		Item:   s.taskInfo(task),
	})

	if !task.repeating {
		delete(s.tasks, task.name)
	}

	task.fn()

	if task.repeating && s.tasks[task.name] == task {
		task.nextFire = evt.Time() + task.interval
		s.scheduleFire(task)
	}

	return nil
}

func (s *TaskScheduler) taskInfo(task *scheduledTask) TaskInfo {
	return TaskInfo{
		Owner:     s.owner,
		Name:      task.name,
		Time:      task.nextFire,
		Repeating: task.repeating,
	}
}
