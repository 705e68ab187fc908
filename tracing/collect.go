package tracing

import (
	"fmt"

	"github.com/grimadas/asci-a27/overlay"
	"github.com/grimadas/asci-a27/sim"
)

// CollectMessages lets the tracer follow every envelope of the dispatcher as
// a task spanning send to delivery. Dropped and unhandled messages are ended
// at their delivery time as well, so no task stays open.
func CollectMessages(d *overlay.Dispatcher, t Tracer) {
	d.AcceptHook(&messageTraceHook{t: t})
}

type messageTraceHook struct {
	t Tracer
}

func (h *messageTraceHook) Func(ctx sim.HookCtx) {
	env, ok := ctx.Item.(*overlay.Envelope)
	if !ok {
		return
	}

	switch ctx.Pos {
	case overlay.HookPosMsgSend:
		h.t.StartTask(Task{
			ID:        env.ID,
			Kind:      "msg",
			What:      fmt.Sprintf("%s.%d", env.Overlay, env.Type),
			Where:     env.To.Short(),
			StartTime: env.SentAt,
		})
	case overlay.HookPosMsgDeliver,
		overlay.HookPosMsgDropped,
		overlay.HookPosMsgUnhandled,
		overlay.HookPosHandlerError:
		h.t.EndTask(Task{
			ID:      env.ID,
			EndTime: env.DeliverAt,
			Detail:  ctx.Detail,
		})
	}
}

// CollectTasks lets the tracer record every fire of the scheduler as an
// instantaneous task.
func CollectTasks(s *sim.TaskScheduler, t Tracer) {
	s.AcceptHook(&taskFireTraceHook{t: t})
}

type taskFireTraceHook struct {
	t Tracer
}

func (h *taskFireTraceHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosTaskFire {
		return
	}

	info, ok := ctx.Item.(sim.TaskInfo)
	if !ok {
		return
	}

	task := Task{
		ID:        sim.GetIDGenerator().Generate(),
		Kind:      "task",
		What:      info.Name,
		Where:     info.Owner,
		StartTime: info.Time,
		EndTime:   info.Time,
	}
	h.t.StartTask(task)
	h.t.EndTask(task)
}

// CollectLifecycle lets the tracer record the started and stopped
// transitions of a runtime as instantaneous tasks.
func CollectLifecycle(rt *overlay.Runtime, tt sim.TimeTeller, t Tracer) {
	rt.AcceptHook(&lifecycleTraceHook{t: t, tt: tt})
}

type lifecycleTraceHook struct {
	t  Tracer
	tt sim.TimeTeller
}

func (h *lifecycleTraceHook) Func(ctx sim.HookCtx) {
	var what string

	switch ctx.Pos {
	case overlay.HookPosOverlayStarted:
		what = "started"
	case overlay.HookPosOverlayStopped:
		what = "stopped"
	default:
		return
	}

	now := h.tt.CurrentTime()
	task := Task{
		ID:        sim.GetIDGenerator().Generate(),
		Kind:      "overlay",
		What:      what,
		Where:     ctx.Item.(string),
		StartTime: now,
		EndTime:   now,
	}
	h.t.StartTask(task)
	h.t.EndTask(task)
}
