package aspect

import (
	"sync"

	"github.com/reyoung/hangdetect/internal/launch"
	"github.com/reyoung/hangdetect/internal/timingevent"
	"github.com/reyoung/hangdetect/internal/tlsid"
)

// EventLogger is the subset of internal/asynclogger's Logger that the
// exec-time aspect depends on, kept as an interface here so this
// package doesn't need to import the worker/queue machinery directly.
type EventLogger interface {
	AddEvent(begin, end *timingevent.Event, kernLabel, userLabel string)
}

type pendingEvent struct {
	start *timingevent.Event
	label string
}

// KernelExecTime is the Kernel-Exec-Time Aspect (spec.md C8). It
// brackets each launch with a pair of recorded timing events: one in
// BeforeCall (the start), one in AfterCall (the end), handing the pair
// off to an EventLogger to be awaited and reported asynchronously.
//
// Exactly one pending start event is tracked per OS thread, via a
// tlsid-keyed map — the Go substitute for the original's thread_local!
// RefCell<Option<CUDAEvent>>. A BeforeCall that finds one already
// pending, or an AfterCall that finds none, indicates the pipeline was
// re-entered or skipped inconsistently and is reported as an *Internal
// error rather than silently overwritten or ignored.
type KernelExecTime struct {
	Pool   *timingevent.Pool
	Logger EventLogger

	pending sync.Map // uint64 (tlsid) -> *pendingEvent
	labels  sync.Map // uint64 (tlsid) -> string, the user-supplied label
}

func (a *KernelExecTime) BeforeCall(d launch.Descriptor) error {
	id := tlsid.ID()
	if _, ok := a.pending.Load(id); ok {
		return &Internal{Message: "pending start event already set for this thread"}
	}

	event, err := a.Pool.Acquire()
	if err != nil {
		return err
	}
	if err := event.Record(d.Stream()); err != nil {
		a.Pool.Release(event)
		return err
	}

	a.pending.Store(id, &pendingEvent{start: event, label: d.String()})
	return nil
}

func (a *KernelExecTime) AfterCall(d launch.Descriptor) error {
	id := tlsid.ID()
	v, ok := a.pending.LoadAndDelete(id)
	if !ok {
		return &Internal{Message: "no pending start event set for this thread"}
	}
	pending := v.(*pendingEvent)

	end, err := a.Pool.Acquire()
	if err != nil {
		a.Pool.Release(pending.start)
		return err
	}
	if err := end.Record(d.Stream()); err != nil {
		a.Pool.Release(pending.start)
		a.Pool.Release(end)
		return err
	}

	a.Logger.AddEvent(pending.start, end, pending.label, a.userLabel(id))
	return nil
}

func (a *KernelExecTime) userLabel(id uint64) string {
	if v, ok := a.labels.Load(id); ok {
		return v.(string)
	}
	return ""
}

// SetUserLabel sets the calling thread's free-form label, attached to
// every subsequent Start/Complete log record it produces until changed
// or cleared. Mirrors set_kernel_exec_time_user_label.
func (a *KernelExecTime) SetUserLabel(label string) {
	a.labels.Store(tlsid.ID(), label)
}
