// Package timingevent implements the scoped acquisition of a GPU timing
// event (spec.md C2) and the bounded pool that recycles them (C3).
package timingevent

import (
	"unsafe"

	"github.com/reyoung/hangdetect/internal/logsink"
	"github.com/reyoung/hangdetect/internal/vendorapi"
)

// Status is the outcome of a Query.
type Status int

const (
	// Ready indicates the event has completed.
	Ready Status = iota
	// NotReady indicates the event has not yet completed.
	NotReady
)

// Event owns a single vendor event handle, acquired at construction and
// released on Close. It is not safe for concurrent use by multiple
// goroutines simultaneously, but ownership may be handed off between
// goroutines (the host thread that starts it, and the async logger
// worker that later waits on and closes it).
type Event struct {
	handle unsafe.Pointer
}

// New acquires a fresh vendor event. Most callers should prefer Pool.Acquire,
// which reuses an existing event when one is available.
func New() (*Event, error) {
	h, err := vendorapi.EventCreateWithFlags(0)
	if err != nil {
		return nil, err
	}
	return &Event{handle: h}, nil
}

// Record records this event on stream.
func (e *Event) Record(stream unsafe.Pointer) error {
	return vendorapi.EventRecord(e.handle, stream)
}

// Query reports whether this event has completed.
func (e *Event) Query() (Status, error) {
	err := vendorapi.EventQuery(e.handle)
	if err == nil {
		return Ready, nil
	}
	if verr, ok := err.(*vendorapi.Error); ok && verr.Code == vendorapi.EventNotReady {
		return NotReady, nil
	}
	return NotReady, err
}

// ElapsedSince returns the milliseconds elapsed between begin and e
// (begin must have been recorded before e, on the same stream).
func (e *Event) ElapsedSince(begin *Event) (float32, error) {
	return vendorapi.EventElapsedTime(begin.handle, e.handle)
}

// Close releases the underlying vendor event. Failure is logged and
// swallowed (spec.md §7): a timing event that fails to destroy cleanly
// is not a condition any caller can usefully react to.
func (e *Event) Close(sink logsink.Sink) {
	if e.handle == nil {
		return
	}
	if err := vendorapi.EventDestroy(e.handle); err != nil {
		sink.Error("failed to destroy CUDA event", "error", err)
	}
	e.handle = nil
}
