package aspect

import (
	"sync"

	"github.com/reyoung/hangdetect/internal/launch"
	"github.com/reyoung/hangdetect/internal/logsink"
	"github.com/reyoung/hangdetect/internal/tlsid"
)

// ThreadLocalEnabler is the Thread-Local Enabler filter (spec.md C10).
// Each OS thread (identified via tlsid, Go's substitute for a native
// thread-local) has its own enabled/disabled latch, seeded on first
// use from Default and logged exactly once per thread, matching the
// original's "only log the env-derived default once" behavior.
type ThreadLocalEnabler struct {
	// Default is consulted the first time a thread's latch is read,
	// typically computed from the HANG_DETECTION_ENABLED environment
	// variable at process startup.
	Default bool
	Sink    logsink.Sink

	latches sync.Map // uint64 (tlsid) -> bool
}

func (e *ThreadLocalEnabler) Filter(launch.Descriptor) bool {
	id := tlsid.ID()
	if v, ok := e.latches.Load(id); ok {
		return v.(bool)
	}

	enabled := e.Default
	e.latches.Store(id, enabled)
	e.Sink.Info("HANG_DETECTION_ENABLED", "enabled", enabled)
	return enabled
}

// Set overrides the calling thread's latch, bypassing the process
// default. Used by the exported hangdetect_set_enable entry point.
func (e *ThreadLocalEnabler) Set(enabled bool) {
	e.latches.Store(tlsid.ID(), enabled)
}
