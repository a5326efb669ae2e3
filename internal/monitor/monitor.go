// Package monitor wires the individual aspects into the single
// composed pipeline the interposition entry layer calls around every
// kernel launch, and implements the before/forward/after control flow
// and error-to-return-code mapping described in spec.md §4.11.
package monitor

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reyoung/hangdetect/internal/aspect"
	"github.com/reyoung/hangdetect/internal/asynclogger"
	"github.com/reyoung/hangdetect/internal/kernelname"
	"github.com/reyoung/hangdetect/internal/launch"
	"github.com/reyoung/hangdetect/internal/logsink"
	"github.com/reyoung/hangdetect/internal/metrics"
	"github.com/reyoung/hangdetect/internal/timingevent"
	"github.com/reyoung/hangdetect/internal/vendorapi"
)

// Monitor owns the composed aspect pipeline and the two kernel-name
// caches (runtime and driver) that feed its Launch Descriptors.
type Monitor struct {
	RuntimeCache *kernelname.Cache
	DriverCache  *kernelname.Cache

	pipeline aspect.Aspect
	enabler  *aspect.ThreadLocalEnabler
	execTime *aspect.KernelExecTime
	logger   *asynclogger.Logger
	sink     logsink.Sink
}

// New builds the process-wide monitor: a pool-backed exec-time aspect
// and a logging aspect, sequenced and then gated behind the thread-local
// enabler, exactly mirroring the original's
// Filtered(ThreadLocalEnabler, Sequence(LoggingAspect, KernelExecTimeAspect)).
func New(sink logsink.Sink, defaultEnabled bool, m *metrics.Metrics) *Monitor {
	pool := timingevent.Default()
	pool.SetMetrics(m)
	logger := asynclogger.New(sink, pool, m)

	execTime := &aspect.KernelExecTime{Pool: pool, Logger: logger}
	enabler := &aspect.ThreadLocalEnabler{Default: defaultEnabled, Sink: sink}

	pipeline := aspect.Filtered{
		Filter: enabler,
		Aspect: aspect.Sequence{
			aspect.Logging{Sink: sink},
			execTime,
		},
	}

	var lookups *prometheus.CounterVec
	if m != nil {
		lookups = m.CacheLookups
	}

	return &Monitor{
		RuntimeCache: kernelname.NewRuntimeCache(sink, lookups),
		DriverCache:  kernelname.NewDriverCache(sink, lookups),
		pipeline:     pipeline,
		enabler:      enabler,
		execTime:     execTime,
		logger:       logger,
		sink:         sink,
	}
}

// SetEnabled overrides the calling thread's enabler latch.
func (m *Monitor) SetEnabled(enabled bool) {
	m.enabler.Set(enabled)
}

// SetUserLabel sets the calling thread's free-form exec-time label.
func (m *Monitor) SetUserLabel(label string) {
	m.execTime.SetUserLabel(label)
}

// Close stops the background logger. Intended to run from the shared
// object's destructor / hangdetect_shutdown.
func (m *Monitor) Close() {
	m.logger.Close()
}

// Launch runs the aspect pipeline around a single kernel dispatch,
// mapping aspect and vendor outcomes to the return-code rules from
// spec.md §4.11:
//   - a vendor error from before_call short-circuits the forward call
//     and is returned as-is;
//   - otherwise the forward call runs and its status is captured;
//   - after_call then runs regardless of the forward status, and a
//     vendor error from it overrides the captured status;
//   - an *aspect.Internal error from either phase is a programming
//     bug and is unrecoverable: the process terminates.
func (m *Monitor) Launch(d launch.Descriptor, forward func() error) int32 {
	if err := m.pipeline.BeforeCall(d); err != nil {
		if code, ok := vendorCode(err); ok {
			return code
		}
		terminate("before_call", err)
	}

	var status int32
	if err := forward(); err != nil {
		if code, ok := vendorCode(err); ok {
			status = code
		} else {
			terminate("forward", err)
		}
	}

	if err := m.pipeline.AfterCall(d); err != nil {
		if code, ok := vendorCode(err); ok {
			status = code
		} else {
			terminate("after_call", err)
		}
	}

	return status
}

func vendorCode(err error) (int32, bool) {
	if verr, ok := err.(*vendorapi.Error); ok {
		return verr.Code, true
	}
	return 0, false
}

func terminate(phase string, err error) {
	fmt.Fprintf(os.Stderr, "hangdetect: internal error during %s: %v\n", phase, err)
	os.Exit(1)
}
