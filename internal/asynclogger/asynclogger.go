// Package asynclogger implements the Async Event Logger (spec.md C9):
// a single background worker that waits for a pair of GPU timing
// events to complete, then emits Start and Complete log records and
// returns the events to their pool.
//
// The design follows the channel-plus-single-goroutine worker shape
// the teacher repo uses for its WorkerGroup (a buffered submission
// channel, a cancellable context, non-blocking submit with a dropped
// counter for backpressure), generalized from a fixed 10-worker pool
// down to the single worker the original Rust implementation uses
// (threadpool::ThreadPool::new(1)) — ordering across submissions
// doesn't matter here, so one worker is enough to drain the queue
// without over-subscribing host threads that are mid-kernel-launch.
package asynclogger

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reyoung/hangdetect/internal/logsink"
	"github.com/reyoung/hangdetect/internal/metrics"
	"github.com/reyoung/hangdetect/internal/timingevent"
)

// QueueCapacity bounds the number of pending (begin, end) pairs that
// can be queued for the async worker before new submissions are
// dropped. spec.md's original has no such bound (an unbounded
// std::thread ThreadPool queue); SPEC_FULL.md adds one so a stalled or
// saturated GPU can't grow this queue without limit.
const QueueCapacity = 4096

// pollInterval is how long the worker waits between unsuccessful
// completion queries, matching the original's 100ms step.
const pollInterval = 100 * time.Millisecond

type job struct {
	begin, end         *timingevent.Event
	kernLabel, userLabel string
}

// startRecord and completeRecord mirror the tagged LogMessage enum the
// original serializes with serde's internally-tagged representation:
// {"type":"Start","data":{...}} / {"type":"Complete","data":{...}}.
type startRecord struct {
	Type string `json:"type"`
	Data struct {
		KernLabel string `json:"kern_label"`
		UserLabel string `json:"user_label"`
	} `json:"data"`
}

type completeRecord struct {
	Type string `json:"type"`
	Data struct {
		KernLabel  string  `json:"kern_label"`
		UserLabel  string  `json:"user_label"`
		DurationMS float32 `json:"duration_ms"`
	} `json:"data"`
}

// Logger owns the single background worker and the pool events are
// returned to once their pair has been fully logged.
type Logger struct {
	sink    logsink.Sink
	pool    *timingevent.Pool
	metrics *metrics.Metrics // optional, may be nil

	jobs    chan job
	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts the worker goroutine. Call Close to drain and stop it. m
// may be nil if the caller doesn't want queue-depth/drop metrics.
func New(sink logsink.Sink, pool *timingevent.Pool, m *metrics.Metrics) *Logger {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Logger{
		sink:    sink,
		pool:    pool,
		metrics: m,
		jobs:    make(chan job, QueueCapacity),
		ctx:     ctx,
		cancel:  cancel,
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// AddEvent submits a (begin, end) timing-event pair for asynchronous
// completion-waiting and logging. Submission is non-blocking: if the
// queue is full, the pair is dropped and both events are returned
// directly to the pool, and the drop is counted for metrics (spec.md
// §8's "no silent unbounded growth" concern, carried from
// SPEC_FULL.md rather than the unbounded original).
func (l *Logger) AddEvent(begin, end *timingevent.Event, kernLabel, userLabel string) {
	j := job{begin: begin, end: end, kernLabel: kernLabel, userLabel: userLabel}
	select {
	case l.jobs <- j:
		if l.metrics != nil {
			l.metrics.LoggerQueueDepth.Set(float64(len(l.jobs)))
		}
	default:
		l.dropped.Add(1)
		if l.metrics != nil {
			l.metrics.LoggerDropped.Inc()
		}
		l.pool.Release(begin)
		l.pool.Release(end)
	}
}

// Dropped reports how many event pairs have been dropped for
// backpressure since the logger started.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close cancels any in-progress wait and stops the worker once it
// observes cancellation. It does not drain jobs still queued; those
// events are simply never reported or returned to the pool, which is
// acceptable during process shutdown.
func (l *Logger) Close() {
	l.cancel()
	l.wg.Wait()
}

func (l *Logger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case j := <-l.jobs:
			if l.metrics != nil {
				l.metrics.LoggerQueueDepth.Set(float64(len(l.jobs)))
			}
			if l.ctx.Err() != nil {
				return
			}
			l.process(j)
		}
	}
}

type queryOutcome int

const (
	outcomeCompleted queryOutcome = iota
	outcomeCancelled
	outcomeError
)

// waitFor polls event until it completes, the logger is closed, or a
// query error occurs, stepping at pollInterval exactly like the
// original's Notification-based wait_for/query_event_with_notification
// loop (re-expressed with context cancellation instead of a
// Mutex+Condvar pair, since Go's context already models "wake me up
// early if cancelled").
func (l *Logger) waitFor(event *timingevent.Event) queryOutcome {
	for {
		status, err := event.Query()
		if err != nil {
			l.sink.Error("failed to query CUDA event", "error", err)
			return outcomeError
		}
		if status == timingevent.Ready {
			return outcomeCompleted
		}

		timer := time.NewTimer(pollInterval)
		select {
		case <-l.ctx.Done():
			timer.Stop()
			return outcomeCancelled
		case <-timer.C:
		}
	}
}

func (l *Logger) process(j job) {
	if l.waitFor(j.begin) != outcomeCompleted {
		return
	}

	var start startRecord
	start.Type = "Start"
	start.Data.KernLabel = j.kernLabel
	start.Data.UserLabel = j.userLabel
	if b, err := json.Marshal(start); err == nil {
		l.sink.Raw(string(b))
	}

	if l.waitFor(j.end) != outcomeCompleted {
		return
	}

	durationMS, err := j.end.ElapsedSince(j.begin)
	if err != nil {
		l.sink.Error("failed to compute elapsed time", "error", err)
	} else {
		var complete completeRecord
		complete.Type = "Complete"
		complete.Data.KernLabel = j.kernLabel
		complete.Data.UserLabel = j.userLabel
		complete.Data.DurationMS = durationMS
		if b, err := json.Marshal(complete); err == nil {
			l.sink.Raw(string(b))
		}
	}

	l.pool.Release(j.begin)
	l.pool.Release(j.end)
}
