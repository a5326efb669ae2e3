package timingevent

import (
	"sync"

	"github.com/reyoung/hangdetect/internal/metrics"
)

// Capacity is the maximum number of idle events the pool holds onto.
// spec.md §3/§8 fixes this at 8,192: a bound on GPU-side event
// allocation, not an attempt to track every event ever created.
const Capacity = 8192

// Pool is a bounded, process-wide reuse pool of timing events, modeled
// directly on the channel-backed acquire/release pattern the teacher
// repo uses for its container pool (PoolManager.Get/Put): a buffered
// channel as the free list, non-blocking release that drops the item
// when the channel is full, and construction-on-demand when it's empty.
type Pool struct {
	free    chan *Event
	metrics *metrics.Metrics // optional, may be nil
}

var (
	defaultPoolOnce sync.Once
	defaultPool     *Pool
)

// Default returns the process-wide event pool, created on first use.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(Capacity)
	})
	return defaultPool
}

// NewPool constructs a pool with the given capacity. Exposed for tests
// that want a small, fast-to-exhaust pool rather than the production
// 8,192-entry one.
func NewPool(capacity int) *Pool {
	return &Pool{free: make(chan *Event, capacity)}
}

// SetMetrics attaches a metric set whose PoolIdleEvents gauge is
// updated on every Acquire/Release. Optional; nil disables it.
func (p *Pool) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

func (p *Pool) reportLen() {
	if p.metrics != nil {
		p.metrics.PoolIdleEvents.Set(float64(len(p.free)))
	}
}

// Acquire returns a recycled event if one is idle, otherwise constructs
// a fresh one.
func (p *Pool) Acquire() (*Event, error) {
	select {
	case e := <-p.free:
		p.reportLen()
		return e, nil
	default:
		return New()
	}
}

// Release returns event to the pool, or drops it (without destroying
// the underlying vendor handle — the caller remains responsible for
// that) if the pool is already at capacity. Matches spec.md §4.3:
// "release(event) returns to the pool or drops if full."
func (p *Pool) Release(event *Event) {
	select {
	case p.free <- event:
		p.reportLen()
	default:
	}
}

// Len reports the number of currently idle events, for metrics.
func (p *Pool) Len() int {
	return len(p.free)
}
