// Package kernelname implements the kernel-name cache (spec.md C4): a
// process-wide map from a vendor function handle to the human-readable
// name hangdetect logs for it, populated at most once per handle.
//
// The runtime API and the driver API never share a function-handle
// address space, so two independent caches are kept — see the Open
// Question resolution in DESIGN.md.
package kernelname

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ianlancetaylor/demangle"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reyoung/hangdetect/internal/logsink"
	"github.com/reyoung/hangdetect/internal/vendorapi"
)

// Name is the cached display name for a kernel function.
type Name struct {
	// Raw is the symbol exactly as the vendor API returned it.
	Raw string
	// Demangled is the C++-demangled form of Raw, or nil if Raw wasn't
	// an Itanium-mangled (_Z-prefixed) symbol, or demangling failed.
	Demangled *string
}

// String returns the demangled name if available, else the raw one.
func (n Name) String() string {
	if n.Demangled != nil {
		return *n.Demangled
	}
	return n.Raw
}

// resolveFunc looks up the raw symbol name for a function handle.
type resolveFunc func(unsafe.Pointer) (string, error)

// Cache maps function handles to their resolved Name, resolving each
// handle at most once. Modeled on the original's double-checked
// locking: an RLock-guarded fast path for the common cache-hit case,
// and a Lock-guarded slow path that re-checks before doing the
// (comparatively expensive) vendor call and demangle.
type Cache struct {
	resolve resolveFunc
	sink    logsink.Sink
	lookups *prometheus.CounterVec // optional, may be nil
	api     string

	mu      sync.RWMutex
	entries map[uintptr]Name
}

// NewRuntimeCache builds the cache for cudaFuncGetName-addressed handles.
// lookups may be nil if the caller doesn't want lookup metrics.
func NewRuntimeCache(sink logsink.Sink, lookups *prometheus.CounterVec) *Cache {
	return newCache(vendorapi.FuncGetName, sink, lookups, "runtime")
}

// NewDriverCache builds the cache for cuFuncGetName-addressed handles.
func NewDriverCache(sink logsink.Sink, lookups *prometheus.CounterVec) *Cache {
	return newCache(vendorapi.CuFuncGetName, sink, lookups, "driver")
}

func newCache(resolve resolveFunc, sink logsink.Sink, lookups *prometheus.CounterVec, api string) *Cache {
	return &Cache{
		resolve: resolve,
		sink:    sink,
		lookups: lookups,
		api:     api,
		entries: make(map[uintptr]Name),
	}
}

func (c *Cache) count(outcome string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(c.api, outcome).Inc()
	}
}

// Lookup returns the cached Name for fn, resolving and caching it if
// this is the first time fn has been seen. A resolver failure is never
// cached: a transient vendor error on one launch shouldn't poison every
// later launch of the same kernel.
func (c *Cache) Lookup(fn unsafe.Pointer) (Name, error) {
	key := uintptr(fn)

	c.mu.RLock()
	if n, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		c.count("hit")
		return n, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.count("hit")
		return n, nil
	}
	c.count("miss")

	raw, err := c.resolve(fn)
	if err != nil {
		return Name{}, fmt.Errorf("kernelname: resolve function name: %w", err)
	}

	n := Name{Raw: raw}
	if demangled, ok := tryDemangle(raw); ok {
		n.Demangled = &demangled
	} else if len(raw) > 2 && raw[0] == '_' && raw[1] == 'Z' {
		c.sink.Warn("failed to demangle kernel symbol", "symbol", raw)
	}

	c.entries[key] = n
	return n, nil
}

func tryDemangle(raw string) (string, bool) {
	out, err := demangle.ToString(raw)
	if err != nil {
		return "", false
	}
	return out, true
}
