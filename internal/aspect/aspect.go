// Package aspect implements the Aspect Abstraction (spec.md C6) and the
// concrete aspects wired into the monitor pipeline: logging (C7),
// kernel-exec-time timing (C8), and the thread-local enabler filter
// (C10). Composition mirrors the original's before_call/after_call
// trait with Sequence and Filtered combinators standing in for Rust's
// MergeAspects/AspectWithBlock generics.
package aspect

import "github.com/reyoung/hangdetect/internal/launch"

// Internal signals a programming-error condition inside the aspect
// pipeline itself — as opposed to a vendor/CUDA error surfaced from the
// launch it's wrapping. The interposition entry layer treats Internal
// as unrecoverable (spec.md §4.11): it indicates the pipeline's own
// invariants (e.g. "one pending timing event per thread") have been
// violated, not that anything is wrong with the GPU.
type Internal struct {
	Message string
}

func (e *Internal) Error() string { return "internal error: " + e.Message }

// Aspect observes a kernel launch around the call that performs it.
// BeforeCall runs before the vendor launch function is invoked;
// AfterCall runs after it returns, win or lose. Either may return an
// error: a *vendorapi.Error is a vendor/CUDA error that replaces the
// launch's own return code (spec.md §4.11); any other error, *Internal
// included, is treated as a pipeline bug.
type Aspect interface {
	BeforeCall(d launch.Descriptor) error
	AfterCall(d launch.Descriptor) error
}

// Sequence runs aspects in order, short-circuiting on the first error —
// both for BeforeCall and, symmetrically, for AfterCall. This mirrors
// the original's MergeAspects, generalized from a fixed pair to a
// variadic list.
type Sequence []Aspect

func (s Sequence) BeforeCall(d launch.Descriptor) error {
	for _, a := range s {
		if err := a.BeforeCall(d); err != nil {
			return err
		}
	}
	return nil
}

func (s Sequence) AfterCall(d launch.Descriptor) error {
	for _, a := range s {
		if err := a.AfterCall(d); err != nil {
			return err
		}
	}
	return nil
}

// Filter decides whether an Aspect should run for a given launch.
type Filter interface {
	Filter(d launch.Descriptor) bool
}

// Filtered gates an Aspect behind a Filter: both BeforeCall and
// AfterCall become no-ops when the filter returns false. This mirrors
// the original's AspectWithBlock/merge_filter.
type Filtered struct {
	Filter Filter
	Aspect Aspect
}

func (f Filtered) BeforeCall(d launch.Descriptor) error {
	if !f.Filter.Filter(d) {
		return nil
	}
	return f.Aspect.BeforeCall(d)
}

func (f Filtered) AfterCall(d launch.Descriptor) error {
	if !f.Filter.Filter(d) {
		return nil
	}
	return f.Aspect.AfterCall(d)
}
