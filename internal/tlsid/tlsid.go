// Package tlsid gives the calling OS thread a stable numeric identity.
//
// Go has no first-class equivalent of an OS thread-local variable: a
// goroutine can migrate between OS threads, and the reverse association
// (which goroutine is currently riding a given thread) isn't exposed.
// A cgo call from C into an exported Go function, however, always runs
// on the OS thread that made the call. We piggyback a tiny C __thread
// counter on that guarantee, so the rest of the aspect pipeline can key
// per-thread state (pending timing event, labels, enabler flag) by a
// plain uint64 instead of needing real thread-local storage in Go.
package tlsid

/*
#include <stdint.h>

static _Atomic uint64_t hangdetect_tlsid_next = 1;
static __thread uint64_t hangdetect_tlsid_value = 0;

static uint64_t hangdetect_tlsid_get(void) {
	if (hangdetect_tlsid_value == 0) {
		hangdetect_tlsid_value = hangdetect_tlsid_next++;
	}
	return hangdetect_tlsid_value;
}
*/
import "C"

// ID returns a value that is stable for the lifetime of the calling OS
// thread and unique across all threads that have called it in this
// process. It is cheap: the C side only does an atomic increment on a
// thread's first call, and a __thread load thereafter.
func ID() uint64 {
	return uint64(C.hangdetect_tlsid_get())
}
