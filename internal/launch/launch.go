// Package launch implements the Launch Descriptor (spec.md C5): an
// immutable, pre-parsed view of one kernel dispatch, capturing just
// enough of it (which API family, which function, which stream) to
// name and time it without reaching back into the host's arguments.
package launch

import (
	"fmt"
	"unsafe"

	"github.com/reyoung/hangdetect/internal/kernelname"
	"github.com/reyoung/hangdetect/internal/vendorapi"
)

// API identifies which vendor entry-point family produced a Descriptor.
type API int

const (
	// Runtime is the cudaLaunchKernel(ExC) family.
	Runtime API = iota
	// Driver is the cuLaunchKernel(Ex) family.
	Driver
)

func (a API) String() string {
	if a == Driver {
		return "Driver"
	}
	return "Runtime"
}

// Descriptor describes a single kernel launch: which API it came
// through, which function is being launched, and which stream it
// targets. It carries no copy of the kernel's actual arguments —
// hangdetect forwards those opaquely and never inspects them.
type Descriptor struct {
	api    API
	fn     unsafe.Pointer
	stream unsafe.Pointer
	cache  *kernelname.Cache
}

// NewRuntime builds a Descriptor for a cudaLaunchKernel(ExC) dispatch.
func NewRuntime(fn, stream unsafe.Pointer, cache *kernelname.Cache) Descriptor {
	return Descriptor{api: Runtime, fn: fn, stream: stream, cache: cache}
}

// NewDriver builds a Descriptor for a cuLaunchKernel(Ex) dispatch.
func NewDriver(fn, stream unsafe.Pointer, cache *kernelname.Cache) Descriptor {
	return Descriptor{api: Driver, fn: fn, stream: stream, cache: cache}
}

// API reports which vendor entry-point family this launch came through.
func (d Descriptor) API() API { return d.api }

// Func is the opaque vendor function handle being launched.
func (d Descriptor) Func() unsafe.Pointer { return d.fn }

// Stream is the opaque vendor stream handle the launch targets.
func (d Descriptor) Stream() unsafe.Pointer { return d.stream }

// StreamID returns the vendor-assigned numeric id of the target stream.
func (d Descriptor) StreamID() (uint64, error) {
	if d.api == Driver {
		return vendorapi.CuStreamGetId(d.stream)
	}
	return vendorapi.StreamGetId(d.stream)
}

// FuncName returns the cached (demangled, where possible) kernel name.
func (d Descriptor) FuncName() (kernelname.Name, error) {
	return d.cache.Lookup(d.fn)
}

// String renders the launch as "<Runtime|Driver Kernel: <name> on
// stream <id>>", matching the Display impl the original logs from.
// Any failure to resolve the name or stream id is folded into the
// rendered text rather than panicking — Display must never fail just
// because the vendor call underneath it did.
func (d Descriptor) String() string {
	name, err := d.FuncName()
	nameStr := name.String()
	if err != nil {
		nameStr = fmt.Sprintf("<unknown: %v>", err)
	}

	id, err := d.StreamID()
	idStr := fmt.Sprintf("%d", id)
	if err != nil {
		idStr = fmt.Sprintf("<unknown: %v>", err)
	}

	return fmt.Sprintf("<%s Kernel: %s on stream %s>", d.api, nameStr, idStr)
}
