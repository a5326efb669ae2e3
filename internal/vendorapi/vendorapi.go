// Package vendorapi provides type-safe wrappers over the CUDA runtime and
// driver entry points that hangdetect interposes on. It never resolves
// symbols itself: dynamic loader lookup is an external collaborator,
// supplied to Init as a Resolver. That keeps this package testable
// against a fake vendor ABI, and keeps dlopen/dlsym mechanics (genuinely
// out of scope for this core) out of the timing/logging pipeline.
package vendorapi

import (
	"fmt"
	"sync"
	"unsafe"
)

// Error wraps a raw vendor status code. The code is preserved verbatim;
// nothing here interprets it beyond the single EventNotReady sentinel
// used by the timing-event handle.
type Error struct {
	Code int32
}

func (e *Error) Error() string {
	return fmt.Sprintf("vendor error code: %d", e.Code)
}

// EventNotReady is the cudaErrorNotReady / CUDA_ERROR_NOT_READY sentinel
// returned by event-query while a timing event has not yet completed.
const EventNotReady int32 = 600

// Resolver produces a function pointer for a named vendor symbol. It is
// the external collaborator described in the package's purpose: this
// core assumes one exists and never implements dlopen/dlsym itself.
type Resolver interface {
	// Resolve returns the address of symbol, or ok=false if the symbol
	// could not be found.
	Resolve(symbol string) (ptr unsafe.Pointer, ok bool)
}

// Dim3 mirrors the CUDA launch grid/block dimension triple.
type Dim3 struct {
	X, Y, Z uint32
}

// LaunchConfig mirrors the "extended config" launch shape
// (cudaLaunchConfig_t / CUlaunchConfig): enough of it for hangdetect to
// recover the stream the launch targets.
type LaunchConfig struct {
	GridDim  Dim3
	BlockDim Dim3
	// SharedMem occupies the dynamic shared-memory size slot
	// (size_t in the runtime struct, unsigned int plus padding in the
	// driver struct); hangdetect never reads it.
	SharedMem uintptr
	Stream    unsafe.Pointer
}

var (
	initOnce   sync.Once
	initErr    error
	bindingVal *binding
)

type binding struct {
	cudaFuncGetName     unsafe.Pointer
	cudaLaunchKernel    unsafe.Pointer
	cudaLaunchKernelExC unsafe.Pointer
	cudaStreamGetId     unsafe.Pointer
	cudaEventCreate     unsafe.Pointer
	cudaEventDestroy    unsafe.Pointer
	cudaEventRecord     unsafe.Pointer
	cudaEventElapsed    unsafe.Pointer
	cudaEventQuery      unsafe.Pointer
	cuFuncGetName       unsafe.Pointer
	cuLaunchKernel      unsafe.Pointer
	cuLaunchKernelEx    unsafe.Pointer
	cuStreamGetId       unsafe.Pointer
}

var requiredSymbols = [...]string{
	"cudaFuncGetName",
	"cudaLaunchKernel",
	"cudaLaunchKernelExC",
	"cudaStreamGetId",
	"cudaEventCreateWithFlags",
	"cudaEventDestroy",
	"cudaEventRecord",
	"cudaEventElapsedTime",
	"cudaEventQuery",
	"cuFuncGetName",
	"cuLaunchKernel",
	"cuLaunchKernelEx",
	"cuStreamGetId",
}

// Init resolves every vendor symbol hangdetect needs, exactly once. It
// is safe to call Init concurrently and redundantly; only the first
// call does any work. Per spec.md §4.1, failure to resolve any symbol
// is fatal: the library is useless without the vendor ABI, so Init
// returns an error the caller is expected to treat as unrecoverable
// (the interposition entry layer terminates the process on it).
func Init(r Resolver) error {
	initOnce.Do(func() {
		b := &binding{}
		ptrs := make(map[string]unsafe.Pointer, len(requiredSymbols))
		for _, name := range requiredSymbols {
			ptr, ok := r.Resolve(name)
			if !ok || ptr == nil {
				initErr = fmt.Errorf("vendorapi: failed to resolve required symbol %q", name)
				return
			}
			ptrs[name] = ptr
		}
		b.cudaFuncGetName = ptrs["cudaFuncGetName"]
		b.cudaLaunchKernel = ptrs["cudaLaunchKernel"]
		b.cudaLaunchKernelExC = ptrs["cudaLaunchKernelExC"]
		b.cudaStreamGetId = ptrs["cudaStreamGetId"]
		b.cudaEventCreate = ptrs["cudaEventCreateWithFlags"]
		b.cudaEventDestroy = ptrs["cudaEventDestroy"]
		b.cudaEventRecord = ptrs["cudaEventRecord"]
		b.cudaEventElapsed = ptrs["cudaEventElapsedTime"]
		b.cudaEventQuery = ptrs["cudaEventQuery"]
		b.cuFuncGetName = ptrs["cuFuncGetName"]
		b.cuLaunchKernel = ptrs["cuLaunchKernel"]
		b.cuLaunchKernelEx = ptrs["cuLaunchKernelEx"]
		b.cuStreamGetId = ptrs["cuStreamGetId"]
		bindingVal = b
	})
	return initErr
}

func must() *binding {
	if bindingVal == nil {
		panic("vendorapi: used before successful Init")
	}
	return bindingVal
}
