// Command hangdetect is the Interposition Entry Layer (spec.md C11).
// It is built with -buildmode=c-shared and placed ahead of the vendor
// CUDA runtime/driver libraries in the dynamic linker's search order
// (LD_PRELOAD or an rpath that shadows them), so that the four exported
// launch entry points below are the ones the host process actually
// calls.
//
// Dynamic symbol resolution (dlsym against RTLD_NEXT) is the one piece
// of genuinely C-only machinery this package owns directly: everything
// downstream of Resolve is plain Go.
package main

/*
#include <dlfcn.h>
#include <stdlib.h>

extern void hangdetect_shutdown(void);

__attribute__((destructor))
static void hangdetect_on_unload(void) {
	hangdetect_shutdown();
}
*/
import "C"

import (
	"fmt"
	"os"
	"unicode/utf8"
	"unsafe"

	"github.com/reyoung/hangdetect/internal/config"
	"github.com/reyoung/hangdetect/internal/launch"
	"github.com/reyoung/hangdetect/internal/logsink"
	"github.com/reyoung/hangdetect/internal/metrics"
	"github.com/reyoung/hangdetect/internal/monitor"
	"github.com/reyoung/hangdetect/internal/vendorapi"
)

// dlsymResolver satisfies vendorapi.Resolver by resolving symbols from
// whatever shared object comes next in the dynamic lookup order after
// this one — exactly the mechanism spec.md describes as an external
// collaborator and explicitly places out of the core's scope.
type dlsymResolver struct{}

func (dlsymResolver) Resolve(symbol string) (unsafe.Pointer, bool) {
	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))

	ptr := C.dlsym(C.RTLD_NEXT, cSymbol)
	if ptr == nil {
		return nil, false
	}
	return unsafe.Pointer(ptr), true
}

var (
	cfg config.Config
	mon *monitor.Monitor
	sk  logsink.Sink
)

func init() {
	cfg = config.Load()

	sk = logsink.New(logsink.Options{
		FilePath: cfg.LogFilePath(),
		Level:    logsink.LevelFromString(cfg.LogLevel),
	})

	if err := vendorapi.Init(dlsymResolver{}); err != nil {
		fmt.Fprintf(os.Stderr, "hangdetect: %v\n", err)
		os.Exit(1)
	}

	mon = monitor.New(sk, cfg.HangDetectionDefault, metrics.New())
}

//export cudaLaunchKernel
func cudaLaunchKernel(
	fn unsafe.Pointer,
	gridDimX, gridDimY, gridDimZ C.uint,
	blockDimX, blockDimY, blockDimZ C.uint,
	args unsafe.Pointer,
	sharedMem C.size_t,
	stream unsafe.Pointer,
) C.int {
	gridDim := vendorapi.Dim3{X: uint32(gridDimX), Y: uint32(gridDimY), Z: uint32(gridDimZ)}
	blockDim := vendorapi.Dim3{X: uint32(blockDimX), Y: uint32(blockDimY), Z: uint32(blockDimZ)}

	d := launch.NewRuntime(fn, stream, mon.RuntimeCache)
	status := mon.Launch(d, func() error {
		return vendorapi.LaunchKernel(fn, stream, gridDim, blockDim, args, uintptr(sharedMem))
	})
	return C.int(status)
}

//export cudaLaunchKernelExC
func cudaLaunchKernelExC(launchConfig unsafe.Pointer, fn unsafe.Pointer, args unsafe.Pointer) C.int {
	stream := launchConfigStream(launchConfig)

	d := launch.NewRuntime(fn, stream, mon.RuntimeCache)
	status := mon.Launch(d, func() error {
		return vendorapi.LaunchKernelExC(launchConfig, fn, args)
	})
	return C.int(status)
}

//export cuLaunchKernel
func cuLaunchKernel(
	fn unsafe.Pointer,
	gridDimX, gridDimY, gridDimZ C.uint,
	blockDimX, blockDimY, blockDimZ C.uint,
	sharedMem C.size_t,
	stream unsafe.Pointer,
	args unsafe.Pointer,
) C.int {
	gridDim := vendorapi.Dim3{X: uint32(gridDimX), Y: uint32(gridDimY), Z: uint32(gridDimZ)}
	blockDim := vendorapi.Dim3{X: uint32(blockDimX), Y: uint32(blockDimY), Z: uint32(blockDimZ)}

	d := launch.NewDriver(fn, stream, mon.DriverCache)
	status := mon.Launch(d, func() error {
		return vendorapi.CuLaunchKernel(fn, stream, gridDim, blockDim, args, uintptr(sharedMem))
	})
	return C.int(status)
}

//export cuLaunchKernelEx
func cuLaunchKernelEx(launchConfig unsafe.Pointer, fn unsafe.Pointer, args unsafe.Pointer) C.int {
	stream := launchConfigStream(launchConfig)

	d := launch.NewDriver(fn, stream, mon.DriverCache)
	status := mon.Launch(d, func() error {
		return vendorapi.CuLaunchKernelEx(launchConfig, fn, args)
	})
	return C.int(status)
}

// launchConfigStream reads the stream field out of the vendor's
// extended-config struct. Both cudaLaunchConfig_t and CUlaunchConfig
// place grid/block dims first, then the dynamic shared-memory size,
// then the stream pointer, which lands at the same offset in both, so
// a single pointer read — through vendorapi.LaunchConfig laid out with
// the identical field order — recovers it without needing per-vendor
// struct definitions here.
func launchConfigStream(launchConfig unsafe.Pointer) unsafe.Pointer {
	return (*vendorapi.LaunchConfig)(launchConfig).Stream
}

//export hangdetect_set_enable
func hangdetect_set_enable(enabled C.int) {
	mon.SetEnabled(enabled != 0)
}

//export hangdetect_set_kernel_exec_label
func hangdetect_set_kernel_exec_label(label *C.char) {
	if label == nil {
		mon.SetUserLabel("")
		return
	}
	s := C.GoString(label)
	if !utf8.ValidString(s) {
		sk.Warn("hangdetect_set_kernel_exec_label: ignoring non-UTF-8 label")
		return
	}
	mon.SetUserLabel(s)
}

//export hangdetect_shutdown
func hangdetect_shutdown() {
	mon.Close()
}

func main() {}
