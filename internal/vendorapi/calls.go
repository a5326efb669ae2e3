package vendorapi

/*
#include <stddef.h>

typedef struct { unsigned int x, y, z; } hd_dim3;

typedef int (*hd_launch_kernel_fn)(void *func, hd_dim3 gridDim, hd_dim3 blockDim,
                                    void **args, size_t sharedMem, void *stream);
typedef int (*hd_cu_launch_kernel_fn)(void *func, unsigned int gridDimX, unsigned int gridDimY,
                                      unsigned int gridDimZ, unsigned int blockDimX,
                                      unsigned int blockDimY, unsigned int blockDimZ,
                                      unsigned int sharedMemBytes, void *stream,
                                      void **kernelParams, void **extra);
typedef int (*hd_launch_kernel_exc_fn)(void *config, void *func, void **args);
typedef int (*hd_func_get_name_fn)(const char **name, void *func);
typedef int (*hd_stream_get_id_fn)(void *stream, unsigned long long *id);

typedef int (*hd_event_create_fn)(void **event, unsigned int flags);
typedef int (*hd_event_destroy_fn)(void *event);
typedef int (*hd_event_record_fn)(void *event, void *stream);
typedef int (*hd_event_elapsed_fn)(float *ms, void *start, void *end);
typedef int (*hd_event_query_fn)(void *event);

// args is received as a flat void* (the base address of the host's argument
// pointer array) and cast back to void** only here, at the FFI boundary, so
// the Go side never needs a double-pointer cgo type.
static int hd_call_launch_kernel(void *fn, void *func, hd_dim3 gridDim, hd_dim3 blockDim,
                                  void *args, size_t sharedMem, void *stream) {
	return ((hd_launch_kernel_fn)fn)(func, gridDim, blockDim, (void **)args, sharedMem, stream);
}

// The driver's positional launch takes each dimension as a separate
// argument; extra is passed as NULL.
static int hd_call_cu_launch_kernel(void *fn, void *func, hd_dim3 gridDim, hd_dim3 blockDim,
                                     void *args, size_t sharedMem, void *stream) {
	return ((hd_cu_launch_kernel_fn)fn)(func, gridDim.x, gridDim.y, gridDim.z,
	                                    blockDim.x, blockDim.y, blockDim.z,
	                                    (unsigned int)sharedMem, stream, (void **)args, NULL);
}

static int hd_call_launch_kernel_exc(void *fn, void *config, void *func, void *args) {
	return ((hd_launch_kernel_exc_fn)fn)(config, func, (void **)args);
}

static int hd_call_func_get_name(void *fn, const char **name, void *func) {
	return ((hd_func_get_name_fn)fn)(name, func);
}

static int hd_call_stream_get_id(void *fn, void *stream, unsigned long long *id) {
	return ((hd_stream_get_id_fn)fn)(stream, id);
}

static int hd_call_event_create(void *fn, void **event, unsigned int flags) {
	return ((hd_event_create_fn)fn)(event, flags);
}

static int hd_call_event_destroy(void *fn, void *event) {
	return ((hd_event_destroy_fn)fn)(event);
}

static int hd_call_event_record(void *fn, void *event, void *stream) {
	return ((hd_event_record_fn)fn)(event, stream);
}

static int hd_call_event_elapsed(void *fn, float *ms, void *start, void *end) {
	return ((hd_event_elapsed_fn)fn)(ms, start, end);
}

static int hd_call_event_query(void *fn, void *event) {
	return ((hd_event_query_fn)fn)(event);
}
*/
import "C"
import "unsafe"

func asErr(status C.int) error {
	if status == 0 {
		return nil
	}
	return &Error{Code: int32(status)}
}

// LaunchKernel forwards to the vendor's positional-argument runtime launch
// (cudaLaunchKernel). args is a pointer to a contiguous array of argument
// pointers, exactly as the host passed it; hangdetect never interprets or
// mutates kernel arguments (spec.md Non-goals).
func LaunchKernel(funcPtr, stream unsafe.Pointer, gridDim, blockDim Dim3, args unsafe.Pointer, sharedMem uintptr) error {
	b := must()
	status := C.hd_call_launch_kernel(
		b.cudaLaunchKernel,
		funcPtr,
		C.hd_dim3{x: C.uint(gridDim.X), y: C.uint(gridDim.Y), z: C.uint(gridDim.Z)},
		C.hd_dim3{x: C.uint(blockDim.X), y: C.uint(blockDim.Y), z: C.uint(blockDim.Z)},
		args,
		C.size_t(sharedMem),
		stream,
	)
	return asErr(status)
}

// LaunchKernelExC forwards to the vendor's extended-config runtime launch
// (cudaLaunchKernelExC). config is the opaque launch-config object whose
// embedded stream field the caller has already extracted for the Launch
// Descriptor.
func LaunchKernelExC(config, funcPtr unsafe.Pointer, args unsafe.Pointer) error {
	b := must()
	status := C.hd_call_launch_kernel_exc(b.cudaLaunchKernelExC, config, funcPtr, args)
	return asErr(status)
}

// FuncGetName resolves the raw (possibly mangled) symbol name for a
// runtime-API function handle.
func FuncGetName(funcPtr unsafe.Pointer) (string, error) {
	b := must()
	var namePtr *C.char
	status := C.hd_call_func_get_name(b.cudaFuncGetName, &namePtr, funcPtr)
	if err := asErr(status); err != nil {
		return "", err
	}
	return C.GoString(namePtr), nil
}

// StreamGetId returns the vendor-assigned numeric id of stream.
func StreamGetId(stream unsafe.Pointer) (uint64, error) {
	b := must()
	var id C.ulonglong
	status := C.hd_call_stream_get_id(b.cudaStreamGetId, stream, &id)
	if err := asErr(status); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CuLaunchKernel forwards to the driver API's positional launch.
func CuLaunchKernel(funcPtr, stream unsafe.Pointer, gridDim, blockDim Dim3, args unsafe.Pointer, sharedMem uintptr) error {
	b := must()
	status := C.hd_call_cu_launch_kernel(
		b.cuLaunchKernel,
		funcPtr,
		C.hd_dim3{x: C.uint(gridDim.X), y: C.uint(gridDim.Y), z: C.uint(gridDim.Z)},
		C.hd_dim3{x: C.uint(blockDim.X), y: C.uint(blockDim.Y), z: C.uint(blockDim.Z)},
		args,
		C.size_t(sharedMem),
		stream,
	)
	return asErr(status)
}

// CuLaunchKernelEx forwards to the driver API's extended-config launch.
func CuLaunchKernelEx(config, funcPtr unsafe.Pointer, args unsafe.Pointer) error {
	b := must()
	status := C.hd_call_launch_kernel_exc(b.cuLaunchKernelEx, config, funcPtr, args)
	return asErr(status)
}

// CuFuncGetName resolves the raw symbol name for a driver-API function handle.
func CuFuncGetName(funcPtr unsafe.Pointer) (string, error) {
	b := must()
	var namePtr *C.char
	status := C.hd_call_func_get_name(b.cuFuncGetName, &namePtr, funcPtr)
	if err := asErr(status); err != nil {
		return "", err
	}
	return C.GoString(namePtr), nil
}

// CuStreamGetId returns the vendor-assigned numeric id of a driver-API stream.
func CuStreamGetId(stream unsafe.Pointer) (uint64, error) {
	b := must()
	var id C.ulonglong
	status := C.hd_call_stream_get_id(b.cuStreamGetId, stream, &id)
	if err := asErr(status); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EventCreateWithFlags allocates a new vendor timing event.
func EventCreateWithFlags(flags uint32) (unsafe.Pointer, error) {
	b := must()
	var event unsafe.Pointer
	status := C.hd_call_event_create(b.cudaEventCreate, &event, C.uint(flags))
	if err := asErr(status); err != nil {
		return nil, err
	}
	return event, nil
}

// EventDestroy releases a vendor timing event.
func EventDestroy(event unsafe.Pointer) error {
	b := must()
	return asErr(C.hd_call_event_destroy(b.cudaEventDestroy, event))
}

// EventRecord records event on stream.
func EventRecord(event, stream unsafe.Pointer) error {
	b := must()
	return asErr(C.hd_call_event_record(b.cudaEventRecord, event, stream))
}

// EventElapsedTime returns the elapsed milliseconds between start and end.
func EventElapsedTime(start, end unsafe.Pointer) (float32, error) {
	b := must()
	var ms C.float
	status := C.hd_call_event_elapsed(b.cudaEventElapsed, &ms, start, end)
	if err := asErr(status); err != nil {
		return 0, err
	}
	return float32(ms), nil
}

// EventQuery returns nil if event has completed, *Error{Code:EventNotReady}
// if it hasn't, or any other vendor error.
func EventQuery(event unsafe.Pointer) error {
	b := must()
	return asErr(C.hd_call_event_query(b.cudaEventQuery, event))
}
