package vendorapi

/*
#include <stdlib.h>
#include <string.h>

typedef struct { unsigned int x, y, z; } hd_test_dim3;

static const char *hd_test_kernel_name = "_ZN4test6kernelEv";

static int hd_test_func_get_name(const char **name, void *func) {
	*name = hd_test_kernel_name;
	return 0;
}

// hd_test_dim3 has the same layout as the hd_dim3 typedef calls.go
// casts this function pointer through; only the ABI shape needs to
// match, not the nominal C type name (each cgo preamble is its own
// translation unit).
static int hd_test_launch_kernel(void *func, hd_test_dim3 gridDim, hd_test_dim3 blockDim,
                                  void **args, size_t sharedMem, void *stream) {
	return 0;
}

static int hd_test_cu_launch_kernel(void *func, unsigned int gx, unsigned int gy, unsigned int gz,
                                     unsigned int bx, unsigned int by, unsigned int bz,
                                     unsigned int sharedMem, void *stream, void **args, void **extra) {
	return 0;
}

static int hd_test_launch_kernel_exc(void *config, void *func, void **args) {
	return 0;
}

static int hd_test_stream_get_id(void *stream, unsigned long long *id) {
	*id = 42;
	return 0;
}

static int hd_test_event_create(void **event, unsigned int flags) {
	static int counter = 0;
	counter++;
	*event = (void *)(long)counter;
	return 0;
}

static int hd_test_event_destroy(void *event) {
	return 0;
}

static int hd_test_event_record(void *event, void *stream) {
	return 0;
}

static int hd_test_event_elapsed(float *ms, void *start, void *end) {
	*ms = 1.5f;
	return 0;
}

static int hd_test_event_query_not_ready(void *event) {
	return 600;
}

static void *hd_test_resolve(const char *symbol) {
	if (strcmp(symbol, "cudaFuncGetName") == 0 || strcmp(symbol, "cuFuncGetName") == 0) {
		return (void *)hd_test_func_get_name;
	}
	if (strcmp(symbol, "cudaLaunchKernel") == 0) {
		return (void *)hd_test_launch_kernel;
	}
	if (strcmp(symbol, "cuLaunchKernel") == 0) {
		return (void *)hd_test_cu_launch_kernel;
	}
	if (strcmp(symbol, "cudaLaunchKernelExC") == 0 || strcmp(symbol, "cuLaunchKernelEx") == 0) {
		return (void *)hd_test_launch_kernel_exc;
	}
	if (strcmp(symbol, "cudaStreamGetId") == 0 || strcmp(symbol, "cuStreamGetId") == 0) {
		return (void *)hd_test_stream_get_id;
	}
	if (strcmp(symbol, "cudaEventCreateWithFlags") == 0) {
		return (void *)hd_test_event_create;
	}
	if (strcmp(symbol, "cudaEventDestroy") == 0) {
		return (void *)hd_test_event_destroy;
	}
	if (strcmp(symbol, "cudaEventRecord") == 0) {
		return (void *)hd_test_event_record;
	}
	if (strcmp(symbol, "cudaEventElapsedTime") == 0) {
		return (void *)hd_test_event_elapsed;
	}
	if (strcmp(symbol, "cudaEventQuery") == 0) {
		return (void *)hd_test_event_query_not_ready;
	}
	return NULL;
}
*/
import "C"

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver resolves every required symbol against the small C stub
// vendor ABI above, standing in for a real CUDA installation.
type fakeResolver struct{}

func (fakeResolver) Resolve(symbol string) (unsafe.Pointer, bool) {
	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))
	ptr := C.hd_test_resolve(cSymbol)
	if ptr == nil {
		return nil, false
	}
	return unsafe.Pointer(ptr), true
}

// incompleteResolver resolves nothing. It is passed to a second Init
// call to check that the sync.Once keeps the first binding; Init's
// fatal path itself is not exercised in this test binary.
type incompleteResolver struct{}

func (incompleteResolver) Resolve(string) (unsafe.Pointer, bool) { return nil, false }

func TestIncompleteResolver_ResolvesNothing(t *testing.T) {
	r := incompleteResolver{}
	for _, name := range requiredSymbols {
		_, ok := r.Resolve(name)
		assert.False(t, ok, "expected %q to be unresolved", name)
	}
}

func TestVendorAPI_EndToEnd(t *testing.T) {
	require.NoError(t, Init(fakeResolver{}))
	// Init is a sync.Once: calling it again with a different resolver
	// must not change the already-published binding.
	require.NoError(t, Init(incompleteResolver{}))

	t.Run("FuncGetName", func(t *testing.T) {
		name, err := FuncGetName(unsafe.Pointer(uintptr(1)))
		require.NoError(t, err)
		assert.Equal(t, "_ZN4test6kernelEv", name)
	})

	t.Run("LaunchKernel", func(t *testing.T) {
		err := LaunchKernel(unsafe.Pointer(uintptr(1)), unsafe.Pointer(uintptr(2)),
			Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, nil, 0)
		assert.NoError(t, err)
	})

	t.Run("LaunchKernelExC", func(t *testing.T) {
		err := LaunchKernelExC(unsafe.Pointer(uintptr(3)), unsafe.Pointer(uintptr(1)), nil)
		assert.NoError(t, err)
	})

	t.Run("CuLaunchKernel", func(t *testing.T) {
		err := CuLaunchKernel(unsafe.Pointer(uintptr(1)), unsafe.Pointer(uintptr(2)),
			Dim3{X: 1, Y: 1, Z: 1}, Dim3{X: 1, Y: 1, Z: 1}, nil, 0)
		assert.NoError(t, err)
	})

	t.Run("CuLaunchKernelEx", func(t *testing.T) {
		err := CuLaunchKernelEx(unsafe.Pointer(uintptr(3)), unsafe.Pointer(uintptr(1)), nil)
		assert.NoError(t, err)
	})

	t.Run("StreamGetId", func(t *testing.T) {
		id, err := StreamGetId(unsafe.Pointer(uintptr(2)))
		require.NoError(t, err)
		assert.Equal(t, uint64(42), id)
	})

	t.Run("EventLifecycle", func(t *testing.T) {
		event, err := EventCreateWithFlags(0)
		require.NoError(t, err)
		require.NoError(t, EventRecord(event, nil))

		err = EventQuery(event)
		require.Error(t, err)
		verr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, EventNotReady, verr.Code)

		ms, err := EventElapsedTime(event, event)
		require.NoError(t, err)
		assert.Equal(t, float32(1.5), ms)

		require.NoError(t, EventDestroy(event))
	})
}

func TestMust_BindingPublishedAfterInit(t *testing.T) {
	// must() is only exercised indirectly through the public functions
	// once Init has already succeeded in this test binary (see
	// TestVendorAPI_EndToEnd); here we only assert the binding that was
	// published is non-nil, since sync.Once means we cannot observe the
	// pre-Init panic without a fresh process.
	require.NotNil(t, bindingVal)
}
