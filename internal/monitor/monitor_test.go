package monitor

/*
#include <stdlib.h>
#include <string.h>

static const char *hd_test_name = "kernel";

static int hd_test_func_get_name(const char **name, void *func) {
	*name = hd_test_name;
	return 0;
}
static int hd_test_stream_get_id(void *stream, unsigned long long *id) {
	*id = 1;
	return 0;
}
static int hd_test_event_create(void **event, unsigned int flags) {
	static long counter = 0;
	counter++;
	*event = (void *)counter;
	return 0;
}
static int hd_test_event_destroy(void *event) { return 0; }
static int hd_test_event_record(void *event, void *stream) { return 0; }
static int hd_test_event_elapsed(float *ms, void *start, void *end) {
	*ms = 1.0f;
	return 0;
}
static int hd_test_event_query(void *event) { return 0; }
static int hd_test_noop(void) { return 0; }

static void *hd_test_resolve(const char *symbol) {
	if (strcmp(symbol, "cudaFuncGetName") == 0 || strcmp(symbol, "cuFuncGetName") == 0) {
		return (void *)hd_test_func_get_name;
	}
	if (strcmp(symbol, "cudaStreamGetId") == 0 || strcmp(symbol, "cuStreamGetId") == 0) {
		return (void *)hd_test_stream_get_id;
	}
	if (strcmp(symbol, "cudaEventCreateWithFlags") == 0) return (void *)hd_test_event_create;
	if (strcmp(symbol, "cudaEventDestroy") == 0) return (void *)hd_test_event_destroy;
	if (strcmp(symbol, "cudaEventRecord") == 0) return (void *)hd_test_event_record;
	if (strcmp(symbol, "cudaEventElapsedTime") == 0) return (void *)hd_test_event_elapsed;
	if (strcmp(symbol, "cudaEventQuery") == 0) return (void *)hd_test_event_query;
	if (strcmp(symbol, "cudaLaunchKernel") == 0 || strcmp(symbol, "cuLaunchKernel") == 0 ||
	    strcmp(symbol, "cudaLaunchKernelExC") == 0 || strcmp(symbol, "cuLaunchKernelEx") == 0) {
		return (void *)hd_test_noop;
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

	"github.com/reyoung/hangdetect/internal/launch"
	"github.com/reyoung/hangdetect/internal/vendorapi"
)

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

type noopSink struct{}

func (noopSink) Info(string, ...any)  {}
func (noopSink) Warn(string, ...any)  {}
func (noopSink) Raw(string)           {}
func (noopSink) Error(string, ...any) {}

func newTestMonitor(t *testing.T) (*Monitor, launch.Descriptor) {
	t.Helper()
	require.NoError(t, vendorapi.Init(fakeResolver{}))
	m := New(noopSink{}, true, nil)
	d := launch.NewRuntime(unsafe.Pointer(uintptr(1)), unsafe.Pointer(uintptr(2)), m.RuntimeCache)
	return m, d
}

func TestMonitor_HappyPath_ReturnsForwardStatus(t *testing.T) {
	m, d := newTestMonitor(t)
	defer m.Close()

	status := m.Launch(d, func() error { return nil })
	assert.Equal(t, int32(0), status)
}

func TestMonitor_ForwardVendorErrorPropagates(t *testing.T) {
	m, d := newTestMonitor(t)
	defer m.Close()

	status := m.Launch(d, func() error { return &vendorapi.Error{Code: 77} })
	assert.Equal(t, int32(77), status)
}

type fixedAspect struct {
	beforeErr, afterErr error
}

func (a fixedAspect) BeforeCall(launch.Descriptor) error { return a.beforeErr }
func (a fixedAspect) AfterCall(launch.Descriptor) error  { return a.afterErr }

func TestMonitor_BeforeCallVendorErrorSkipsForward(t *testing.T) {
	m, d := newTestMonitor(t)
	defer m.Close()
	m.pipeline = fixedAspect{beforeErr: &vendorapi.Error{Code: 13}}

	calledForward := false
	status := m.Launch(d, func() error {
		calledForward = true
		return nil
	})
	assert.Equal(t, int32(13), status)
	assert.False(t, calledForward, "forward must not run after a before_call vendor error")
}

func TestMonitor_AfterCallVendorErrorOverridesForwardStatus(t *testing.T) {
	m, d := newTestMonitor(t)
	defer m.Close()
	m.pipeline = fixedAspect{afterErr: &vendorapi.Error{Code: 22}}

	status := m.Launch(d, func() error { return nil })
	assert.Equal(t, int32(22), status)
}

func TestMonitor_DisabledThreadSkipsAspectsButStillForwards(t *testing.T) {
	require.NoError(t, vendorapi.Init(fakeResolver{}))
	m := New(noopSink{}, false, nil)
	defer m.Close()
	d := launch.NewRuntime(unsafe.Pointer(uintptr(1)), unsafe.Pointer(uintptr(2)), m.RuntimeCache)

	calledForward := false
	status := m.Launch(d, func() error {
		calledForward = true
		return nil
	})
	assert.Equal(t, int32(0), status)
	assert.True(t, calledForward)
}

func TestMonitor_SetEnabledOverridesDefault(t *testing.T) {
	require.NoError(t, vendorapi.Init(fakeResolver{}))
	m := New(noopSink{}, false, nil)
	defer m.Close()

	m.SetEnabled(true)
	assert.True(t, m.enabler.Filter(launch.Descriptor{}))
}
