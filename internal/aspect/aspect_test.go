package aspect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyoung/hangdetect/internal/launch"
)

type fakeAspect struct {
	name          string
	beforeErr     error
	afterErr      error
	beforeCalls   *[]string
	afterCalls    *[]string
}

func (a fakeAspect) BeforeCall(launch.Descriptor) error {
	if a.beforeCalls != nil {
		*a.beforeCalls = append(*a.beforeCalls, a.name)
	}
	return a.beforeErr
}

func (a fakeAspect) AfterCall(launch.Descriptor) error {
	if a.afterCalls != nil {
		*a.afterCalls = append(*a.afterCalls, a.name)
	}
	return a.afterErr
}

func TestSequence_ShortCircuitsOnFirstError(t *testing.T) {
	var before []string
	boom := errors.New("boom")
	seq := Sequence{
		fakeAspect{name: "a", beforeCalls: &before, beforeErr: boom},
		fakeAspect{name: "b", beforeCalls: &before},
	}

	err := seq.BeforeCall(launch.Descriptor{})
	assert.Equal(t, boom, err)
	assert.Equal(t, []string{"a"}, before)
}

func TestSequence_RunsAllOnSuccess(t *testing.T) {
	var before, after []string
	seq := Sequence{
		fakeAspect{name: "a", beforeCalls: &before, afterCalls: &after},
		fakeAspect{name: "b", beforeCalls: &before, afterCalls: &after},
	}

	require.NoError(t, seq.BeforeCall(launch.Descriptor{}))
	require.NoError(t, seq.AfterCall(launch.Descriptor{}))
	assert.Equal(t, []string{"a", "b"}, before)
	assert.Equal(t, []string{"a", "b"}, after)
}

type fakeFilter struct{ allow bool }

func (f fakeFilter) Filter(launch.Descriptor) bool { return f.allow }

func TestFiltered_SkipsWhenFilterRejects(t *testing.T) {
	var before []string
	f := Filtered{
		Filter: fakeFilter{allow: false},
		Aspect: fakeAspect{name: "a", beforeCalls: &before},
	}
	require.NoError(t, f.BeforeCall(launch.Descriptor{}))
	assert.Empty(t, before)
}

func TestFiltered_RunsWhenFilterAccepts(t *testing.T) {
	var before []string
	f := Filtered{
		Filter: fakeFilter{allow: true},
		Aspect: fakeAspect{name: "a", beforeCalls: &before},
	}
	require.NoError(t, f.BeforeCall(launch.Descriptor{}))
	assert.Equal(t, []string{"a"}, before)
}

func TestInternal_ErrorMessage(t *testing.T) {
	err := &Internal{Message: "pending already set"}
	assert.Contains(t, err.Error(), "pending already set")
}
