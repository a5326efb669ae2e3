package aspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyoung/hangdetect/internal/launch"
)

type capturingSink struct {
	messages []string
}

func (s *capturingSink) Info(msg string, args ...any) {
	s.messages = append(s.messages, msg)
}
func (s *capturingSink) Warn(string, ...any)  {}
func (s *capturingSink) Raw(string)           {}
func (s *capturingSink) Error(string, ...any) {}

func TestLogging_BeforeCallLogsDisplay(t *testing.T) {
	sink := &capturingSink{}
	a := Logging{Sink: sink}
	d := newTestDescriptor(t)

	require.NoError(t, a.BeforeCall(d))
	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "Launching CUDA kernel:")
}

func TestLogging_AfterCallIsNoop(t *testing.T) {
	sink := &capturingSink{}
	a := Logging{Sink: sink}
	d := newTestDescriptor(t)

	require.NoError(t, a.AfterCall(d))
	assert.Empty(t, sink.messages)
}
