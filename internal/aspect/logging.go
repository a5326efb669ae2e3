package aspect

import (
	"github.com/reyoung/hangdetect/internal/launch"
	"github.com/reyoung/hangdetect/internal/logsink"
)

// Logging is the Logging Aspect (spec.md C7): it announces every
// launch it sees before the vendor call runs, and does nothing after.
type Logging struct {
	Sink logsink.Sink
}

func (a Logging) BeforeCall(d launch.Descriptor) error {
	a.Sink.Info("Launching CUDA kernel: " + d.String())
	return nil
}

func (a Logging) AfterCall(launch.Descriptor) error {
	return nil
}
