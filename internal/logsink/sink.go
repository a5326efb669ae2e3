// Package logsink is the concrete "logging sink" external collaborator
// described in spec.md §6: an info/warn/error emitter accepting UTF-8
// strings. The core never depends on a specific backend directly — it
// depends on the Sink interface — so tests can substitute a recording
// sink, and the default implementation can be swapped without touching
// the aspect pipeline.
//
// The default implementation is built on
// github.com/joeycumines/logiface over its slog backend, writing either
// to the rank-suffixed file named by HANGDETECT_LOG_FILE, or to stderr
// if that variable is unset.
package logsink

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
	logifaceslog "github.com/joeycumines/logiface-slog"
)

// Sink is the leveled string emitter the monitor pipeline depends on.
type Sink interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// Raw writes line verbatim, followed by a newline, with no envelope
	// of its own. The async logger's Start/Complete records are already
	// complete JSON documents (spec.md §4.9); wrapping them in another
	// layer of structured logging would nest one JSON document inside
	// another's "msg" field instead of emitting the one §6 describes.
	Raw(line string)
}

// logifaceSink adapts a *logiface.Logger[*logifaceslog.Event] to Sink,
// and keeps the underlying writer so Raw can bypass the logger entirely.
type logifaceSink struct {
	logger *logiface.Logger[*logifaceslog.Event]

	mu     sync.Mutex
	writer *os.File
}

func (s *logifaceSink) Info(msg string, args ...any)  { logWithArgs(s.logger.Info(), msg, args) }
func (s *logifaceSink) Warn(msg string, args ...any)  { logWithArgs(s.logger.Warning(), msg, args) }
func (s *logifaceSink) Error(msg string, args ...any) { logWithArgs(s.logger.Err(), msg, args) }

func (s *logifaceSink) Raw(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, line)
}

func logWithArgs(b *logiface.Builder[*logifaceslog.Event], msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		b = b.Interface(key, args[i+1])
	}
	b.Log(msg)
}

// Options configures New.
type Options struct {
	// FilePath is the rank-suffixed log file path (HANGDETECT_LOG_FILE.LOCAL_RANK),
	// or empty to fall back to stderr.
	FilePath string
	// Level is the minimum level to emit, derived from HANGDETECT_LOG_LEVEL.
	Level logiface.Level
}

// New builds the default Sink. If opts.FilePath is set, its parent
// directories are created and the file is opened for append; failures
// to do so fall back to stderr rather than losing logs entirely,
// mirroring the Rust original's logger.rs fallback-to-env-logger
// behavior.
func New(opts Options) Sink {
	var writer *os.File = os.Stderr
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "hangdetect: failed to create log directory for %s, falling back to stderr: %v\n", opts.FilePath, err)
		} else if f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "hangdetect: failed to open log file %s, falling back to stderr: %v\n", opts.FilePath, err)
		} else {
			writer = f
		}
	}

	handler := slog.NewJSONHandler(writer, nil)
	logger := logiface.New[*logifaceslog.Event](
		logifaceslog.NewLogger(handler, logifaceslog.WithLevel(opts.Level)),
	)

	sink := &logifaceSink{logger: logger, writer: writer}
	sink.Info("hangdetect logging initialized", "session", uuid.NewString())
	return sink
}

// LevelFromString maps the HANGDETECT_LOG_LEVEL values to logiface
// levels, defaulting to info for anything unrecognized.
func LevelFromString(s string) logiface.Level {
	switch s {
	case "trace":
		return logiface.LevelTrace
	case "debug":
		return logiface.LevelDebug
	case "warn":
		return logiface.LevelWarning
	case "error":
		return logiface.LevelError
	case "info", "":
		return logiface.LevelInformational
	default:
		return logiface.LevelInformational
	}
}
