// Package config resolves hangdetect's four environment variables
// exactly once, together, at process startup. HANG_DETECTION_ENABLED
// becomes the process-wide default the enabler seeds each thread's
// latch from; the remaining three govern the log sink.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the resolved set of environment-derived settings.
type Config struct {
	// HangDetectionDefault is the process-wide default for
	// HANG_DETECTION_ENABLED, used to seed each thread's first read
	// of its enabler latch.
	HangDetectionDefault bool
	// LogFile is the HANGDETECT_LOG_FILE value, or empty if unset (in
	// which case the sink falls back to stderr).
	LogFile string
	// LogLevel is the raw HANGDETECT_LOG_LEVEL value, passed to
	// logsink.LevelFromString.
	LogLevel string
	// LocalRank is the LOCAL_RANK value, appended as a suffix to
	// LogFile.
	LocalRank string
}

// Load reads the environment, first giving a .env file in the current
// directory a chance to populate it (mirroring the convenience
// godotenv.Load offers other services in this codebase); a missing or
// unreadable .env file is not an error, since the environment may
// already be fully populated by the host process.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "hangdetect: ignoring .env load error: %v\n", err)
	}

	rank := os.Getenv("LOCAL_RANK")
	if rank == "" {
		rank = "0"
	}

	return Config{
		HangDetectionDefault: os.Getenv("HANG_DETECTION_ENABLED") == "1",
		LogFile:              os.Getenv("HANGDETECT_LOG_FILE"),
		LogLevel:             os.Getenv("HANGDETECT_LOG_LEVEL"),
		LocalRank:            rank,
	}
}

// LogFilePath returns the rank-suffixed log file path, or empty if no
// log file was configured.
func (c Config) LogFilePath() string {
	if c.LogFile == "" {
		return ""
	}
	return fmt.Sprintf("%s.%s", c.LogFile, c.LocalRank)
}
