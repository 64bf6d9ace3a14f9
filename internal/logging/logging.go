package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger configured for stdout at info level.
func New() zerolog.Logger {
	return zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// NewWithLevel returns a stdout logger at the named level.
// Unrecognized or empty levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	return New().Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
