// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = newLogger(consoleWriter(os.Stdout), zerolog.InfoLevel)
}

// Setup rebuilds the global logger for the given mode and level.
// "debug" mode writes colored console lines, every other mode writes JSON.
func Setup(mode, service string) {
	var out io.Writer = os.Stdout
	if mode == "debug" {
		out = consoleWriter(os.Stdout)
	}

	level := ParseLevel(mode)
	Log = newLogger(out, level).With().Str("service", service).Logger()
	zerolog.SetGlobalLevel(level)

	// Packages log through zerolog/log so point its global at ours.
	log.Logger = Log
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

// ParseLevel maps a server mode or level name to a zerolog level.
func ParseLevel(value string) zerolog.Level {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "", "release":
		return zerolog.InfoLevel
	default:
		if lvl, err := zerolog.ParseLevel(v); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
		return zerolog.InfoLevel
	}
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}
