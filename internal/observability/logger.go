package observability

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalMu     sync.Mutex
	globalLogger zerolog.Logger
	initialized  bool
)

// InitLogger initializes the global structured logger.
func InitLogger(level string, pretty bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if initialized {
		return
	}

	globalLogger = NewLogger(os.Stdout, level, pretty)
	log.Logger = globalLogger
	initialized = true
}

// NewLogger builds a logger writing JSON, or console output when pretty is set.
func NewLogger(out io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
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

// GetLogger returns the global logger.
func GetLogger() zerolog.Logger {
	globalMu.Lock()
	ready := initialized
	globalMu.Unlock()
	if !ready {
		InitLogger("info", false)
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalLogger
}

// Component creates a logger tagged with a component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// NewSessionID generates an identifier used to correlate one session's logs.
func NewSessionID() string {
	return uuid.NewString()
}
