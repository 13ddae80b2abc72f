// Package logger provides file-based structured logging for linear-task.
//
// The terminal is owned by the UI, so log output always goes to a file.
// Until Init is called every function is a no-op.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel is the minimum severity that is written.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the config spelling of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel converts a config string to a LogLevel. Unknown values map to LevelWarning.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelWarning
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

var (
	mu     sync.RWMutex
	log    = zerolog.Nop()
	output io.Closer
)

// Init opens (or creates) the log file and starts writing entries at or above level.
// An empty path keeps logging disabled.
func Init(path string, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	if path == "" {
		log = zerolog.Nop()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}

	output = f
	log = newLogger(f, level)
	return nil
}

// InitWriter routes log output to w. Used by tests and by --log-stderr.
func InitWriter(w io.Writer, level LogLevel) {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	log = newLogger(w, level)
}

func newLogger(w io.Writer, level LogLevel) zerolog.Logger {
	return zerolog.New(w).
		Level(level.zerolog()).
		With().
		Timestamp().
		Logger()
}

// Close flushes and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	log = zerolog.Nop()
}

func closeLocked() {
	if output != nil {
		_ = output.Close()
		output = nil
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	current().Debug().Msgf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	current().Info().Msgf(format, args...)
}

// Warning logs a warning.
func Warning(format string, args ...interface{}) {
	current().Warn().Msgf(format, args...)
}

// Error logs an error message without an attached error value.
func Error(format string, args ...interface{}) {
	current().Error().Msgf(format, args...)
}

// ErrorWithErr logs an error message with err attached as the "error" field.
func ErrorWithErr(err error, format string, args ...interface{}) {
	current().Error().Err(err).Msgf(format, args...)
}
