package pkg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Pipeline component identifiers.
const (
	ComponentSequencer Component = "sequencer"
	ComponentCapture   Component = "capture"
	ComponentAssembler Component = "assembler"
	ComponentDelivery  Component = "delivery"
	ComponentHAL       Component = "hal"
	ComponentTransport Component = "transport"
	ComponentConfig    Component = "config"
	ComponentHost      Component = "host"
)

// LogFormat selects the log record encoding.
type LogFormat int

// Log formats.
const (
	LogFormatText LogFormat = iota // key=value (default)
	LogFormatJSON                  // one JSON object per line
)

var (
	// DefaultLogger receives every pipeline log record.
	DefaultLogger *slog.Logger

	// logLevel is shared by every handler this package creates, so a level
	// change applies to replaced loggers too.
	logLevel = new(slog.LevelVar)

	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = NewLogger(os.Stderr, LogFormatText)
}

// NewLogger returns a logger writing records to w in format at the shared
// pipeline level.
func NewLogger(w io.Writer, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetLogLevel sets the minimum level of pipeline logging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLogLevel returns the minimum level of pipeline logging.
func GetLogLevel() slog.Level {
	return logLevel.Level()
}

// ParseLogLevel converts a level name (debug, info, warn, error) to a
// [slog.Level]. Unknown names return [ErrInvalidParameter].
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, ErrInvalidParameter
	}
	return level, nil
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat switches the default logger to format, writing to stderr.
func SetLogFormat(format LogFormat) {
	SetLogger(NewLogger(os.Stderr, format))
}

// ComponentLogger returns the current default logger tagged with component.
// Long-lived objects hold the result instead of tagging on every call.
func ComponentLogger(component Component) *slog.Logger {
	return current().With("component", string(component))
}

func current() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// logAt checks the level before building the argument slice, so disabled
// debug calls on the poll path do not allocate.
func logAt(level slog.Level, component Component, msg string, args []any) {
	logger := current()
	if !logger.Enabled(context.Background(), level) {
		return
	}
	logger.Log(context.Background(), level, msg, append([]any{"component", string(component)}, args...)...)
}

// LogEnabled reports whether records at level are emitted. Hot paths check
// it before building log arguments.
func LogEnabled(level slog.Level) bool {
	return current().Enabled(context.Background(), level)
}

// LogDebug logs at debug level for component.
func LogDebug(component Component, msg string, args ...any) {
	logAt(slog.LevelDebug, component, msg, args)
}

// LogInfo logs at info level for component.
func LogInfo(component Component, msg string, args ...any) {
	logAt(slog.LevelInfo, component, msg, args)
}

// LogWarn logs at warn level for component.
func LogWarn(component Component, msg string, args ...any) {
	logAt(slog.LevelWarn, component, msg, args)
}

// LogError logs at error level for component.
func LogError(component Component, msg string, args ...any) {
	logAt(slog.LevelError, component, msg, args)
}
