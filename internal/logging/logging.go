// Package logging provides structured, component-scoped logging backed by
// commonlog.
package logging

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

// Level represents the severity level of a log message.
type Level int

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// commonlogLevel maps a Level onto commonlog's scale.
func (l Level) commonlogLevel() commonlog.Level {
	switch l {
	case LevelDebug:
		return commonlog.Debug
	case LevelWarn:
		return commonlog.Warning
	case LevelError:
		return commonlog.Error
	default:
		return commonlog.Info
	}
}

// verbosity maps a Level onto commonlog's verbosity argument.
func (l Level) verbosity() int {
	switch l {
	case LevelDebug:
		return 2
	case LevelWarn:
		return -1
	case LevelError:
		return -2
	default:
		return 1
	}
}

// Configure sets the process-wide minimum level and, when path is not
// empty, the log file. A commonlog backend must be linked in by the binary.
func Configure(level Level, path string) {
	if path == "" {
		commonlog.Configure(level.verbosity(), nil)
		return
	}
	commonlog.Configure(level.verbosity(), &path)
}

// Sink is the part of commonlog.Logger that Logger writes through.
type Sink interface {
	AllowLevel(level commonlog.Level) bool
	Log(level commonlog.Level, depth int, message string, keysAndValues ...any)
}

// Logger provides structured logging for one component.
// Loggers are immutable; With* methods return derived loggers.
type Logger struct {
	name     string
	sink     Sink
	fields   map[string]any
	disabled bool
}

// New returns a logger named "exthost.<name>".
func New(name string) *Logger {
	full := "exthost"
	if name != "" {
		full += "." + name
	}
	return &Logger{name: full, sink: commonlog.GetLogger(full)}
}

// NewWithSink returns a logger writing to sink. Used by tests to capture
// output.
func NewWithSink(name string, sink Sink) *Logger {
	return &Logger{name: name, sink: sink}
}

// Nop is a logger that discards all output.
var Nop = &Logger{disabled: true}

// Name returns the logger's hierarchical name.
func (l *Logger) Name() string {
	return l.name
}

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a new logger with the given fields added.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newFields := make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(newFields, l.fields)
	maps.Copy(newFields, fields)
	return &Logger{name: l.name, sink: l.sink, fields: newFields, disabled: l.disabled}
}

// WithComponent returns a child logger named after the component. Fields
// are carried over.
func (l *Logger) WithComponent(component string) *Logger {
	if l.disabled {
		return l
	}
	child := l.name + "." + component
	sink := l.sink
	if _, ok := sink.(commonlog.Logger); ok {
		sink = commonlog.GetLogger(child)
	}
	return &Logger{name: child, sink: sink, fields: maps.Clone(l.fields)}
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return !l.disabled && l.sink != nil && l.sink.AllowLevel(level.commonlogLevel())
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

// log writes a message if the level is enabled. Fields are passed as
// sorted key-value pairs so output is stable.
func (l *Logger) log(level Level, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	kv := make([]any, 0, 2*len(l.fields))
	for _, k := range slices.Sorted(maps.Keys(l.fields)) {
		kv = append(kv, k, l.fields[k])
	}
	l.sink.Log(level.commonlogLevel(), 2, msg, kv...)
}

// Recorder is a Sink that keeps messages in memory.
type Recorder struct {
	mu      sync.Mutex
	max     commonlog.Level
	records []Record
}

// Record is one message captured by a Recorder.
type Record struct {
	Level   commonlog.Level
	Message string
	Fields  []any
}

// NewRecorder returns a logger that records messages at level or above.
func NewRecorder(level Level) (*Logger, *Recorder) {
	r := &Recorder{max: level.commonlogLevel()}
	return NewWithSink("recorder", r), r
}

// AllowLevel implements Sink.
func (r *Recorder) AllowLevel(level commonlog.Level) bool {
	return level <= r.max
}

// Log implements Sink.
func (r *Recorder) Log(level commonlog.Level, depth int, message string, keysAndValues ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Level: level, Message: message, Fields: keysAndValues})
}

// Records returns the captured messages.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Contains reports whether a message at level contains substr.
func (r *Recorder) Contains(level Level, substr string) bool {
	for _, rec := range r.Records() {
		if rec.Level == level.commonlogLevel() && strings.Contains(rec.Message, substr) {
			return true
		}
	}
	return false
}
