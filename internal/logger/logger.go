// Package logger provides the structured logging facade used across the
// service. Subsystems receive a Logger at construction and attach typed
// fields instead of formatting strings.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is the minimum severity a logger emits.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger is the logging interface passed to every subsystem.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that always carries the given fields.
	With(fields ...Field) Logger
	// Module returns a child logger tagged with a component name.
	Module(name string) Logger
}

// Options tunes a logger created by New.
type Options struct {
	// Console switches from JSON lines to zerolog's human-readable writer.
	Console bool
	// TimeFormat overrides the timestamp layout. Defaults to RFC3339.
	TimeFormat string
}

// ParseLevel maps a configuration string to a LogLevel, falling back to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologLogger struct {
	zl zerolog.Logger
}

// New creates a Logger writing to w at the given level. A nil writer means stderr.
func New(w io.Writer, level LogLevel, opts *Options) Logger {
	if w == nil {
		w = os.Stderr
	}
	timeFormat := time.RFC3339
	if opts != nil && opts.TimeFormat != "" {
		timeFormat = opts.TimeFormat
	}
	if opts != nil && opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}
	zl := zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}

func (l *zerologLogger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.applyContext(ctx)
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Module(name string) Logger {
	return &zerologLogger{zl: l.zl.With().Str("module", name).Logger()}
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = f.applyEvent(ev)
	}
	ev.Msg(msg)
}
