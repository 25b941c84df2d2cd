// Package log provides structured logging for chalc2d on top of
// rs/zerolog. Loggers are named per component and accept alternating
// key/value fields; error values logged through ErrAttr carry the stack
// trace recorded by cockroachdb/errors.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Logger is the minimal structured logging interface used across the
// project. Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a Logger with the given fields pre-populated.
	With(fields ...any) Logger
}

const (
	// ComponentKey names the component emitting the event.
	ComponentKey = "component"
	// ErrAttrKey is the field key under which errors are logged.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the field key for stack traces extracted
	// from cockroachdb/errors.
	StacktraceAttrKey = "stacktrace"
)

var (
	mu     sync.Mutex
	root   = newZerologLogger(os.Stderr, zerolog.InfoLevel)
	output io.Writer = os.Stderr
)

// SetLevel sets the minimum level for loggers obtained after the call.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	root = newZerologLogger(output, toZerologLevel(level))
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	root = newZerologLogger(w, root.zl.GetLevel())
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()
	return root
}

// GetLoggerWithName returns a logger tagged with a component name,
// e.g. "gbdt.regressor" or "vasp.results".
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

func toZerologLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

func newZerologLogger(w io.Writer, level zerolog.Level) *zerologLogger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		value := fields[i+1]
		if err, isErr := value.(error); isErr && key == ErrAttrKey {
			e = e.AnErr(ErrAttrKey, err)
			if trace := extractStacktrace(err); trace != "" {
				e = e.Str(StacktraceAttrKey, trace)
			}
			continue
		}
		if marshaler, isObj := value.(zerolog.LogObjectMarshaler); isObj {
			e = e.Object(key, marshaler)
			continue
		}
		e = e.Interface(key, value)
	}
	e.Msg(msg)
}

// ErrAttr returns the key/value pair under which an error should be
// logged so that its stack trace is attached.
func ErrAttr(err error) (string, error) {
	return ErrAttrKey, err
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
