// Package logsink provides leveled logging (info, debug, warn, error,
// fatal, and panic(subsystem, msg)) as a thin wrapper over the standard
// library's log.Logger, with optional forwarding of every line to a
// remote TCP sink.
package logsink

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is a small leveled wrapper around *log.Logger. The zero value
// is not usable; construct with New.
type Logger struct {
	out  *log.Logger
	sink *Sink
}

// New creates a Logger writing to out (os.Stderr if nil). sink, if
// non-nil, additionally receives every formatted line.
func New(out io.Writer, sink *Sink) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: log.New(out, "", log.LstdFlags|log.Lmicroseconds), sink: sink}
}

func (l *Logger) emit(level, msg string) {
	line := fmt.Sprintf("[%s] %s", level, msg)
	l.out.Println(line)
	if l.sink != nil {
		l.sink.Forward(line)
	}
}

// Info logs at info level.
func (l *Logger) Info(msg string) { l.emit("INFO", msg) }

// Infof logs at info level with formatting.
func (l *Logger) Infof(format string, args ...interface{}) { l.Info(fmt.Sprintf(format, args...)) }

// Debug logs at debug level.
func (l *Logger) Debug(msg string) { l.emit("DEBUG", msg) }

// Debugf logs at debug level with formatting.
func (l *Logger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string) { l.emit("WARN", msg) }

// Warnf logs at warn level with formatting.
func (l *Logger) Warnf(format string, args ...interface{}) { l.Warn(fmt.Sprintf(format, args...)) }

// Error logs at error level.
func (l *Logger) Error(msg string) { l.emit("ERROR", msg) }

// Errorf logs at error level with formatting.
func (l *Logger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }

// Fatal logs at fatal level and terminates the process.
func (l *Logger) Fatal(msg string) {
	l.emit("FATAL", msg)
	os.Exit(1)
}

// Fatalf logs at fatal level with formatting and terminates the process.
func (l *Logger) Fatalf(format string, args ...interface{}) { l.Fatal(fmt.Sprintf(format, args...)) }

// Panic denotes an impossible-state violation. It logs, then panics so
// the process terminates with a stack trace; callers must never recover
// it.
func (l *Logger) Panic(subsystem, msg string) {
	full := fmt.Sprintf("[%s] %s", subsystem, msg)
	l.emit("PANIC", full)
	panic(full)
}
