// Package ircdlog wraps a single process-wide *log.Logger the way
// sandia-minimega-minimega/phenix/util and velour-chat thread a logger
// through their runtime context: constructed once at startup, never a
// bare global reached from arbitrary packages.
package ircdlog

import (
	"io"
	"log"
	"os"
)

// Logger tags every line with a component prefix ("ircd/registry",
// "ircd/conn", "ircd/worker", ...).
type Logger struct {
	base *log.Logger
	tag  string
}

// New constructs a root Logger writing to w with the standard date/time
// flags, the way phenix's util.Logger wraps the stdlib logger.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{base: log.New(w, "", log.LstdFlags)}
}

// Default returns a root Logger writing to stderr.
func Default() *Logger {
	return New(os.Stderr)
}

// With returns a child Logger that prefixes every line with tag,
// leaving the receiver unmodified.
func (l *Logger) With(tag string) *Logger {
	return &Logger{base: l.base, tag: tag}
}

func (l *Logger) prefix() string {
	if l.tag == "" {
		return ""
	}
	return "[" + l.tag + "] "
}

// Printf logs one line through the component prefix.
func (l *Logger) Printf(format string, args ...any) {
	l.base.Printf(l.prefix()+format, args...)
}

// Println logs one line through the component prefix.
func (l *Logger) Println(args ...any) {
	l.base.Print(l.prefix(), args)
}
