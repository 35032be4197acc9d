// Package diag provides Anvil's leveled logger and the resolver's trace
// writer; error kinds are declared by the packages that raise them. It stays a thin
// wrapper over the standard logger, in main.go's logf/vlogf spirit, rather
// than pulling in a structured-logging framework the distilled spec never
// asked the domain layers to depend on.
package diag

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is Anvil's diagnostic sink. Diag-level messages (registry
// fallbacks, cache refresh notices) only print when Verbose is set; Warn
// and Error always print.
type Logger struct {
	out     *log.Logger
	errOut  *log.Logger
	Verbose bool
}

// New constructs a Logger writing informational output to out and
// warnings/errors to errOut.
func New(out, errOut io.Writer) *Logger {
	return &Logger{
		out:    log.New(out, "", 0),
		errOut: log.New(errOut, "", 0),
	}
}

// Default is a Logger writing to stderr for both streams, matching
// main.go's "dep: "-prefixed logf/vlogf helpers.
func Default() *Logger {
	return New(os.Stderr, os.Stderr)
}

func (l *Logger) Diag(format string, args ...interface{}) {
	if l == nil || !l.Verbose {
		return
	}
	l.out.Printf("anvil: "+format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.out.Printf("anvil: "+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.errOut.Printf("anvil: warning: "+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.errOut.Printf("anvil: error: "+format, args...)
}

// Tracer is the resolver's backtracking trace sink (spec §5,
// SolveParameters.Trace/TraceLogger in solver.go). A nil
// Tracer disables tracing entirely with zero overhead at call sites that
// guard on Tracer == nil.
type Tracer struct {
	l *log.Logger
}

// NewTracer wraps w as a Tracer.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{l: log.New(w, "", 0)}
}

func (t *Tracer) Trace(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.l.Printf(format, args...)
}

func (t *Tracer) Tracef(depth int, format string, args ...interface{}) {
	if t == nil {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	t.l.Print(indent + fmt.Sprintf(format, args...))
}
