// Package logger builds the structured loggers the pipeline's passes
// write through. Every Logger is constructed explicitly by its caller
// and threaded through a pipeline.Context — nothing here keeps a
// package-level default the way a process-wide logging setup usually
// would, since spec.md §9 asks for exactly that kind of global state to
// be re-architected as an explicit object instead.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options configures a Logger. Level is slog's own level type directly;
// there is no reason to wrap it in a second parallel enum just to
// translate back at construction time.
type Options struct {
	Level     slog.Level
	JSON      bool
	Output    io.Writer
	AddSource bool
	// LogFile, if set, opens (creating/appending) a file and logs there
	// instead of Output.
	LogFile string
}

// Dev returns the options a local, interactive run wants: debug level,
// human-readable, source locations on every record.
func Dev() Options {
	return Options{Level: slog.LevelDebug, Output: os.Stderr, AddSource: true}
}

// Prod returns the options a scripted or long-running invocation wants:
// info level, JSON lines, written under logDir.
func Prod(logDir string) Options {
	return Options{Level: slog.LevelInfo, JSON: true, LogFile: filepath.Join(logDir, "regcore.log")}
}

// Logger wraps a *slog.Logger with the handful of pass-level events every
// stage of the pipeline reports, so call sites reach for Phase/Transform/
// Rollback instead of hand-rolling the same Info/Warn call with slightly
// different keys each time.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from opts. Callers own the result and pass it down
// through a pipeline.Context; there is nothing global to initialize
// first.
func New(opts Options) (*Logger, error) {
	out := opts.Output
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logger: open %s: %w", opts.LogFile, err)
		}
		out = f
	}
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return &Logger{slog.New(handler)}, nil
}

// Noop returns a Logger that discards every record, the zero-value
// logger a pipeline.Context falls back to when nothing more specific was
// configured (library use, most tests).
func Noop() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Phase reports the start of a pipeline pass.
func (l *Logger) Phase(name string) {
	l.Info("starting pass", "pass", name)
}

// PhaseDone reports the completion of a pipeline pass.
func (l *Logger) PhaseDone(name string) {
	l.Info("completed pass", "pass", name)
}

// Transform reports a pass that rewrote the IR, and how many sites it
// touched.
func (l *Logger) Transform(pass string, changes int) {
	l.Info("transformation pass complete", "pass", pass, "changes", changes)
}

// Decline reports a candidate a pass looked at but chose not to
// transform (an unrecognized loop shape, for instance) — not a failure,
// just a skip worth a trace.
func (l *Logger) Decline(what, reason string) {
	l.Debug("declined", "target", what, "reason", reason)
}

// Rollback reports a cloud or value the allocator could not color as a
// unit and fell back to a narrower strategy for.
func (l *Logger) Rollback(what, reason string) {
	l.Warn("allocation rolled back", "target", what, "reason", reason)
}
