// Package pipeline holds the one piece of state every pass in the
// pipeline needs a handle on: where its log records go. spec.md §9 flags
// "global per-compilation state" as something a re-architected version of
// this core should carry as an explicit object instead of a package-level
// variable; Context is that object, passed as the first argument into
// ssa.BuildLCSSA, optimizer.UnrollLoops, and regalloc.Allocate rather than
// having each of those reach for a logging package's default instance.
package pipeline

import "github.com/GriffinCanCode/regcore/pkg/logger"

// Context is threaded through every pass call.
type Context struct {
	Log *logger.Logger
}

// Background returns a Context whose Log discards everything, for
// callers (most tests, library use with no logging opinion) that have
// nothing more specific to provide.
func Background() Context {
	return Context{Log: logger.Noop()}
}

// With returns a copy of ctx using log instead of its current Logger.
func (ctx Context) With(log *logger.Logger) Context {
	ctx.Log = log
	return ctx
}
