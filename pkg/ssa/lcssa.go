// Package ssa builds loop-closed SSA (LCSSA) form: every use of a
// loop-defined value from outside the loop is rewritten to read a
// dedicated phi placed in the block the control flow first exits through,
// instead of reaching back into the loop body directly.
//
// This is a precondition the unroller (pkg/optimizer) depends on: once
// every cross-loop-boundary use goes through a single exit phi, cloning
// the loop body only ever requires rewiring that one phi's operands, never
// chasing arbitrary external users of a value scattered throughout the
// function.
package ssa

import (
	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
)

// BuildLCSSA rewrites f into loop-closed form for every natural loop in
// its loop nest. Safe to call on a function with no loops (a no-op).
func BuildLCSSA(ctx pipeline.Context, f *ir.Func) {
	ctx.Log.Phase("lcssa")
	f.BuildUseLists()
	ln := f.AssureLoopnest()
	closed := 0
	for _, lp := range ln.Loops {
		if closeLoop(f, lp) {
			closed++
		}
	}
	f.BuildUseLists()
	ctx.Log.Transform("lcssa", closed)
	ctx.Log.PhaseDone("lcssa")
}

// closeLoop finds every value defined inside lp with a use outside lp,
// and redirects those external uses through a per-exit-block phi. Reports
// whether it inserted any exit phi at all.
func closeLoop(f *ir.Func, lp *ir.Loop) bool {
	exits := exitBlocks(lp)
	if len(exits) == 0 {
		return false // loop never exits (or is unreachable); nothing to close
	}

	phiCache := make(map[ir.ID]map[ir.ID]*ir.Value) // valueID -> exitBlockID -> phi

	for _, b := range lp.Members {
		for _, v := range b.Values {
			rewriteExternalUses(f, lp, v, exits, phiCache)
		}
	}
	return len(phiCache) > 0
}

// exitBlocks returns every block outside lp that is the target of an edge
// from a block inside lp.
func exitBlocks(lp *ir.Loop) []*ir.Block {
	seen := make(map[ir.ID]bool)
	var exits []*ir.Block
	for _, b := range lp.Members {
		for _, e := range b.Succs {
			if lp.Contains(e.B) || seen[e.B.ID] {
				continue
			}
			seen[e.B.ID] = true
			exits = append(exits, e.B)
		}
	}
	return exits
}

// useBlock returns the effective block a use occurs in: a phi operand's
// use is attributed to the corresponding predecessor (same convention as
// pkg/liveness).
func useBlock(u ir.Use) *ir.Block {
	if u.Val.IsPhi() {
		return u.Val.Block.Preds[u.Idx].B
	}
	return u.Val.Block
}

func rewriteExternalUses(f *ir.Func, lp *ir.Loop, v *ir.Value, exits []*ir.Block, cache map[ir.ID]map[ir.ID]*ir.Value) {
	for _, u := range append([]ir.Use(nil), v.Uses()...) {
		ub := useBlock(u)
		if lp.Contains(ub) {
			continue // internal use, untouched
		}
		exit := dominatingExit(exits, ub)
		if exit == nil {
			continue // control reaches ub without passing a known exit block; leave as-is
		}
		phi := exitPhiFor(v, exit, cache)
		u.Val.Args[u.Idx] = phi
	}
}

// dominatingExit returns the exit block that dominates ub, if any. When
// more than one qualifies (nested loops sharing an exit chain) the first
// match is used; later, larger exits are reached transitively through the
// phi chain so correctness does not depend on which one is picked.
func dominatingExit(exits []*ir.Block, ub *ir.Block) *ir.Block {
	for _, e := range exits {
		if e == ub || e.Dominates(ub) {
			return e
		}
	}
	return nil
}

// exitPhiFor returns (building if needed) the LCSSA phi for v in exit
// block e: a phi with one operand per predecessor of e, every operand
// equal to v itself, since within a single-assignment program the same
// value is valid on every path reaching e.
func exitPhiFor(v *ir.Value, e *ir.Block, cache map[ir.ID]map[ir.ID]*ir.Value) *ir.Value {
	byExit, ok := cache[v.ID]
	if !ok {
		byExit = make(map[ir.ID]*ir.Value)
		cache[v.ID] = byExit
	}
	if phi, ok := byExit[e.ID]; ok {
		return phi
	}
	args := make([]*ir.Value, len(e.Preds))
	for i := range args {
		args[i] = v
	}
	phi := e.NewPhi(v.Class, args...)
	byExit[e.ID] = phi
	return phi
}
