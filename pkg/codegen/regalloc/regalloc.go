// Package regalloc implements the graph-coloring, copy-coalescing
// register allocator ("co2"): interference graph (C6), affinity graph
// and clouds (C7), the co2 coalescer itself (C8), and the register-class
// constraint model (C9).
//
// Grounded on the teacher's codegen/regalloc/regalloc.go Allocate
// top-level orchestrator (build interference, build affinity, color,
// verify) and on the SSA liveness pass this module depends on for the
// interference graph's live-set queries.
package regalloc

import (
	"fmt"

	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/liveness"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
)

// Result is everything Allocate produces: the final coloring plus the
// graphs it was derived from, useful for dump/inspection tooling.
type Result struct {
	Coloring    Coloring
	Interfere   *Graph
	Affinity    *AffinityGraph
	Liveness    *liveness.Info
	Constraints *Constraints
}

// Commit writes a completed Coloring back onto each value's Color field.
// The single call site for ir.Value.SetColor, per spec.md §6's
// single-writer contract.
func Commit(ig *Graph, coloring Coloring) {
	for _, v := range ig.Nodes() {
		if col, ok := coloring[v.ID]; ok {
			v.SetColor(col)
		}
	}
}

// Allocate runs the full co2 pipeline over f: build liveness, build the
// interference graph from it, build the affinity graph from f's copies
// and phis, then color cloud-by-cloud via the Coalescer. The resulting
// coloring is written back onto each value's Color field before return.
func Allocate(ctx pipeline.Context, f *ir.Func, cons *Constraints) (*Result, error) {
	ctx.Log.Phase("register-allocation")

	li := liveness.Build(f)
	ig := BuildInterference(f, li)
	ag := BuildAffinity(f)

	coloring, err := NewCoalescer(ig, ag, cons).withLogger(ctx.Log).Run()
	if err != nil {
		return nil, fmt.Errorf("co2 coalescing: %w", err)
	}

	Commit(ig, coloring)

	if err := Verify(ig, coloring, cons); err != nil {
		return nil, err
	}

	ctx.Log.PhaseDone("register-allocation")
	return &Result{
		Coloring:    coloring,
		Interfere:   ig,
		Affinity:    ag,
		Liveness:    li,
		Constraints: cons,
	}, nil
}
