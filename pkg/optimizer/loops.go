// Package optimizer implements SSA-level loop unrolling. It operates on
// loop-closed SSA (pkg/ssa.BuildLCSSA must already have run): every
// external use of a loop-defined value goes through a single exit phi, so
// duplicating the loop body never needs to chase arbitrary downstream
// users, only the header's induction phi, the latch's back edge, and the
// function's keep-alive set.
package optimizer

import (
	"fmt"

	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
)

// Config bounds how aggressively loops are unrolled.
type Config struct {
	// MaxUnrollSize is the trip-count ceiling at or below which a loop is
	// fully unrolled: the body is duplicated trip-count times in one chain
	// and the back edge to the header is kept, so the header's guard exits
	// after a single pass through the chain.
	MaxUnrollSize int
	// MaxUnrollFactor bounds a partial unroll's duplication factor (a
	// power of two) when the trip count exceeds MaxUnrollSize.
	MaxUnrollFactor int
}

// DefaultConfig matches the size gate spec.md §4.5 describes for typical
// loop bodies.
func DefaultConfig() Config {
	return Config{MaxUnrollSize: 16, MaxUnrollFactor: 8}
}

// InductionInfo describes the counting-loop shape find_suitable_factor
// recognizes: a header phi stepping from Init to Limit by Step, guarded by
// a <= comparison.
type InductionInfo struct {
	Phi   *ir.Value
	Init  int64
	Step  int64
	Limit int64
	// LatchValue is the Add(phi, step) value computed each iteration;
	// Latch is the block it lives in (the loop's back-edge source).
	LatchValue *ir.Value
	Latch      *ir.Block
	LoopCount  int64
}

// findSuitableFactor locates the counting-loop induction variable in
// lp.Header and computes the unroll factor per spec.md §4.5: full unroll
// if the trip count fits under cfg.MaxUnrollSize, otherwise the largest
// power-of-two divisor of the trip count that is <= cfg.MaxUnrollFactor.
//
// Only the <= (CmpLE) comparison relation is recognized; spec.md leaves
// the < vs <= question open for the guard relation, and this
// implementation resolves it by matching CmpLE only, documented in
// DESIGN.md.
func findSuitableFactor(lp *ir.Loop, cfg Config) (*InductionInfo, int, error) {
	header := lp.Header

	var phi, latchVal, limitConst, initConst, stepConst *ir.Value
	for _, v := range header.Values {
		if !v.IsPhi() || len(v.Args) != 2 {
			continue
		}
		a0, a1 := v.Args[0], v.Args[1]
		var init, step *ir.Value
		switch {
		case a0.Op == ir.OpConst && !lp.Contains(a0.Block):
			init, step = a0, a1
		case a1.Op == ir.OpConst && !lp.Contains(a1.Block):
			init, step = a1, a0
		default:
			continue
		}
		if step.Op != ir.OpAdd || len(step.Args) != 2 || !lp.Contains(step.Block) {
			continue
		}
		var sc *ir.Value
		switch {
		case step.Args[0] == v && step.Args[1].Op == ir.OpConst:
			sc = step.Args[1]
		case step.Args[1] == v && step.Args[0].Op == ir.OpConst:
			sc = step.Args[0]
		default:
			continue
		}
		phi, initConst, stepConst, latchVal = v, init, sc, step
		break
	}
	if phi == nil {
		return nil, 0, fmt.Errorf("%w: no counting induction variable in header %s", ir.ErrUnsupported, header)
	}
	if header.Control == nil || header.Control.Op != ir.OpCmpLE {
		return nil, 0, fmt.Errorf("%w: header %s control is not a CmpLE guard", ir.ErrUnsupported, header)
	}
	cmp := header.Control
	switch {
	case cmp.Args[0] == phi && cmp.Args[1].Op == ir.OpConst:
		limitConst = cmp.Args[1]
	case cmp.Args[1] == phi && cmp.Args[0].Op == ir.OpConst:
		limitConst = cmp.Args[0]
	default:
		return nil, 0, fmt.Errorf("%w: header %s guard does not compare the induction phi to a constant", ir.ErrUnsupported, header)
	}

	step := stepConst.AuxInt
	if step <= 0 {
		return nil, 0, fmt.Errorf("%w: non-positive induction step", ir.ErrUnsupported)
	}
	init, limit := initConst.AuxInt, limitConst.AuxInt
	loopCount := (limit - init + step) / step
	if loopCount <= 0 {
		return nil, 0, fmt.Errorf("%w: non-positive trip count", ir.ErrUnsupported)
	}

	var latch *ir.Block
	for _, e := range header.Preds {
		if lp.Contains(e.B) {
			latch = e.B
		}
	}
	info := &InductionInfo{
		Phi: phi, Init: init, Step: step, Limit: limit,
		LatchValue: latchVal, Latch: latch, LoopCount: loopCount,
	}

	var factor int
	if loopCount <= int64(cfg.MaxUnrollSize) {
		factor = int(loopCount)
	} else {
		factor = largestPow2Divisor(loopCount, cfg.MaxUnrollFactor)
	}
	if factor <= 1 {
		return info, 1, fmt.Errorf("%w: no beneficial unroll factor for %s", ir.ErrUnsupported, header)
	}
	return info, factor, nil
}

func largestPow2Divisor(n int64, max int) int {
	best := 1
	for f := 2; f <= max; f *= 2 {
		if n%int64(f) == 0 {
			best = f
		}
	}
	return best
}

// UnrollLoops finds every countable outermost loop in f and unrolls it
// according to cfg. Loops find_suitable_factor declines (irreducible
// shape, no beneficial factor) are left untouched; this is not an error
// for the function as a whole. Inner loops are left for a subsequent call
// once the enclosing loop's shape has settled.
func UnrollLoops(ctx pipeline.Context, f *ir.Func, cfg Config) error {
	ctx.Log.Phase("loop-unroll")
	ln := f.AssureLoopnest()
	changes := 0
	for _, lp := range ln.Loops {
		if lp.Outer != nil {
			continue
		}
		info, factor, err := findSuitableFactor(lp, cfg)
		if err != nil {
			ctx.Log.Decline(fmt.Sprintf("loop at %s", lp.Header), err.Error())
			continue
		}
		if err := unroll(f, lp, info, factor); err != nil {
			return err
		}
		changes++
		f.InvalidateCFG()
		ln = f.AssureLoopnest()
	}
	ctx.Log.Transform("loop-unroll", changes)
	ctx.Log.PhaseDone("loop-unroll")
	return nil
}

// unroll duplicates lp's body factor-1 additional times, chaining each
// copy's latch into the next copy's entry, and the final copy's latch
// back into the header. Each copy's induction update reads the previous
// copy's, so one trip around the header advances the induction variable
// by factor steps and the header still observes the original
// Init..Limit range.
func unroll(f *ir.Func, lp *ir.Loop, info *InductionInfo, factor int) error {
	entry := loopEntryBlock(lp)
	if entry == nil || info.Latch == nil {
		return fmt.Errorf("%w: could not identify single-entry/single-latch body for %s", ir.ErrUnsupported, lp.Header)
	}
	bodyBlocks := make([]*ir.Block, 0, len(lp.Members)-1)
	for _, b := range lp.Members {
		if b != lp.Header {
			bodyBlocks = append(bodyBlocks, b)
		}
	}

	latchIdx := -1
	for i, e := range lp.Header.Preds {
		if e.B == info.Latch {
			latchIdx = i
		}
	}

	prevInduction := info.LatchValue
	prevLatchOfCopy := info.Latch

	for k := 1; k < factor; k++ {
		// original -> this copy's block/value mapping, rebuilt fresh
		// every iteration (spec.md §9: no persistent "link" field).
		blockMap := make(map[ir.ID]*ir.Block, len(bodyBlocks))
		valueMap := make(map[ir.ID]*ir.Value)
		valueMap[info.Phi.ID] = prevInduction

		for _, b := range bodyBlocks {
			blockMap[b.ID] = f.NewBlock()
		}
		for _, b := range bodyBlocks {
			nb := blockMap[b.ID]
			for _, v := range b.Values {
				nv := nb.NewValue(v.Op, v.Class, v.Args...) // patched below
				nv.AuxInt = v.AuxInt
				nv.FixedColor = v.FixedColor
				valueMap[v.ID] = nv
			}
		}
		for _, b := range bodyBlocks {
			nb := blockMap[b.ID]
			for i, v := range b.Values {
				nv := nb.Values[i]
				args := make([]*ir.Value, len(v.Args))
				for j, a := range v.Args {
					if m, ok := valueMap[a.ID]; ok {
						args[j] = m
					} else {
						args[j] = a
					}
				}
				nv.SetArgs(args)
			}
			if v := b.Control; v != nil {
				nb.SetControl(valueMap[v.ID])
			}
		}
		for _, b := range bodyBlocks {
			nb := blockMap[b.ID]
			for _, e := range b.Succs {
				if target, ok := blockMap[e.B.ID]; ok {
					f.AddEdge(nb, target)
				}
			}
		}

		newEntry := blockMap[entry.ID]
		newLatch := blockMap[info.Latch.ID]
		f.AddEdge(newLatch, lp.Header) // mirrors the original back edge, redirected below next round
		f.RedirectSucc(prevLatchOfCopy, lp.Header, newEntry)

		prevInduction = valueMap[info.LatchValue.ID]
		prevLatchOfCopy = newLatch

		for _, ka := range append([]*ir.Value(nil), f.End.KeepAlive...) {
			if m, ok := valueMap[ka.ID]; ok {
				f.End.AddEndKeepalive(m)
			}
		}
	}

	// The header phi's back-edge operand must now read the final copy's
	// induction value, since the physical predecessor at that slot has
	// moved from the original latch to the last duplicated copy.
	if latchIdx >= 0 {
		info.Phi.Args[latchIdx] = prevInduction
	}
	return nil
}

// loopEntryBlock returns the loop-member block the header branches into
// (its single in-loop successor), the start of the duplicated body chain.
func loopEntryBlock(lp *ir.Loop) *ir.Block {
	for _, e := range lp.Header.Succs {
		if lp.Contains(e.B) && e.B != lp.Header {
			return e.B
		}
	}
	return nil
}

// findConstArg returns the OpConst sibling operand of phi within add
// (add must be an OpAdd(phi, const) or OpAdd(const, phi)).
func findConstArg(add, phi *ir.Value) *ir.Value {
	if len(add.Args) != 2 {
		return nil
	}
	if add.Args[0] == phi {
		return add.Args[1]
	}
	if add.Args[1] == phi {
		return add.Args[0]
	}
	return nil
}
