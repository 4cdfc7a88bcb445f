package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/optimizer"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
	"github.com/GriffinCanCode/regcore/pkg/ssa"
)

// buildCountingLoop constructs the IR shape for `for i:=0;i<=7;i+=1 {...}`:
// header holds the phi and a CmpLE guard, body increments the induction
// variable and jumps back.
func buildCountingLoop(t *testing.T, limit int64) *ir.Func {
	t.Helper()
	f := ir.NewFunc("counting")
	entry := f.Entry
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	f.Jump(entry, header)   // header.Preds = [entry]
	f.AddEdge(body, header) // header.Preds = [entry, body] (the back edge)

	init := entry.NewConst(0, 0)
	phi := header.NewPhi(0, nil, nil) // operands patched once add exists
	limitC := header.NewConst(0, limit)
	cmp := header.NewValue(ir.OpCmpLE, 0, phi, limitC)
	f.Branch(header, cmp, body, exit) // header.Succs = [body, exit]

	stepC := body.NewConst(0, 1)
	add := body.NewValue(ir.OpAdd, 0, phi, stepC)

	phi.SetArgs([]*ir.Value{init, add})
	return f
}

func TestUnrollFullyUnrollsSmallTripCount(t *testing.T) {
	f := buildCountingLoop(t, 7) // trip count = (7-0+1)/1 = 8
	ssa.BuildLCSSA(pipeline.Background(), f)

	cfg := optimizer.DefaultConfig()
	require.NoError(t, optimizer.UnrollLoops(pipeline.Background(), f, cfg))

	// 8 iterations fully unrolled: the original body plus 7 copies, one
	// OpAdd each.
	bodyLikeBlocks := 0
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op == ir.OpAdd {
				bodyLikeBlocks++
			}
		}
	}
	require.Equal(t, 8, bodyLikeBlocks)
}

func TestUnrollLeavesNonCountingLoopAlone(t *testing.T) {
	f := ir.NewFunc("whileTrue")
	header := f.Entry
	body := f.NewBlock()
	exit := f.NewBlock()
	cond := header.NewParam(0, 0)
	f.Branch(header, cond, body, exit)
	f.Jump(body, header)

	before := f.NumBlocks()
	require.NoError(t, optimizer.UnrollLoops(pipeline.Background(), f, optimizer.DefaultConfig()))
	require.Equal(t, before, f.NumBlocks())
}
