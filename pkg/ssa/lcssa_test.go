package ssa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
	"github.com/GriffinCanCode/regcore/pkg/ssa"
)

func TestBuildLCSSAInsertsExitPhi(t *testing.T) {
	f := ir.NewFunc("loop")
	entry := f.Entry
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()
	after := f.NewBlock()

	f.Jump(entry, header)
	cond := header.NewParam(0, 0)
	f.Branch(header, cond, body, exit)
	v := body.NewConst(0, 9)
	f.Jump(body, header)
	f.Jump(exit, after)

	// external use: after's instruction reads v, a value defined inside
	// the loop body.
	use := after.NewValue(ir.OpCopy, 0, v)

	ssa.BuildLCSSA(pipeline.Background(), f)

	require.NotEqual(t, v, use.Args[0], "external use should be redirected through an exit phi")
	require.True(t, use.Args[0].IsPhi())
	require.Equal(t, exit, use.Args[0].Block)
	for _, a := range use.Args[0].Args {
		require.Equal(t, v, a)
	}
}

func TestBuildLCSSALeavesInternalUsesAlone(t *testing.T) {
	f := ir.NewFunc("loop")
	entry := f.Entry
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	f.Jump(entry, header)
	cond := header.NewParam(0, 0)
	f.Branch(header, cond, body, exit)
	v := body.NewConst(0, 1)
	use := body.NewValue(ir.OpCopy, 0, v)
	f.Jump(body, header)

	ssa.BuildLCSSA(pipeline.Background(), f)
	require.Equal(t, v, use.Args[0])
}
