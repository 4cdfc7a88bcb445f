package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/ir"
)

func diamond(t *testing.T) (*ir.Func, *ir.Block, *ir.Block, *ir.Block, *ir.Block) {
	t.Helper()
	f := ir.NewFunc("diamond")
	entry := f.Entry
	left := f.NewBlock()
	right := f.NewBlock()
	join := f.NewBlock()

	cond := entry.NewParam(0, 0)
	f.Branch(entry, cond, left, right)
	f.Jump(left, join)
	f.Jump(right, join)
	return f, entry, left, right, join
}

func TestDominance(t *testing.T) {
	f, entry, left, right, join := diamond(t)
	f.AssureDoms()

	require.True(t, entry.Dominates(left))
	require.True(t, entry.Dominates(right))
	require.True(t, entry.Dominates(join))
	require.False(t, left.Dominates(right))
	require.False(t, right.Dominates(join))
	require.Equal(t, entry, join.Idom)
}

func TestPostorderExitsFirst(t *testing.T) {
	f, entry, _, _, join := diamond(t)
	po := f.Postorder()
	require.Equal(t, join, po[0])
	require.Equal(t, entry, po[len(po)-1])
}

func TestBackEdgeClassification(t *testing.T) {
	f := ir.NewFunc("loop")
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	f.Jump(f.Entry, header)
	cond := header.NewParam(0, 0)
	f.Branch(header, cond, body, exit)
	f.Jump(body, header)

	require.Equal(t, ir.EdgeBack, f.EdgeKind(body, header))
	require.Equal(t, ir.EdgeTree, f.EdgeKind(f.Entry, header))
}

func TestNewPhiRequiresOnePerPredecessor(t *testing.T) {
	_, _, _, _, join := diamond(t)
	require.Panics(t, func() {
		join.NewPhi(0)
	})
}

func TestLoopnestFindsNaturalLoop(t *testing.T) {
	f := ir.NewFunc("loop")
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	f.Jump(f.Entry, header)
	cond := header.NewParam(0, 0)
	f.Branch(header, cond, body, exit)
	f.Jump(body, header)

	ln := f.AssureLoopnest()
	require.Len(t, ln.Loops, 1)
	lp := ln.Loops[0]
	require.Equal(t, header, lp.Header)
	require.True(t, lp.Contains(body))
	require.False(t, lp.Contains(exit))
	require.Equal(t, lp, ln.InnerLoop(body))
}

func TestBuildUseLists(t *testing.T) {
	f := ir.NewFunc("uses")
	b := f.Entry
	c1 := b.NewConst(0, 1)
	c2 := b.NewConst(0, 2)
	add := b.NewValue(ir.OpAdd, 0, c1, c2)
	_ = add
	f.BuildUseLists()

	require.Len(t, c1.Uses(), 1)
	require.Equal(t, add, c1.Uses()[0].Val)
	require.Equal(t, 0, c1.Uses()[0].Idx)
	require.Len(t, c2.Uses(), 1)
	require.Equal(t, 1, c2.Uses()[0].Idx)
}
