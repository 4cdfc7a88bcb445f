package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/liveness"
)

func defaultConstraints() *regalloc.Constraints {
	return regalloc.NewConstraints(map[ir.RegClass]regalloc.ClassConfig{
		0: {NumColors: 4},
	})
}

func TestCoalescerMergesCopyChain(t *testing.T) {
	f := ir.NewFunc("chain")
	b := f.Entry
	a := b.NewConst(0, 1)
	c1 := b.NewValue(ir.OpCopy, 0, a)
	c2 := b.NewValue(ir.OpCopy, 0, c1)
	f.End.AddEndKeepalive(c2)

	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	ag := regalloc.BuildAffinity(f)
	cons := defaultConstraints()

	coloring, err := regalloc.NewCoalescer(ig, ag, cons).Run()
	require.NoError(t, err)
	require.Equal(t, coloring[a.ID], coloring[c1.ID])
	require.Equal(t, coloring[c1.ID], coloring[c2.ID])
	require.NoError(t, regalloc.Verify(ig, coloring, cons))
}

func TestCoalescerGivesInterferingValuesDistinctColors(t *testing.T) {
	f, a, b := overlappingLive(t)
	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	ag := regalloc.BuildAffinity(f)
	cons := defaultConstraints()

	coloring, err := regalloc.NewCoalescer(ig, ag, cons).Run()
	require.NoError(t, err)
	require.NotEqual(t, coloring[a.ID], coloring[b.ID])
	require.NoError(t, regalloc.Verify(ig, coloring, cons))
}

func TestCoalescerRespectsFixedColor(t *testing.T) {
	f := ir.NewFunc("fixed")
	b := f.Entry
	a := b.NewConst(0, 1)
	a.Fix(2)
	cp := b.NewValue(ir.OpCopy, 0, a)
	f.End.AddEndKeepalive(cp)

	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	ag := regalloc.BuildAffinity(f)
	cons := defaultConstraints()

	coloring, err := regalloc.NewCoalescer(ig, ag, cons).Run()
	require.NoError(t, err)
	require.Equal(t, int32(2), coloring[a.ID])
	require.NoError(t, regalloc.Verify(ig, coloring, cons))
}

func TestVerifyCatchesSharedColorBetweenInterferingValues(t *testing.T) {
	f, a, b := overlappingLive(t)
	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	cons := defaultConstraints()

	// ua and ub (the copies keeping a and b alive) get distinct legal
	// colors, so the only violation left is a and b sharing color 0.
	ua, ub := f.End.KeepAlive[0], f.End.KeepAlive[1]
	bad := regalloc.Coloring{a.ID: 0, b.ID: 0, ua.ID: 1, ub.ID: 2}
	err := regalloc.Verify(ig, bad, cons)
	require.ErrorIs(t, err, regalloc.ErrAllocationFailed)
}
