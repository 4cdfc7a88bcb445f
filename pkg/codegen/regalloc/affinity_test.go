package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/regcore/pkg/ir"
)

func TestBuildAffinityCopyAndPhiEdges(t *testing.T) {
	f := ir.NewFunc("affine")
	entry := f.Entry
	left := f.NewBlock()
	join := f.NewBlock()

	cond := entry.NewParam(0, 0)
	a := entry.NewConst(0, 1)
	f.Branch(entry, cond, left, join)
	cp := left.NewValue(ir.OpCopy, 0, a)
	f.Jump(left, join)

	phi := join.NewPhi(0, a, cp)
	f.End.AddEndKeepalive(phi)

	ag := regalloc.BuildAffinity(f)
	require.Greater(t, ag.CostOf(cp, a), 0.0)
	require.Greater(t, ag.CostOf(phi, a), 0.0)
	require.Greater(t, ag.CostOf(phi, cp), 0.0)
}

func TestBuildCloudsSingleComponentRootedAtMaster(t *testing.T) {
	f := ir.NewFunc("chain")
	b := f.Entry
	a := b.NewConst(0, 1)
	c1 := b.NewValue(ir.OpCopy, 0, a)
	c2 := b.NewValue(ir.OpCopy, 0, c1)
	c3 := b.NewValue(ir.OpCopy, 0, c2)
	f.End.AddEndKeepalive(c3)

	ag := regalloc.BuildAffinity(f)
	clouds := regalloc.BuildClouds(ag)
	require.Len(t, clouds, 1)

	cloud := clouds[0]
	require.Len(t, cloud.Members, 4)
	require.NotNil(t, cloud.Root())
	require.Nil(t, cloud.Parent(cloud.Root()))
}

func TestBuildCloudsIsolatedNodeFormsNoCloud(t *testing.T) {
	f := ir.NewFunc("isolated")
	a := f.Entry.NewConst(0, 1)
	f.End.AddEndKeepalive(a)

	ag := regalloc.BuildAffinity(f)
	// a has no copies or phis relating it to anything, so BuildAffinity
	// never even registers it as a node; BuildClouds has nothing to do.
	clouds := regalloc.BuildClouds(ag)
	require.Len(t, clouds, 0)
}
