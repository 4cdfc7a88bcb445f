package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/liveness"
)

// overlappingLive builds entry defining a and b, exit using both, so a
// and b are simultaneously live across the whole function and must
// interfere.
func overlappingLive(t *testing.T) (*ir.Func, *ir.Value, *ir.Value) {
	t.Helper()
	f := ir.NewFunc("overlap")
	entry := f.Entry
	exit := f.NewBlock()
	f.Jump(entry, exit)

	a := entry.NewConst(0, 1)
	b := entry.NewConst(0, 2)
	ua := exit.NewValue(ir.OpCopy, 0, a)
	ub := exit.NewValue(ir.OpCopy, 0, b)
	f.End.AddEndKeepalive(ua)
	f.End.AddEndKeepalive(ub)
	return f, a, b
}

func TestBuildInterferenceOverlappingLiveRanges(t *testing.T) {
	f, a, b := overlappingLive(t)
	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	require.True(t, ig.Connected(a, b))
}

func TestBuildInterferenceCopyExemption(t *testing.T) {
	f := ir.NewFunc("copy")
	entry := f.Entry
	a := entry.NewConst(0, 1)
	cp := entry.NewValue(ir.OpCopy, 0, a)
	f.End.AddEndKeepalive(cp)

	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	require.False(t, ig.Connected(a, cp))
}

func TestBuildInterferenceDistinctClassesNeverInterfere(t *testing.T) {
	f := ir.NewFunc("classes")
	entry := f.Entry
	a := entry.NewConst(0, 1)
	b := entry.NewConst(1, 2)
	f.End.AddEndKeepalive(a)
	f.End.AddEndKeepalive(b)

	li := liveness.Build(f)
	ig := regalloc.BuildInterference(f, li)
	require.False(t, ig.Connected(a, b))
}
