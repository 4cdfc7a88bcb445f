package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/regcore/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
)

func TestAllocateCommitsColorsAndSatisfiesVerify(t *testing.T) {
	f, a, b := overlappingLive(t)
	cons := defaultConstraints()

	result, err := regalloc.Allocate(pipeline.Background(), f, cons)
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotEqual(t, ir.NoColor, a.Color)
	require.NotEqual(t, ir.NoColor, b.Color)
	require.NotEqual(t, a.Color, b.Color)
	require.Equal(t, result.Coloring[a.ID], a.Color)
	require.Equal(t, result.Coloring[b.ID], b.Color)

	require.NoError(t, regalloc.Verify(result.Interfere, result.Coloring, cons))
}

func TestAllocateFailsWhenNoClassRegisteredForValue(t *testing.T) {
	f := ir.NewFunc("unconstrained")
	b := f.Entry
	v := b.NewConst(0, 1)
	f.End.AddEndKeepalive(v)

	cons := regalloc.NewConstraints(map[ir.RegClass]regalloc.ClassConfig{})

	_, err := regalloc.Allocate(pipeline.Background(), f, cons)
	require.ErrorIs(t, err, regalloc.ErrAllocationFailed)
}
