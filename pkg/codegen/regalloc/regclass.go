// Register-class / constraint model (C9): a single primitive,
// Admissible(value), abstracting three sources of color restriction a
// value can carry — its register class's full bitset, that class's own
// ABI-reserved set removed from it, and a caller-provided fixed or limited
// set on the individual value.
//
// Grounded on the teacher's own regalloc.go Config{Available, Reserved,
// CalleeSaved, CallerSaved} split, generalized from a flat register list
// into per-class bitsets, addressed here through pkg/bitset.Set (spec.md
// §3/§4.8's "adm_cache: bitset of admissible colors") rather than a raw
// uint64 mask.
package regalloc

import (
	"github.com/GriffinCanCode/regcore/pkg/bitset"
	"github.com/GriffinCanCode/regcore/pkg/ir"
)

// ClassConfig describes one register class's available colors.
type ClassConfig struct {
	// NumColors is the number of colors (physical registers) this class
	// has, colors numbered [0, NumColors).
	NumColors int
	// Reserved holds colors permanently excluded from allocation in this
	// class (e.g. the stack/frame pointer), regardless of any value's own
	// constraints.
	Reserved []int32
}

// Constraints is the full register-class/constraint model: one
// ClassConfig per ir.RegClass, consulted by Admissible.
type Constraints struct {
	Classes map[ir.RegClass]ClassConfig

	// base[cls] is cls's full color set with Reserved already cleared,
	// computed once in NewConstraints so Admissible only ever clones and
	// narrows it rather than rebuilding it per value.
	base map[ir.RegClass]*bitset.Set
}

// NewConstraints builds a Constraints from a class -> config map.
func NewConstraints(classes map[ir.RegClass]ClassConfig) *Constraints {
	base := make(map[ir.RegClass]*bitset.Set, len(classes))
	for cls, cfg := range classes {
		set := bitset.New(cfg.NumColors)
		for i := 0; i < cfg.NumColors; i++ {
			set.Set(i)
		}
		for _, r := range cfg.Reserved {
			set.Clear(int(r))
		}
		base[cls] = set
	}
	return &Constraints{Classes: classes, base: base}
}

// Admissible returns the bitset of colors v may legally take: its class's
// full set, minus that class's reserved colors, intersected with v's own
// FixedColor constraint if any (spec.md §4.9). The returned Set is a copy
// callers may mutate freely.
func (c *Constraints) Admissible(v *ir.Value) *bitset.Set {
	base, ok := c.base[v.Class]
	if !ok {
		return bitset.New(0)
	}
	mask := base.Clone()
	if v.FixedColor != ir.NoColor {
		if !mask.Has(int(v.FixedColor)) {
			return bitset.New(mask.Len()) // fixed color conflicts with the class's admissible set
		}
		mask.ClearAll()
		mask.Set(int(v.FixedColor))
	}
	return mask
}

// NumColors returns the color count for class cls, or 0 if unconfigured.
func (c *Constraints) NumColors(cls ir.RegClass) int {
	return c.Classes[cls].NumColors
}
