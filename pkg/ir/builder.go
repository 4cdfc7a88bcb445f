package ir

// Builder helpers. This package is not a front-end or scheduler (spec.md
// §1 treats both as external collaborators); these are just enough
// convenience constructors to assemble well-formed scheduled CFGs
// in-process, for tests and for cmd/typthon's demo mode. Real producers of
// IR are expected to build Func/Block/Value directly, the same way this
// file does.

// NewConst appends an OpConst value carrying imm as AuxInt.
func (b *Block) NewConst(class RegClass, imm int64) *Value {
	v := b.NewValue(OpConst, class)
	v.AuxInt = imm
	return v
}

// NewParam appends an OpParam value representing the idx'th incoming
// argument.
func (b *Block) NewParam(class RegClass, idx int64) *Value {
	v := b.NewValue(OpParam, class)
	v.AuxInt = idx
	return v
}

// Jump wires an unconditional edge from b to to and clears b.Control.
func (f *Func) Jump(b, to *Block) {
	f.AddEdge(b, to)
	b.Control = nil
}

// Branch wires a two-way conditional edge from b, controlled by cond:
// Succs[0] is the true target, Succs[1] is the false target, matching the
// convention spec.md §6's ControlValues/iter_succs contract assumes.
func (f *Func) Branch(b *Block, cond *Value, whenTrue, whenFalse *Block) {
	f.AddEdge(b, whenTrue)
	f.AddEdge(b, whenFalse)
	b.SetControl(cond)
}

// Fix sets v's fixed-color constraint (spec.md §4.9: a caller-provided
// single admissible color).
func (v *Value) Fix(color int32) { v.FixedColor = color }
