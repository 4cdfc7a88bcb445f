// Package ir implements the abstract sea-of-nodes graph that the register
// allocation core operates on: values, blocks, and the CFG that joins them.
//
// Design: dense integer-indexed arenas owned by Func, adjacency expressed as
// index/pointer slices rather than a generic graph library. Analyses borrow
// blocks and values read-only and own their own derived indices (liveness,
// interference, affinity). Outside of construction, the register allocator
// writes only Color, once at commit time; the LCSSA and loop-unrolling
// passes rewrite operands (Args).
package ir

import "fmt"

// ID is a stable, dense identifier for a Value within its owning Func.
type ID int32

// RegClass identifies a register class (integer, float, ...). ClassNone
// means the value is not register-allocated.
type RegClass int8

// ClassNone marks a value that does not participate in register allocation.
const ClassNone RegClass = -1

// NoColor marks the absence of a fixed-color constraint or of an assigned
// color.
const NoColor int32 = -1

// Op is the opcode of a Value. Most opcodes are generic placeholders
// sufficient to build and analyze CFGs; this package is not a front-end and
// does not attach source-level semantics to them.
type Op int32

const (
	OpInvalid Op = iota
	OpConst
	OpParam
	OpAdd
	OpSub
	OpMul
	OpCmpLT
	OpCmpLE
	OpCmpEQ
	OpCopy
	OpLoad
	OpStore
	OpCall
	OpPhi
	OpBlockHeader
	OpIgnored
)

type opInfo struct {
	name          string
	isPhi         bool
	isBlockHeader bool
	isIgnored     bool
	isCall        bool
}

// opcodeTable mirrors the style of cmd/compile/internal/ssa's opcodeTable:
// a dense array of static per-opcode facts indexed by Op, rather than a
// chain of type switches sprinkled through every pass.
var opcodeTable = [...]opInfo{
	OpInvalid:     {name: "Invalid"},
	OpConst:       {name: "Const"},
	OpParam:       {name: "Param"},
	OpAdd:         {name: "Add"},
	OpSub:         {name: "Sub"},
	OpMul:         {name: "Mul"},
	OpCmpLT:       {name: "CmpLT"},
	OpCmpLE:       {name: "CmpLE"},
	OpCmpEQ:       {name: "CmpEQ"},
	OpCopy:        {name: "Copy"},
	OpLoad:        {name: "Load"},
	OpStore:       {name: "Store"},
	OpCall:        {name: "Call", isCall: true},
	OpPhi:         {name: "Phi", isPhi: true},
	OpBlockHeader: {name: "BlockHeader", isBlockHeader: true, isIgnored: true},
	OpIgnored:     {name: "Ignored", isIgnored: true},
}

func (op Op) String() string {
	if int(op) < len(opcodeTable) {
		return opcodeTable[op].name
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Value is a definition point in SSA: the node of the sea-of-nodes graph.
type Value struct {
	ID    ID
	Block *Block
	Op    Op
	Args  []*Value

	// AuxInt carries opcode-specific immediates (e.g. the constant of an
	// OpConst, or the parameter index of an OpParam).
	AuxInt int64

	// Class is the register class this value is allocated from, or
	// ClassNone if it is not a register-allocation target.
	Class RegClass

	// FixedColor constrains this value to a single admissible color
	// (NoColor if unconstrained).
	FixedColor int32

	// Color is the final color written back by the allocator at commit
	// time. NoColor until then. Single writer: regalloc.Commit.
	Color int32

	// uses is the out-edge list: every (user, operand-index) pair that
	// reads this value. Built by Func.BuildUseLists and invalidated by
	// any mutation to Args; callers must rebuild after mutating the IR.
	uses []Use
}

// Use is one out-edge of a Value: the value that reads it, and which
// operand slot does the reading.
type Use struct {
	Val *Value
	Idx int
}

// IsPhi reports whether v is a phi node.
func (v *Value) IsPhi() bool { return opcodeTable[v.Op].isPhi }

// IsBlockHeader reports whether v is a structural block-header marker.
func (v *Value) IsBlockHeader() bool { return opcodeTable[v.Op].isBlockHeader }

// IsIgnored reports whether v is structural and does not participate in
// liveness (block headers and other markers).
func (v *Value) IsIgnored() bool { return opcodeTable[v.Op].isIgnored }

// IsLivenessKind reports whether v is a kind the liveness checker tracks at
// all (spec.md §4.3: "If var is not a liveness kind ... return ∅").
func (v *Value) IsLivenessKind() bool { return !v.IsIgnored() }

// IsCall reports whether v is a call instruction. No pass in this module
// treats calls specially.
func (v *Value) IsCall() bool { return opcodeTable[v.Op].isCall }

func (v *Value) String() string {
	return fmt.Sprintf("v%d", v.ID)
}

// Edge is a CFG edge record carried on both endpoints: B is the other
// block, I is this edge's index in B's list on the opposite side. This
// lets a phi argument be mapped back to its source block in O(1) (the use
// site knows "I am predecessor slot i" without a search), and is the same
// shape used by cmd/compile/internal/ssa's Edge.
type Edge struct {
	B *Block
	I int
}

// EdgeKind classifies a CFG edge after a DFS from the entry block.
type EdgeKind int8

const (
	EdgeTree EdgeKind = iota
	EdgeForward
	EdgeCross
	EdgeBack
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeTree:
		return "tree"
	case EdgeForward:
		return "forward"
	case EdgeCross:
		return "cross"
	case EdgeBack:
		return "back"
	default:
		return "unknown"
	}
}

// Block is a basic block.
type Block struct {
	ID     ID
	Func   *Func
	Values []*Value
	Preds  []Edge
	Succs  []Edge

	// Control is the value (if any) that this block's terminator branches
	// on. Nil for blocks with an unconditional or no successor.
	Control *Value

	// DomPre is this block's dominator-tree preorder number; DomMax is the
	// maximum such number in its dominator subtree. Invariant: b dominates
	// b2 iff DomPre(b) <= DomPre(b2) <= DomMax(b). Valid after
	// Func.AssureDoms.
	DomPre, DomMax int32
	Idom           *Block

	// dfsPre/dfsPost are set by Func.AssureDFS; reachable is false for
	// blocks the entry cannot reach.
	dfsPre, dfsPost int32
	reachable       bool
}

// Dominates reports whether b dominates b2, using the dom_pre/dom_max
// numbering (spec.md §3).
func (b *Block) Dominates(b2 *Block) bool {
	return b.DomPre <= b2.DomPre && b2.DomPre <= b.DomMax
}

func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// AddEdge records a CFG edge from->to, appending to both endpoints' edge
// lists and cross-referencing the slot indices.
func (f *Func) AddEdge(from, to *Block) {
	si := len(from.Succs)
	pi := len(to.Preds)
	from.Succs = append(from.Succs, Edge{B: to, I: pi})
	to.Preds = append(to.Preds, Edge{B: from, I: si})
	f.InvalidateCFG()
}

// End models the function's exit pseudo-node, which may keep values alive
// past their last real use (e.g. for stack-map correctness across a call).
// spec.md §6: add_End_keepalive(end, v).
type End struct {
	KeepAlive []*Value
}

// AddEndKeepalive records that v must stay live through the function's
// exit. Used by the unroller to preserve keep-alive edges across a
// duplicated loop body (spec.md §4.5 step 3).
func (e *End) AddEndKeepalive(v *Value) {
	e.KeepAlive = append(e.KeepAlive, v)
}

// Func is a CFG plus its value arena: one unit of register allocation.
type Func struct {
	Name   string
	Entry  *Block
	Blocks []*Block
	End    *End

	nextBlockID ID
	nextValueID ID

	cachedPostorder []*Block
	cachedDFS       *DFSInfo
	cachedLoopnest  *Loopnest
}

// NewFunc creates an empty function with a single entry block.
func NewFunc(name string) *Func {
	f := &Func{Name: name, End: &End{}}
	f.Entry = f.NewBlock()
	return f
}

// NewBlock allocates a fresh block owned by f.
func (f *Func) NewBlock() *Block {
	b := &Block{ID: f.nextBlockID, Func: f, DomPre: -1, DomMax: -1}
	f.nextBlockID++
	f.Blocks = append(f.Blocks, b)
	f.InvalidateCFG()
	return b
}

// NewValue appends a new value of the given opcode to block b.
func (b *Block) NewValue(op Op, class RegClass, args ...*Value) *Value {
	v := &Value{
		ID:         b.Func.nextValueID,
		Block:      b,
		Op:         op,
		Args:       args,
		Class:      class,
		FixedColor: NoColor,
		Color:      NoColor,
	}
	b.Func.nextValueID++
	b.Values = append(b.Values, v)
	return v
}

// NewPhi appends a phi to b with one operand per entry in b.Preds, in
// Preds order (spec.md §3: phi operand i corresponds to predecessor i).
func (b *Block) NewPhi(class RegClass, args ...*Value) *Value {
	if len(args) != len(b.Preds) {
		panic(fmt.Sprintf("ir: phi in %s needs %d operands (one per predecessor), got %d", b, len(b.Preds), len(args)))
	}
	return b.NewValue(OpPhi, class, args...)
}

// SetControl sets the value the block's terminator branches on.
func (b *Block) SetControl(v *Value) { b.Control = v }

// ControlValues returns the (0 or 1) values this block's terminator reads,
// matching spec.md §6's `b.ControlValues()` external contract.
func (b *Block) ControlValues() []*Value {
	if b.Control == nil {
		return nil
	}
	return []*Value{b.Control}
}

// NumBlocks returns the number of blocks in f (including unreachable ones).
func (f *Func) NumBlocks() int { return len(f.Blocks) }

// NumValues returns the total number of values across all blocks.
func (f *Func) NumValues() int { return int(f.nextValueID) }

// InvalidateCFG discards every cache derived from block/edge structure.
// Mirrors fkuehnel-golang-cfg/go-code/func.go's invalidateCFG.
func (f *Func) InvalidateCFG() {
	f.cachedPostorder = nil
	f.cachedDFS = nil
	f.cachedLoopnest = nil
}

// BuildUseLists recomputes every value's use-list from scratch. Callers
// must invoke this after mutating Args; it is not maintained incrementally
// (spec.md §6: out_edges is "stable while IR unchanged").
func (f *Func) BuildUseLists() {
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			v.uses = v.uses[:0]
		}
	}
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			for i, a := range v.Args {
				a.uses = append(a.uses, Use{Val: v, Idx: i})
			}
		}
	}
}

// Uses returns v's use-list, built by the most recent BuildUseLists call.
func (v *Value) Uses() []Use { return v.uses }

// ExactCopy duplicates v's shape (opcode, class, constraints) onto a fresh
// ID in the same block, with the same operands as v; callers may then
// rewire operands via SetArgs.
func (v *Value) ExactCopy() *Value {
	args := make([]*Value, len(v.Args))
	copy(args, v.Args)
	cp := v.Block.NewValue(v.Op, v.Class, args...)
	cp.AuxInt = v.AuxInt
	cp.FixedColor = v.FixedColor
	return cp
}

// SetArgs replaces v's operand list in place (spec.md §6: set_irn_in).
func (v *Value) SetArgs(args []*Value) { v.Args = args }

// SetColor performs the single, final color write-back (spec.md §6:
// set_register). Only regalloc.Commit calls this.
func (v *Value) SetColor(color int32) { v.Color = color }
