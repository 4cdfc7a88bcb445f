// Package liveness answers "is this value live at this block" queries
// directly from dominance and CFG reachability, without building and
// fixed-point-iterating a live-in/live-out bitvector per block the way a
// classical dataflow liveness pass does.
//
// The technique (reduced-graph reachability plus a back-edge-target
// correction for loop-carried liveness) follows the "Computing Liveness
// Sets for SSA-Form Programs" family of algorithms; the DFS/dominance
// infrastructure it queries is grounded directly in
// fkuehnel-golang-cfg/go-code/dom.go (postorder, idom) reused from
// pkg/ir/dom.go.
package liveness

import (
	"github.com/GriffinCanCode/regcore/pkg/bitset"
	"github.com/GriffinCanCode/regcore/pkg/ir"
)

// State is a bitmask of the viewing points at which a value is observed
// live within a block.
type State uint8

const (
	// IN: live on entry to the block, before any of its own values
	// execute. Never set for the block that defines the value.
	IN State = 1 << iota
	// END: observed live somewhere within the block's body — either a
	// genuine use inside the block, or simply passing through from IN to
	// OUT untouched. Always set for the block that defines the value.
	END
	// OUT: live on exit from the block, flowing into at least one
	// successor (or into the function's keep-alive set).
	OUT
)

// Has reports whether flag is set in s.
func (s State) Has(flag State) bool { return s&flag != 0 }

// Info is the precomputed reachability index for one Func, built once and
// queried any number of times via Check.
type Info struct {
	f *ir.Func

	// redReachable[b] is the set of blocks (dense-indexed by ir.ID, block
	// IDs never have gaps) reachable from b using only non-back edges (the
	// "reduced" graph), including b itself.
	redReachable map[ir.ID]*bitset.Set

	// beTgtReach[b] is the set of loop-header blocks h such that some
	// back edge s->h has its source s reachable from b in the reduced
	// graph, closed transitively over the headers so found — i.e. the
	// loop headers b can indirectly reach by going around one or more
	// back edges.
	beTgtReach map[ir.ID]*bitset.Set

	// backEdges lists every (source, target) pair classified EdgeBack.
	backEdges []backEdge

	keepAlive map[ir.ID]bool
}

type backEdge struct {
	src, tgt *ir.Block
}

// Build precomputes the reachability index for f. f's dominance info is
// recomputed as a side effect.
func Build(f *ir.Func) *Info {
	f.AssureDoms()
	po := f.Postorder() // exits first, entry last: successors before b
	n := f.NumBlocks()

	info := &Info{
		f:            f,
		redReachable: make(map[ir.ID]*bitset.Set, n),
		beTgtReach:   make(map[ir.ID]*bitset.Set, n),
	}

	for _, b := range po {
		set := bitset.New(n)
		set.Set(int(b.ID))
		for _, e := range b.Succs {
			if f.EdgeKind(b, e.B) == ir.EdgeBack {
				info.backEdges = append(info.backEdges, backEdge{src: b, tgt: e.B})
				continue
			}
			set.UnionWith(info.redReachable[e.B.ID])
		}
		info.redReachable[b.ID] = set
	}

	for _, b := range po {
		set := bitset.New(n)
		for _, be := range info.backEdges {
			if info.redReachable[b.ID].Has(int(be.src.ID)) {
				set.Set(int(be.tgt.ID))
			}
		}
		info.beTgtReach[b.ID] = set
	}
	// Close transitively: a header reached around one back edge may reach
	// further headers around another (nested loops).
	for changed := true; changed; {
		changed = false
		for _, b := range po {
			set := info.beTgtReach[b.ID]
			before := set.PopCount()
			set.Each(func(h int) { set.UnionWith(info.beTgtReach[ir.ID(h)]) })
			if set.PopCount() != before {
				changed = true
			}
		}
	}

	info.keepAlive = make(map[ir.ID]bool, len(f.End.KeepAlive))
	for _, v := range f.End.KeepAlive {
		info.keepAlive[v.ID] = true
	}

	f.BuildUseLists()
	return info
}

// canReach reports whether control can flow from "from" to "to" either
// directly in the reduced graph, or by going around one or more back
// edges first.
func (info *Info) canReach(from, to *ir.Block) bool {
	if info.redReachable[from.ID].Has(int(to.ID)) {
		return true
	}
	headers := info.beTgtReach[from.ID]
	for h := headers.NextSet(0); h >= 0; h = headers.NextSet(h + 1) {
		if info.redReachable[ir.ID(h)].Has(int(to.ID)) {
			return true
		}
	}
	return false
}

// usePoints returns the effective use blocks of v: a phi operand's use is
// attributed to the corresponding predecessor block (spec: operand i of a
// phi is read at the exit of predecessor i, not inside the phi's own
// block), every other use is attributed to its own block.
func usePoints(v *ir.Value) []*ir.Block {
	var pts []*ir.Block
	for _, u := range v.Uses() {
		if u.Val.IsPhi() {
			pts = append(pts, u.Val.Block.Preds[u.Idx].B)
			continue
		}
		pts = append(pts, u.Val.Block)
	}
	return pts
}

// Check reports the viewing-point flags at which v is live with respect
// to block bl. Case A is defBl == bl (the block that defines v); Case B
// is any other block dominated by defBl. A query for a block not
// dominated by v's definition is not a valid SSA use site and returns 0.
func (info *Info) Check(bl *ir.Block, v *ir.Value) State {
	if !v.IsLivenessKind() {
		return 0
	}
	defBl := v.Block
	if defBl != bl && !defBl.Dominates(bl) {
		return 0
	}

	liveHere := info.keepAlive[v.ID]
	localUse := false
	for _, p := range usePoints(v) {
		if p == bl {
			localUse = true
			// A use inside bl keeps v live out of bl only if control can
			// come back to bl around a back edge.
			if defBl != bl {
				headers := info.beTgtReach[bl.ID]
				for h := headers.NextSet(0); h >= 0; h = headers.NextSet(h + 1) {
					if info.redReachable[ir.ID(h)].Has(int(bl.ID)) {
						liveHere = true
					}
				}
			}
			continue
		}
		if info.canReach(bl, p) {
			liveHere = true
		}
	}

	var s State
	if liveHere {
		s |= OUT
	}
	if defBl != bl && (liveHere || localUse) {
		s |= IN
	}
	if localUse || defBl == bl || (s.Has(IN) && s.Has(OUT)) {
		s |= END
	}
	return s
}
