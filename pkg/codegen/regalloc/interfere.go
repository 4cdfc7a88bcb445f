// Interference graph (C6): an undirected graph over register-allocated
// values, built from the liveness checker rather than a classical
// fixed-point live-set dataflow. Two values interfere if liveness reports
// both live in some common block and neither is a no-op copy of the
// other.
//
// Grounded on the teacher's codegen/regalloc/graph.go InterferenceGraph
// (adjacency via map[ir.Value]map[ir.Value]bool), re-keyed by ir.ID
// (map[ir.ID]map[ir.ID]bool) to match the arena-owned IR model,
// and on tetratelabs/wazero's backend/regalloc interference construction
// for the "build from liveness, not from a dataflow pass" shape.
package regalloc

import (
	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/liveness"
)

// Graph is an undirected interference graph: nodes are register-allocated
// ir.Values, identified by ir.ID.
type Graph struct {
	nodes     map[ir.ID]*ir.Value
	neighbors map[ir.ID]map[ir.ID]bool
}

// NewGraph returns an empty interference graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[ir.ID]*ir.Value),
		neighbors: make(map[ir.ID]map[ir.ID]bool),
	}
}

// AddNode registers v as a node, if not already present.
func (g *Graph) AddNode(v *ir.Value) {
	if _, ok := g.nodes[v.ID]; ok {
		return
	}
	g.nodes[v.ID] = v
	g.neighbors[v.ID] = make(map[ir.ID]bool)
}

// AddEdge records that a and b interfere (must not receive the same
// color). A no-op if a == b; an endpoint not yet in the graph is added.
func (g *Graph) AddEdge(a, b *ir.Value) {
	if a.ID == b.ID {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.neighbors[a.ID][b.ID] = true
	g.neighbors[b.ID][a.ID] = true
}

// Connected reports whether a and b interfere.
func (g *Graph) Connected(a, b *ir.Value) bool {
	return g.neighbors[a.ID][b.ID]
}

// Degree returns the number of values v interferes with.
func (g *Graph) Degree(v *ir.Value) int {
	return len(g.neighbors[v.ID])
}

// Neighbors returns every value interfering with v.
func (g *Graph) Neighbors(v *ir.Value) []*ir.Value {
	out := make([]*ir.Value, 0, len(g.neighbors[v.ID]))
	for id := range g.neighbors[v.ID] {
		out = append(out, g.nodes[id])
	}
	return out
}

// IterNeighbors calls fn for every value interfering with v.
func (g *Graph) IterNeighbors(v *ir.Value, fn func(*ir.Value)) {
	for id := range g.neighbors[v.ID] {
		fn(g.nodes[id])
	}
}

// Nodes returns every node currently in the graph.
func (g *Graph) Nodes() []*ir.Value {
	out := make([]*ir.Value, 0, len(g.nodes))
	for _, v := range g.nodes {
		out = append(out, v)
	}
	return out
}

// BuildInterference constructs the interference graph for f from its
// liveness info: every pair of distinct same-class register-allocated
// values for which liveness reports any flag (IN, END or OUT) in a common
// block gets an edge, except a value never interferes with the OpCopy
// source it was copied from (allowing the copy to coalesce away cleanly
// rather than be forced apart). The test is per block: the order of
// definitions and uses inside the block is not consulted, so two values
// whose ranges only meet in one block without overlapping still get an
// edge.
func BuildInterference(f *ir.Func, li *liveness.Info) *Graph {
	g := NewGraph()

	var candidates []*ir.Value
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Class == ir.ClassNone {
				continue
			}
			g.AddNode(v)
			candidates = append(candidates, v)
		}
	}

	for _, b := range f.Blocks {
		liveSet := make([]*ir.Value, 0, len(candidates))
		for _, v := range candidates {
			if li.Check(b, v) != 0 {
				liveSet = append(liveSet, v)
			}
		}
		for i := 0; i < len(liveSet); i++ {
			for j := i + 1; j < len(liveSet); j++ {
				a, b2 := liveSet[i], liveSet[j]
				if isCopySource(a, b2) || isCopySource(b2, a) {
					continue
				}
				if a.Class != b2.Class {
					continue // distinct classes never compete for the same colors
				}
				g.AddEdge(a, b2)
			}
		}
	}
	return g
}

// isCopySource reports whether dst is an OpCopy whose sole argument is
// src, the exemption that lets a coalescable copy avoid a forced
// interference edge with its own source.
func isCopySource(dst, src *ir.Value) bool {
	return dst.Op == ir.OpCopy && len(dst.Args) == 1 && dst.Args[0] == src
}
