// Affinity graph (C7): a weighted undirected graph recording which values
// would benefit from sharing a color — primarily OpCopy pairs and
// matching phi operand/result pairs — plus the "cloud" and MST
// construction the co2 coalescer walks.
//
// Grounded on the teacher's codegen/regalloc/graph.go coalesce/
// tryCoalesce (conservative-coalescing cost framing) and on
// katalvlaran-lvlath's prim_kruskal package for the general shape of a
// Kruskal-style MST construction; this file hand-rolls the MST itself
// (see DESIGN.md) because co2's tie-break rule — the heavier endpoint
// becomes the MST parent — is not expressible through that library's API.
package regalloc

import (
	"sort"

	"github.com/GriffinCanCode/regcore/pkg/ir"
)

// AffinityEdge is one weighted affinity relationship between two values.
type AffinityEdge struct {
	A, B *ir.Value
	Cost float64
}

// AffinityGraph is an undirected weighted graph over register-allocated
// values that would like to share a color.
type AffinityGraph struct {
	nodes map[ir.ID]*ir.Value
	edges map[ir.ID]map[ir.ID]float64
}

// NewAffinityGraph returns an empty affinity graph.
func NewAffinityGraph() *AffinityGraph {
	return &AffinityGraph{
		nodes: make(map[ir.ID]*ir.Value),
		edges: make(map[ir.ID]map[ir.ID]float64),
	}
}

func (a *AffinityGraph) addNode(v *ir.Value) {
	if _, ok := a.nodes[v.ID]; ok {
		return
	}
	a.nodes[v.ID] = v
	a.edges[v.ID] = make(map[ir.ID]float64)
}

// AddAffinity adds cost to the edge between x and y (accumulating if one
// already exists, e.g. two phi operands both relating the same pair).
func (a *AffinityGraph) AddAffinity(x, y *ir.Value, cost float64) {
	if x.ID == y.ID {
		return
	}
	a.addNode(x)
	a.addNode(y)
	a.edges[x.ID][y.ID] += cost
	a.edges[y.ID][x.ID] += cost
}

// CostOf returns the affinity cost between x and y, or 0 if unrelated.
func (a *AffinityGraph) CostOf(x, y *ir.Value) float64 {
	return a.edges[x.ID][y.ID]
}

// Neighbors returns every value with a nonzero affinity edge to v.
func (a *AffinityGraph) Neighbors(v *ir.Value) []*ir.Value {
	out := make([]*ir.Value, 0, len(a.edges[v.ID]))
	for id := range a.edges[v.ID] {
		out = append(out, a.nodes[id])
	}
	return out
}

// BuildAffinity records an affinity edge for every OpCopy's (dst, src)
// pair and every phi's (result, operand) pair — the two shapes a
// coalescing allocator wants to turn into a no-op. Copy edges are
// weighted higher than phi edges, since a copy always costs an
// instruction if not coalesced, while a phi operand may already be free
// depending on block layout.
func BuildAffinity(f *ir.Func) *AffinityGraph {
	const copyWeight = 10.0
	const phiWeight = 4.0

	ag := NewAffinityGraph()
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Class == ir.ClassNone {
				continue
			}
			switch {
			case v.Op == ir.OpCopy && len(v.Args) == 1:
				if v.Args[0].Class == v.Class {
					ag.AddAffinity(v, v.Args[0], copyWeight)
				}
			case v.IsPhi():
				for _, a := range v.Args {
					if a.Class == v.Class {
						ag.AddAffinity(v, a, phiWeight)
					}
				}
			}
		}
	}
	return ag
}

// Cloud is a connected component of the affinity graph: the unit the co2
// coalescer colors as a whole. TotalCost and MaxDegree summarize the
// component for ordering clouds by coalescing benefit; Master is the
// highest-degree member (deterministic tie-break on ir.ID), the
// coloring seed the allocator tries first.
type Cloud struct {
	Members   []*ir.Value
	TotalCost float64
	MaxDegree int
	Master    *ir.Value
	mst       map[ir.ID][]*ir.Value // adjacency of the rooted max spanning tree
	parent    map[ir.ID]*ir.Value
	root      *ir.Value
}

// Children returns v's children in the cloud's rooted maximum spanning
// tree.
func (c *Cloud) Children(v *ir.Value) []*ir.Value { return c.mst[v.ID] }

// Parent returns v's parent in the rooted MST, or nil if v is the root.
func (c *Cloud) Parent(v *ir.Value) *ir.Value { return c.parent[v.ID] }

// Root returns the cloud's MST root.
func (c *Cloud) Root() *ir.Value { return c.root }

// BuildClouds partitions ag into connected components (via BFS) and, for
// each component with more than one member, builds a maximum spanning
// tree over its affinity edges with Kruskal's algorithm: edges are
// considered heaviest-first, a union-find rejects cycle-forming edges,
// and on inclusion the heavier endpoint becomes the MST parent of the
// lighter one (co2's tie-break rule, spec.md §4.8) — rather than using
// katalvlaran-lvlath/prim_kruskal, whose API has no hook for that
// parent-assignment rule (see DESIGN.md).
func BuildClouds(ag *AffinityGraph) []*Cloud {
	visited := make(map[ir.ID]bool)
	var clouds []*Cloud

	ids := make([]ir.ID, 0, len(ag.nodes))
	for id := range ag.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, start := range ids {
		if visited[start] {
			continue
		}
		members := bfsComponent(ag, start, visited)
		clouds = append(clouds, buildCloud(ag, members))
	}
	return clouds
}

func bfsComponent(ag *AffinityGraph, start ir.ID, visited map[ir.ID]bool) []*ir.Value {
	queue := []ir.ID{start}
	visited[start] = true
	var members []*ir.Value
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		members = append(members, ag.nodes[id])
		neighborIDs := make([]ir.ID, 0, len(ag.edges[id]))
		for nid := range ag.edges[id] {
			neighborIDs = append(neighborIDs, nid)
		}
		sort.Slice(neighborIDs, func(i, j int) bool { return neighborIDs[i] < neighborIDs[j] })
		for _, nid := range neighborIDs {
			if !visited[nid] {
				visited[nid] = true
				queue = append(queue, nid)
			}
		}
	}
	return members
}

func buildCloud(ag *AffinityGraph, members []*ir.Value) *Cloud {
	c := &Cloud{Members: members}
	degree := make(map[ir.ID]int, len(members))
	total := 0.0
	var edges []AffinityEdge
	seen := make(map[[2]ir.ID]bool)
	for _, v := range members {
		for nid, cost := range ag.edges[v.ID] {
			degree[v.ID]++
			key := [2]ir.ID{v.ID, nid}
			rkey := [2]ir.ID{nid, v.ID}
			if seen[key] || seen[rkey] {
				continue
			}
			seen[key] = true
			total += cost
			edges = append(edges, AffinityEdge{A: v, B: ag.nodes[nid], Cost: cost})
		}
	}
	c.TotalCost = total

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	maxDeg, master := -1, members[0]
	for _, v := range members {
		if degree[v.ID] > maxDeg {
			maxDeg = degree[v.ID]
			master = v
		}
	}
	c.MaxDegree = maxDeg
	c.Master = master

	if len(members) == 1 {
		c.mst = map[ir.ID][]*ir.Value{}
		c.parent = map[ir.ID]*ir.Value{}
		c.root = members[0]
		return c
	}

	// Kruskal, heaviest edge first; deterministic tie-break on (cost, ids).
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Cost != edges[j].Cost {
			return edges[i].Cost > edges[j].Cost
		}
		if edges[i].A.ID != edges[j].A.ID {
			return edges[i].A.ID < edges[j].A.ID
		}
		return edges[i].B.ID < edges[j].B.ID
	})

	uf := newUnionFind(members)
	mstEdges := make(map[ir.ID][]AffinityEdge)
	for _, e := range edges {
		if uf.find(e.A.ID) == uf.find(e.B.ID) {
			continue
		}
		uf.union(e.A.ID, e.B.ID)
		mstEdges[e.A.ID] = append(mstEdges[e.A.ID], e)
		mstEdges[e.B.ID] = append(mstEdges[e.B.ID], e)
	}

	// Root the tree at Master, then orient every edge so the heavier
	// (degree-wise, by node weight = sum of its incident MST edge costs)
	// endpoint becomes the parent, per co2's tie-break rule.
	c.mst = make(map[ir.ID][]*ir.Value)
	c.parent = make(map[ir.ID]*ir.Value)
	c.root = master

	nodeWeight := make(map[ir.ID]float64)
	for id, es := range mstEdges {
		for _, e := range es {
			nodeWeight[id] += e.Cost
		}
	}

	visited := map[ir.ID]bool{master.ID: true}
	queue := []*ir.Value{master}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range mstEdges[cur.ID] {
			other := e.A
			if other.ID == cur.ID {
				other = e.B
			}
			if visited[other.ID] {
				continue
			}
			visited[other.ID] = true
			parent, child := heavierParent(cur, other, nodeWeight)
			c.mst[parent.ID] = append(c.mst[parent.ID], child)
			c.parent[child.ID] = parent
			queue = append(queue, other)
		}
	}
	return c
}

// heavierParent returns (parent, child) for the MST edge between a and b:
// the node with the larger accumulated incident-edge weight becomes the
// parent; ties favor the lower ir.ID for determinism.
func heavierParent(a, b *ir.Value, weight map[ir.ID]float64) (*ir.Value, *ir.Value) {
	wa, wb := weight[a.ID], weight[b.ID]
	if wa > wb || (wa == wb && a.ID < b.ID) {
		return a, b
	}
	return b, a
}

type unionFind struct {
	parent map[ir.ID]ir.ID
}

func newUnionFind(members []*ir.Value) *unionFind {
	uf := &unionFind{parent: make(map[ir.ID]ir.ID, len(members))}
	for _, v := range members {
		uf.parent[v.ID] = v.ID
	}
	return uf
}

func (u *unionFind) find(id ir.ID) ir.ID {
	for u.parent[id] != id {
		u.parent[id] = u.parent[u.parent[id]]
		id = u.parent[id]
	}
	return id
}

func (u *unionFind) union(a, b ir.ID) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
