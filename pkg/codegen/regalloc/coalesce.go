// "co2" coalescing allocator (C8): colors one affinity Cloud at a time,
// walking its rooted maximum spanning tree bottom-up to pick a trial color
// per node (balancing affinity pull against interference repulsion), then
// commits every member's tentative color at once if the root's
// accumulated badness is acceptable. A bounded recolor-with-rollback
// primitive handles a value colored on its own (a member of an abandoned
// cloud, or a value in no cloud) that has no free legal color against
// the already-fixed values.
//
// Grounded on the teacher's codegen/regalloc/graph.go coalesce/
// tryCoalesce (the "try to merge, check degree/conflicts, roll back if it
// doesn't fit" shape) and tetratelabs/wazero's backend/regalloc coloring
// pass for the idea of colors chosen per connected affinity component
// rather than per individual value.
package regalloc

import (
	"fmt"
	"sort"

	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/logger"
)

// withLogger overrides c's default no-op Logger; only regalloc.Allocate
// calls this, so values constructed directly (as the package's own tests
// do) keep logging to nowhere.
func (c *Coalescer) withLogger(log *logger.Logger) *Coalescer {
	c.log = log
	return c
}

// nodeCost is the fixed per-node badness unit the spec's color-badness
// formula scales by n_regs (so an inadmissible or conflicting assignment
// always outweighs any amount of affinity pull, which is capped well
// below it for any realistic cloud size).
const nodeCost = 1 << 20

// infCost is a sentinel "no candidate yet" initializer for a cost
// minimization search, always far larger than any real trialCost result
// (the largest a feasible trialCost ever returns is bounded by node_cost
// scaled by a class's register count, checked against via infeasible).
const infCost = 1e18

// infeasible reports whether cost represents an outright illegal
// assignment (inadmissible color or a conflicting neighbor) as
// opposed to a merely expensive but legal one — any real trialCost
// feasibility penalty is at least one node_cost, while legal pull/
// repulsion terms never reach that scale.
func infeasible(cost float64) bool { return cost >= nodeCost }

// state is the per-value scratch the coalescer threads through a cloud's
// coloring attempt: a tentative color distinct from whatever this value
// may already hold from a previous cloud (orig_col once fixed).
type state struct {
	tmpCol   int32
	tmpFixed bool
}

// Coloring is the final value -> color assignment, the output of Run.
type Coloring map[ir.ID]int32

// change records a single committed color write, for the bounded
// recolor primitive's rollback.
type change struct {
	id  ir.ID
	old int32
	had bool
}

// Coalescer runs the co2 pipeline over one interference graph, its
// affinity-derived clouds, and a register-class constraint model.
type Coalescer struct {
	ig       *Graph
	ag       *AffinityGraph
	cons     *Constraints
	coloring Coloring
	fixed    map[ir.ID]bool
	log      *logger.Logger
}

// NewCoalescer prepares a Coalescer over the given interference/affinity
// graphs and constraint model. Call Run to produce the final Coloring.
func NewCoalescer(ig *Graph, ag *AffinityGraph, cons *Constraints) *Coalescer {
	return &Coalescer{
		ig:       ig,
		ag:       ag,
		cons:     cons,
		coloring: make(Coloring),
		fixed:    make(map[ir.ID]bool),
		log:      logger.Noop(),
	}
}

// Run colors every node in the interference graph, coalescing clouds
// biggest-affinity-payoff first, and returns the committed Coloring.
func (c *Coalescer) Run() (Coloring, error) {
	clouds := BuildClouds(c.ag)
	sort.Slice(clouds, func(i, j int) bool {
		if clouds[i].TotalCost != clouds[j].TotalCost {
			return clouds[i].TotalCost > clouds[j].TotalCost
		}
		return clouds[i].Master.ID < clouds[j].Master.ID
	})

	coveredByCloud := make(map[ir.ID]bool)
	for _, cloud := range clouds {
		for _, v := range cloud.Members {
			coveredByCloud[v.ID] = true
		}
		if !c.colorCloud(cloud) {
			c.log.Rollback(fmt.Sprintf("cloud rooted at %s", cloud.Root()), "no conflict-free coloring, falling back to per-value coloring")
			for _, v := range cloud.Members {
				if !c.colorValueAlone(v) {
					return nil, fmt.Errorf("%w: no admissible color for %s", ErrAllocationFailed, v)
				}
			}
		}
	}

	for _, v := range c.ig.Nodes() {
		if coveredByCloud[v.ID] {
			continue
		}
		if !c.colorValueAlone(v) {
			return nil, fmt.Errorf("%w: no admissible color for %s", ErrAllocationFailed, v)
		}
	}
	return c.coloring, nil
}

// colorCloud attempts to color every member of cloud as a unit: a
// bottom-up pass over the MST picks each node's best tentative color
// given its children's choices and the already-fixed outside world, then
// the root's accumulated badness (which includes every descendant's) is
// checked before committing. Returns false (no mutation to c.coloring) if the cloud
// cannot be coalesced without an outright interference conflict.
func (c *Coalescer) colorCloud(cloud *Cloud) bool {
	order := mstPostorder(cloud)
	local := make(map[ir.ID]*state, len(cloud.Members))
	badness := make(map[ir.ID]float64, len(cloud.Members))

	admissibleColors := candidateColors(cloud.Members, c.cons)
	if len(admissibleColors) == 0 {
		return false
	}

	for _, v := range order {
		best := int32(-1)
		bestCost := infCost
		for _, col := range admissibleColors {
			cost := c.trialCost(v, col, local)
			for _, child := range cloud.Children(v) {
				cost += badness[child.ID]
			}
			if cost < bestCost {
				bestCost = cost
				best = col
			}
			if bestCost == 0 {
				break // spec.md §4.8: early-exit once a perfect color is found
			}
		}
		local[v.ID] = &state{tmpCol: best, tmpFixed: true}
		badness[v.ID] = bestCost
	}

	if infeasible(badness[cloud.Root().ID]) {
		return false
	}

	for _, v := range cloud.Members {
		st := local[v.ID]
		c.coloring[v.ID] = st.tmpCol
		c.fixed[v.ID] = true
	}
	return true
}

// mstPostorder returns cloud.Members ordered children-before-parents, so
// a bottom-up pass always sees its children's choices already made.
func mstPostorder(cloud *Cloud) []*ir.Value {
	var order []*ir.Value
	var visit func(v *ir.Value)
	visit = func(v *ir.Value) {
		for _, ch := range cloud.Children(v) {
			visit(ch)
		}
		order = append(order, v)
	}
	visit(cloud.Root())
	return order
}

// candidateColors returns the intersection of admissible colors across
// every member of a cloud that share a single register class (co2 only
// ever coalesces same-class values, since Admissible already zeroes out
// cross-class sets via class-specific bitsets).
func candidateColors(members []*ir.Value, cons *Constraints) []int32 {
	if len(members) == 0 {
		return nil
	}
	mask := cons.Admissible(members[0])
	for _, v := range members[1:] {
		mask.IntersectWith(cons.Admissible(v))
	}
	var out []int32
	mask.Each(func(i int) { out = append(out, int32(i)) })
	return out
}

// trialCost implements spec.md §4.8's per-node color cost/badness formula
// for the bottom-up pass: affinity pull toward same-color neighbors that
// are already fixed or already tentatively colored in this cloud; a
// node_cost-scaled penalty (n_regs*node_cost) if col is inadmissible for
// v or already taken by a fixed or tentatively colored interfering
// neighbor; otherwise, for each not-yet-fixed
// interfering neighbor, (n_regs - popcount(admissible(neighbor))) as a
// measure of how constrained that neighbor already is (a neighbor with
// few remaining legal colors makes this choice riskier than one with
// many).
func (c *Coalescer) trialCost(v *ir.Value, col int32, local map[ir.ID]*state) float64 {
	nRegs := c.cons.NumColors(v.Class)
	infeasibleCost := float64(nRegs) * nodeCost

	mask := c.cons.Admissible(v)
	if !mask.Has(int(col)) {
		return infeasibleCost
	}

	cost := 0.0
	for nid, affCost := range c.ag.edges[v.ID] {
		if st, ok := local[nid]; ok && st.tmpFixed && st.tmpCol == col {
			cost -= 128 * affCost
		} else if c.fixed[nid] && c.coloring[nid] == col {
			cost -= 128 * affCost
		}
	}

	for nid := range c.ig.neighbors[v.ID] {
		neighbor := c.ig.nodes[nid]
		switch {
		case c.fixed[nid] && c.coloring[nid] == col:
			return infeasibleCost
		case local[nid] != nil && local[nid].tmpFixed && local[nid].tmpCol == col:
			return infeasibleCost
		case !c.fixed[nid]:
			cost += float64(nRegs - c.cons.Admissible(neighbor).PopCount())
		}
	}
	return cost
}

// colorValueAlone picks v's own best admissible color against only the
// already-fixed world (no coalescing, no cloud): it commits the
// lowest-badness legal color immediately, and falls back to the bounded
// recolor primitive only when v has no admissible color or every one of
// them is taken by an already-fixed interfering neighbor.
func (c *Coalescer) colorValueAlone(v *ir.Value) bool {
	mask := c.cons.Admissible(v)
	if mask.IsEmpty() {
		return c.recolorAround(v)
	}
	best := int32(-1)
	bestCost := infCost
	for i := mask.NextSet(0); i >= 0; i = mask.NextSet(i + 1) {
		cost := c.trialCost(v, int32(i), nil)
		if cost < bestCost {
			bestCost = cost
			best = int32(i)
		}
	}
	if best < 0 || infeasible(bestCost) {
		return c.recolorAround(v)
	}
	c.coloring[v.ID] = best
	c.fixed[v.ID] = true
	return true
}

// recolorAround is the bounded change_color_single/recolor primitive:
// when v has no legal color against the currently fixed world, try
// displacing one already-fixed interfering neighbor to a different color
// of its own, recording every write on a change-list so the attempt can
// be rolled back cleanly if no displacement frees a slot for v.
func (c *Coalescer) recolorAround(v *ir.Value) bool {
	const maxDepth = 2
	var changes []change

	ok := c.recolorAttempt(v, maxDepth, &changes)
	if !ok {
		for i := len(changes) - 1; i >= 0; i-- {
			ch := changes[i]
			if ch.had {
				c.coloring[ch.id] = ch.old
				c.fixed[ch.id] = true
			} else {
				delete(c.coloring, ch.id)
				delete(c.fixed, ch.id)
			}
		}
	}
	return ok
}

func (c *Coalescer) recolorAttempt(v *ir.Value, depth int, changes *[]change) bool {
	mask := c.cons.Admissible(v)
	occupied := make(map[int32]*ir.Value)
	for nid := range c.ig.neighbors[v.ID] {
		if c.fixed[nid] {
			occupied[c.coloring[nid]] = c.ig.nodes[nid]
		}
	}
	for i := mask.NextSet(0); i >= 0; i = mask.NextSet(i + 1) {
		col := int32(i)
		if blocker, taken := occupied[col]; taken {
			if depth <= 0 {
				continue
			}
			if c.tryDisplace(blocker, col, depth-1, changes) {
				c.commit(v, col, changes)
				return true
			}
			continue
		}
		c.commit(v, col, changes)
		return true
	}
	return false
}

// tryDisplace attempts to move blocker off color avoid to free that slot
// for the original caller, recursing up to depth times.
func (c *Coalescer) tryDisplace(blocker *ir.Value, avoid int32, depth int, changes *[]change) bool {
	mask := c.cons.Admissible(blocker)
	occupied := make(map[int32]*ir.Value)
	for nid := range c.ig.neighbors[blocker.ID] {
		if c.fixed[nid] && c.ig.nodes[nid] != blocker {
			occupied[c.coloring[nid]] = c.ig.nodes[nid]
		}
	}
	for i := mask.NextSet(0); i >= 0; i = mask.NextSet(i + 1) {
		col := int32(i)
		if col == avoid {
			continue
		}
		if other, taken := occupied[col]; taken {
			if depth <= 0 || !c.tryDisplace(other, col, depth-1, changes) {
				continue
			}
		}
		c.commit(blocker, col, changes)
		return true
	}
	return false
}

func (c *Coalescer) commit(v *ir.Value, col int32, changes *[]change) {
	old, had := c.coloring[v.ID]
	*changes = append(*changes, change{id: v.ID, old: old, had: had})
	c.coloring[v.ID] = col
	c.fixed[v.ID] = true
}
