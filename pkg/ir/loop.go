// Natural loop construction from back edges.
//
// A back edge b->h (h dominates b, found via DFS classification in dom.go)
// identifies a natural loop headed by h. The loop's member set is built by
// walking predecessors backward from b until h is reached, the same
// "add-predecessors" construction used throughout the compiler literature
// and mirrored in fkuehnel-golang-cfg/go-code's loop-nest helpers.
package ir

// Loop is a single natural loop: Header dominates every block in Members,
// and Members is reached by walking predecessors backward from each back
// edge's source until Header.
type Loop struct {
	Header  *Block
	Members map[ID]*Block // includes Header
	Outer   *Loop          // enclosing loop, nil if top-level
	Depth   int
}

// Contains reports whether b is a member of the loop.
func (l *Loop) Contains(b *Block) bool {
	_, ok := l.Members[b.ID]
	return ok
}

// Loopnest is the set of natural loops in a Func, plus a per-block lookup
// of its innermost enclosing loop.
type Loopnest struct {
	Loops    []*Loop
	innerOf  map[ID]*Loop
}

// InnerLoop returns the innermost loop containing b, or nil if b is not in
// any loop.
func (ln *Loopnest) InnerLoop(b *Block) *Loop {
	return ln.innerOf[b.ID]
}

// AssureLoopnest computes (or returns the cached) loop nest for f. Requires
// dominance; calls AssureDoms and AssureDFS itself.
func (f *Func) AssureLoopnest() *Loopnest {
	if f.cachedLoopnest != nil {
		return f.cachedLoopnest
	}
	f.AssureDoms()
	dfs := f.AssureDFS()

	headerOf := make(map[ID]*Loop)
	var loops []*Loop

	for _, b := range f.Blocks {
		if !b.reachable {
			continue
		}
		for _, e := range b.Succs {
			h := e.B
			if dfs.EdgeKinds[edgeKey{from: b.ID, to: h.ID}] != EdgeBack {
				continue
			}
			if !h.Dominates(b) {
				// Not a natural loop back edge (irreducible control
				// flow); skip rather than mis-classify.
				continue
			}
			lp, ok := headerOf[h.ID]
			if !ok {
				lp = &Loop{Header: h, Members: map[ID]*Block{h.ID: h}}
				headerOf[h.ID] = lp
				loops = append(loops, lp)
			}
			addLoopMembers(lp, b)
		}
	}

	// Nest loops by header dominance: Header(inner) is dominated by, and
	// distinct from, Header(outer), and outer contains inner's header.
	for _, inner := range loops {
		var best *Loop
		for _, outer := range loops {
			if outer == inner {
				continue
			}
			if !outer.Contains(inner.Header) {
				continue
			}
			if best == nil || best.Contains(outer.Header) {
				best = outer
			}
		}
		inner.Outer = best
	}
	for _, lp := range loops {
		d := 0
		for o := lp.Outer; o != nil; o = o.Outer {
			d++
		}
		lp.Depth = d
	}

	innerOf := make(map[ID]*Loop)
	for _, b := range f.Blocks {
		var best *Loop
		for _, lp := range loops {
			if lp.Contains(b) && (best == nil || lp.Depth > best.Depth) {
				best = lp
			}
		}
		if best != nil {
			innerOf[b.ID] = best
		}
	}

	ln := &Loopnest{Loops: loops, innerOf: innerOf}
	f.cachedLoopnest = ln
	return ln
}

// addLoopMembers walks predecessors backward from the back-edge source
// src, adding every block reached before hitting a block already in the
// loop, into lp.Members.
func addLoopMembers(lp *Loop, src *Block) {
	if lp.Contains(src) {
		return
	}
	stack := []*Block{src}
	lp.Members[src.ID] = src
	for len(stack) > 0 {
		n := len(stack) - 1
		b := stack[n]
		stack = stack[:n]
		for _, e := range b.Preds {
			p := e.B
			if lp.Contains(p) {
				continue
			}
			lp.Members[p.ID] = p
			stack = append(stack, p)
		}
	}
}
