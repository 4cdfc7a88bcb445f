// Dominance, postorder, and DFS edge classification.
//
// Grounded on fkuehnel-golang-cfg/go-code/dom.go: postorder is computed by
// an explicit-stack DFS (exits-first, entry last), and idom is computed by
// the Cooper-Harvey-Kennedy iterative "intersect" algorithm over that
// postorder numbering. This file adds DFS edge classification (tree,
// forward, cross, back) via the CLRS white/gray/black coloring, which the
// liveness checker needs to find back edges.
package ir

// DFSInfo holds the results of a single depth-first traversal from the
// entry block: postorder (exits first, entry last), a postorder-index
// lookup, and the classification of every CFG edge.
type DFSInfo struct {
	Postorder []*Block       // exits-first, entry last
	PostNum   map[ID]int     // block ID -> index into Postorder
	EdgeKinds map[edgeKey]EdgeKind
}

type edgeKey struct {
	from, to ID
}

type dfsColor uint8

const (
	white dfsColor = iota // unvisited
	gray                  // on the current DFS stack (an ancestor)
	black                 // finished
)

// AssureDFS computes (or returns the cached) postorder traversal and edge
// classification for f, starting from f.Entry. Unreachable blocks do not
// appear in Postorder and carry no edge classifications.
func (f *Func) AssureDFS() *DFSInfo {
	if f.cachedDFS != nil {
		return f.cachedDFS
	}
	info := &DFSInfo{
		PostNum:   make(map[ID]int, len(f.Blocks)),
		EdgeKinds: make(map[edgeKey]EdgeKind),
	}
	color := make(map[ID]dfsColor, len(f.Blocks))
	// preNum tracks the DFS pre-order index so forward vs. cross can be
	// told apart for non-tree, non-back edges (pre(from) < pre(to) and to
	// is a descendant => forward; otherwise cross).
	preNum := make(map[ID]int, len(f.Blocks))
	nextPre := 0

	var visit func(b *Block)
	visit = func(b *Block) {
		color[b.ID] = gray
		preNum[b.ID] = nextPre
		nextPre++
		b.reachable = true

		for i, e := range b.Succs {
			to := e.B
			key := edgeKey{from: b.ID, to: to.ID}
			switch color[to.ID] {
			case white:
				info.EdgeKinds[key] = EdgeTree
				visit(to)
			case gray:
				info.EdgeKinds[key] = EdgeBack
			case black:
				if preNum[b.ID] < preNum[to.ID] {
					info.EdgeKinds[key] = EdgeForward
				} else {
					info.EdgeKinds[key] = EdgeCross
				}
			}
			_ = i
		}

		color[b.ID] = black
		info.PostNum[b.ID] = len(info.Postorder)
		info.Postorder = append(info.Postorder, b)
	}
	for _, b := range f.Blocks {
		b.dfsPre = -1
		b.dfsPost = -1
		b.reachable = false
	}
	if f.Entry != nil {
		visit(f.Entry)
	}
	for _, b := range f.Blocks {
		if p, ok := preNum[b.ID]; ok {
			b.dfsPre = int32(p)
		}
		if p, ok := info.PostNum[b.ID]; ok {
			b.dfsPost = int32(p)
		}
	}
	f.cachedDFS = info
	return info
}

// EdgeKind classifies the edge b->succ (succ must be one of b's direct
// successors). Requires a prior AssureDFS; unreachable edges report
// EdgeTree as a harmless default.
func (f *Func) EdgeKind(b, succ *Block) EdgeKind {
	info := f.AssureDFS()
	return info.EdgeKinds[edgeKey{from: b.ID, to: succ.ID}]
}

// Postorder returns blocks reachable from the entry in exits-first order
// (successors before predecessors; the entry block is last).
func (f *Func) Postorder() []*Block {
	return f.AssureDFS().Postorder
}

// computeIdom computes the immediate dominator of every reachable block
// using the iterative Cooper-Harvey-Kennedy algorithm, following the same
// shape as fkuehnel-golang-cfg/go-code/dom.go's intersect-based loop: walk
// blocks in reverse postorder (entry first), repeatedly intersecting the
// idom candidates of already-processed predecessors until a fixed point.
func (f *Func) computeIdom() map[ID]*Block {
	dfs := f.AssureDFS()
	po := dfs.Postorder // exits first, entry last
	rpo := make([]*Block, len(po))
	for i, b := range po {
		rpo[len(po)-1-i] = b
	}

	idom := make(map[ID]*Block, len(rpo))
	idom[f.Entry.ID] = f.Entry

	postNum := dfs.PostNum
	intersect := func(b1, b2 *Block) *Block {
		for b1 != b2 {
			for postNum[b1.ID] < postNum[b2.ID] {
				b1 = idom[b1.ID]
			}
			for postNum[b2.ID] < postNum[b1.ID] {
				b2 = idom[b2.ID]
			}
		}
		return b1
	}

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == f.Entry {
				continue
			}
			var newIdom *Block
			for _, e := range b.Preds {
				p := e.B
				if idom[p.ID] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p)
			}
			if newIdom == nil {
				continue
			}
			if idom[b.ID] != newIdom {
				idom[b.ID] = newIdom
				changed = true
			}
		}
	}
	return idom
}

// AssureDoms recomputes, on every call, Idom, DomPre, and DomMax for
// every reachable block in f. DomPre/DomMax follow the preorder-over-
// dominator-subtree numbering: b dominates b2 iff
// DomPre(b) <= DomPre(b2) <= DomMax(b).
func (f *Func) AssureDoms() {
	idom := f.computeIdom()
	children := make(map[ID][]*Block, len(f.Blocks))
	for _, b := range f.Blocks {
		b.Idom = nil
	}
	for _, b := range f.Blocks {
		d, ok := idom[b.ID]
		if !ok || b == f.Entry {
			continue
		}
		b.Idom = d
		children[d.ID] = append(children[d.ID], b)
	}

	next := int32(0)
	var assign func(b *Block)
	assign = func(b *Block) {
		b.DomPre = next
		next++
		for _, c := range children[b.ID] {
			assign(c)
		}
		b.DomMax = next - 1
	}
	if f.Entry != nil {
		assign(f.Entry)
	}
}
