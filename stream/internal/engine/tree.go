package engine

import "github.com/snitchtools/streamgen/ir"

// conflictTree ranks nested stream candidates against each other. Expanding
// streams at an outer loop shadows every loop nested inside it, so the
// candidates form a forest mirroring the loop nest and selection picks, per
// subtree, either the node or the best of its children.
type conflictTree struct {
	nodes map[*ir.Loop]int
	arena []treeNode
	roots []int
}

type treeNode struct {
	loop     *ir.Loop
	value    int
	children []int
}

func newConflictTree() *conflictTree {
	return &conflictTree{nodes: make(map[*ir.Loop]int)}
}

// insert adds l with the given estimated gain. parent may be nil for
// outermost loops; otherwise it must have been inserted already.
func (t *conflictTree) insert(l *ir.Loop, value int, parent *ir.Loop) {
	id := len(t.arena)
	t.arena = append(t.arena, treeNode{loop: l, value: value})
	t.nodes[l] = id
	if parent == nil {
		t.roots = append(t.roots, id)
		return
	}
	p := t.nodes[parent]
	t.arena[p].children = append(t.arena[p].children, id)
}

// findBest returns the loops to expand streams at. In every subtree the
// children win only when their combined gain strictly exceeds the parent's;
// on a tie the parent wins, since one wide stream region beats several
// narrow ones of equal benefit.
func (t *conflictTree) findBest() []*ir.Loop {
	var res []*ir.Loop
	for _, r := range t.roots {
		res, _ = t.best(r, res)
	}
	return res
}

func (t *conflictTree) best(id int, res []*ir.Loop) ([]*ir.Loop, int) {
	n := &t.arena[id]
	mark := len(res)
	sum := 0
	for _, c := range n.children {
		var g int
		res, g = t.best(c, res)
		sum += g
	}
	if sum > n.value {
		return res, sum
	}
	return append(res[:mark], n.loop), n.value
}
