package ir

// DomTree holds immediate-dominator information for one function.
type DomTree struct {
	idom map[*Block]*Block
	rpo  map[*Block]int
}

// Dominators computes the dominator tree with the iterative
// Cooper/Harvey/Kennedy algorithm over a reverse postorder.
func Dominators(f *Func) *DomTree {
	entry := f.Entry()
	order := postorder(f)
	rpo := make(map[*Block]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		rpo[order[i]] = len(order) - 1 - i
	}

	preds := make(map[*Block][]*Block, len(order))
	for _, b := range order {
		for _, s := range b.Succs() {
			preds[s] = append(preds[s], b)
		}
	}

	dt := &DomTree{idom: make(map[*Block]*Block, len(order)), rpo: rpo}
	dt.idom[entry] = entry

	changed := true
	for changed {
		changed = false
		// reverse postorder: order is postorder, so walk it backwards
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			if b == entry {
				continue
			}
			var newIdom *Block
			for _, p := range preds[b] {
				if dt.idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = dt.intersect(p, newIdom)
				}
			}
			if newIdom != nil && dt.idom[b] != newIdom {
				dt.idom[b] = newIdom
				changed = true
			}
		}
	}
	return dt
}

func (dt *DomTree) intersect(a, b *Block) *Block {
	for a != b {
		for dt.rpo[a] > dt.rpo[b] {
			a = dt.idom[a]
		}
		for dt.rpo[b] > dt.rpo[a] {
			b = dt.idom[b]
		}
	}
	return a
}

// IDom returns the immediate dominator of b (the entry dominates itself).
func (dt *DomTree) IDom(b *Block) *Block { return dt.idom[b] }

// Dominates reports whether a dominates b. Every block dominates itself.
func (dt *DomTree) Dominates(a, b *Block) bool {
	if dt.idom[b] == nil {
		return false // unreachable
	}
	for {
		if a == b {
			return true
		}
		next := dt.idom[b]
		if next == b {
			return false
		}
		b = next
	}
}

// Reachable reports whether b is reachable from the entry.
func (dt *DomTree) Reachable(b *Block) bool { return dt.idom[b] != nil }

func postorder(f *Func) []*Block {
	var order []*Block
	seen := make(map[*Block]bool, len(f.Blocks))
	var walk func(b *Block)
	walk = func(b *Block) {
		if b == nil || seen[b] {
			return
		}
		seen[b] = true
		for _, s := range b.Succs() {
			walk(s)
		}
		order = append(order, b)
	}
	walk(f.Entry())
	return order
}
