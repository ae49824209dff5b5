package ir

import "sort"

// Loop is one natural loop in a function's loop forest.
type Loop struct {
	Header   *Block
	Parent   *Loop
	Children []*Loop
	Depth    int

	fn     *Func
	blocks map[*Block]bool
	order  []*Block // deterministic iteration order
}

// LoopInfo is the loop forest of one function.
type LoopInfo struct {
	Top []*Loop

	fn      *Loop
	byBlock map[*Block]*Loop // innermost loop per block
}

// Loops detects the natural loops of f. Only reducible cycles are found: a
// back edge requires its target to dominate its source, which is all the
// stream pass can handle anyway.
func Loops(f *Func, dt *DomTree) *LoopInfo {
	byHeader := make(map[*Block]*Loop)

	for _, b := range f.Blocks {
		if !dt.Reachable(b) {
			continue
		}
		for _, s := range b.Succs() {
			if !dt.Dominates(s, b) {
				continue
			}
			l := byHeader[s]
			if l == nil {
				l = &Loop{Header: s, fn: f, blocks: map[*Block]bool{s: true}, order: []*Block{s}}
				byHeader[s] = l
			}
			l.addNaturalLoop(f, b)
		}
	}

	var loops []*Loop
	for _, l := range byHeader {
		loops = append(loops, l)
	}
	// larger loops first so nesting assignment ends at the innermost
	sort.Slice(loops, func(i, j int) bool {
		if len(loops[i].blocks) != len(loops[j].blocks) {
			return len(loops[i].blocks) > len(loops[j].blocks)
		}
		return loops[i].Header.Nam < loops[j].Header.Nam
	})

	li := &LoopInfo{byBlock: make(map[*Block]*Loop)}
	for _, l := range loops {
		if outer := li.byBlock[l.Header]; outer != nil && outer != l {
			l.Parent = outer
			outer.Children = append(outer.Children, l)
		} else {
			li.Top = append(li.Top, l)
		}
		for _, b := range l.order {
			li.byBlock[b] = l
		}
	}
	for _, t := range li.Top {
		setDepths(t, 1)
	}
	return li
}

func setDepths(l *Loop, d int) {
	l.Depth = d
	for _, c := range l.Children {
		setDepths(c, d+1)
	}
}

// addNaturalLoop grows the loop with every block that can reach the latch
// without passing through the header.
func (l *Loop) addNaturalLoop(f *Func, latch *Block) {
	stack := []*Block{latch}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l.blocks[b] {
			continue
		}
		l.blocks[b] = true
		l.order = append(l.order, b)
		for _, p := range f.Preds(b) {
			stack = append(stack, p)
		}
	}
}

// LoopFor returns the innermost loop containing b, or nil.
func (li *LoopInfo) LoopFor(b *Block) *Loop { return li.byBlock[b] }

// PreOrder returns all loops, parents before children.
func (li *LoopInfo) PreOrder() []*Loop {
	var out []*Loop
	var walk func(l *Loop)
	walk = func(l *Loop) {
		out = append(out, l)
		for _, c := range l.Children {
			walk(c)
		}
	}
	for _, t := range li.Top {
		walk(t)
	}
	return out
}

// Contains reports whether b belongs to the loop (including nested loops).
func (l *Loop) Contains(b *Block) bool { return l.blocks[b] }

// ContainsLoop reports whether inner is l or nested anywhere inside l.
func (l *Loop) ContainsLoop(inner *Loop) bool {
	for x := inner; x != nil; x = x.Parent {
		if x == l {
			return true
		}
	}
	return false
}

// Blocks returns the loop's blocks in discovery order (header first).
func (l *Loop) Blocks() []*Block { return l.order }

// Preheader returns the unique out-of-loop predecessor of the header whose
// only successor is the header, or nil if the loop has no preheader.
func (l *Loop) Preheader() *Block {
	var ph *Block
	for _, p := range l.fn.Preds(l.Header) {
		if l.blocks[p] {
			continue
		}
		if ph != nil {
			return nil // multiple entering edges
		}
		ph = p
	}
	if ph == nil {
		return nil
	}
	if succs := ph.Succs(); len(succs) != 1 || succs[0] != l.Header {
		return nil
	}
	return ph
}

// Latch returns the unique in-loop predecessor of the header, or nil.
func (l *Loop) Latch() *Block {
	var latch *Block
	for _, p := range l.fn.Preds(l.Header) {
		if !l.blocks[p] {
			continue
		}
		if latch != nil {
			return nil
		}
		latch = p
	}
	return latch
}

// ExitBlocks returns the distinct out-of-loop successors of loop blocks.
func (l *Loop) ExitBlocks() []*Block {
	var exits []*Block
	seen := make(map[*Block]bool)
	for _, b := range l.order {
		for _, s := range b.Succs() {
			if !l.blocks[s] && !seen[s] {
				seen[s] = true
				exits = append(exits, s)
			}
		}
	}
	return exits
}

// SingleExit returns the sole exit block, or nil if there are zero or many.
func (l *Loop) SingleExit() *Block {
	exits := l.ExitBlocks()
	if len(exits) == 1 {
		return exits[0]
	}
	return nil
}

// IsOutermost reports whether the loop has no parent.
func (l *Loop) IsOutermost() bool { return l.Parent == nil }
