package engine

import (
	"github.com/snitchtools/streamgen/errors"
	"github.com/snitchtools/streamgen/ir"
)

// copyPhisFromPred gives every phi of pred a shadow phi in b whose only
// incoming edge is pred, and rewires all uses outside pred to the shadow.
// After region cloning the shadow picks up one incoming per cloned
// predecessor, keeping values selected inside the region correct on both
// paths.
func copyPhisFromPred(f *ir.Func, b, pred *ir.Block) {
	for _, phi := range pred.Phis() {
		c := &ir.Instr{
			Op:  ir.OpPhi,
			Typ: phi.Type(),
			Nam: f.ValueName(phi.Name() + ".copy"),
		}
		f.ReplaceUsesOutsideBlock(phi, c, pred)
		c.AddIncoming(phi, pred)
		b.InsertFront(c)
	}
}

// cloneRegion duplicates the single-entry single-exit region [begin, end)
// and guards entry to the two copies with a conditional branch. It returns
// the guarding branch, whose condition is a placeholder constant false, and
// the terminator of the join block in front of end. Values defined inside
// the region must not be used past end; that is checked and reported, not
// assumed.
func cloneRegion(f *ir.Func, begin, end *ir.Instr) (*ir.Instr, *ir.Instr, error) {
	head, beginBlk := f.SplitBefore(begin, "split.before")
	fuse, endBlk := f.SplitBefore(end, "fuse.prep")
	fuseTerm := fuse.Term()
	copyPhisFromPred(f, endBlk, fuse)

	region := regionBlocks(beginBlk, endBlk)
	if err := checkRegionUses(f, region, endBlk); err != nil {
		return nil, nil, err
	}

	valueClones := make(map[ir.Value]ir.Value)
	blockClones := make(map[*ir.Block]*ir.Block)
	var pending []*ir.Instr

	for _, b := range region {
		nb := f.NewBlock(b.Name() + ".clone")
		blockClones[b] = nb
		for _, in := range b.Insts {
			c := in.Clone()
			if in.Name() != "" {
				c.Nam = f.ValueName(in.Name() + ".clone")
			}
			nb.Append(c)
			valueClones[in] = c
			pending = append(pending, c)
		}
	}

	// patch operands and branch targets; anything defined outside the
	// region maps to itself
	for _, c := range pending {
		for k, op := range c.Operands {
			if nv, ok := valueClones[op]; ok {
				c.Operands[k] = nv
			}
		}
		for k, blk := range c.Blocks {
			if nb, ok := blockClones[blk]; ok {
				c.Blocks[k] = nb
			}
		}
	}

	// phi incoming blocks of the join pick up the cloned predecessors
	for _, phi := range endBlk.Phis() {
		incoming := make([]*ir.Block, len(phi.Blocks))
		copy(incoming, phi.Blocks)
		for k, pred := range incoming {
			np, ok := blockClones[pred]
			if !ok {
				continue
			}
			v := phi.Operands[k]
			if nv, ok := valueClones[v]; ok {
				v = nv
			}
			phi.AddIncoming(v, np)
		}
	}

	// the guard replaces the fallthrough into the original copy; the
	// caller owns the condition
	term := head.Term()
	term.Op = ir.OpCondBr
	term.Operands = []ir.Value{ir.ConstBool(false)}
	term.Blocks = []*ir.Block{beginBlk, blockClones[beginBlk]}
	return term, fuseTerm, nil
}

// checkLoopUses verifies that every value defined inside l is consumed
// inside it or through a phi of its single exit. Cloning hands results to
// the join solely through the exit phis, so a loop with a result read past
// the exit cannot be duplicated. Running the check before planning lets the
// caller refuse the loop while the function is still untouched.
func checkLoopUses(f *ir.Func, l *ir.Loop) error {
	exit := l.SingleExit()
	defined := make(map[ir.Value]bool)
	for _, b := range l.Blocks() {
		for _, in := range b.Insts {
			if in.Name() != "" {
				defined[in] = true
			}
		}
	}
	for _, b := range f.Blocks {
		if l.Contains(b) {
			continue
		}
		for _, in := range b.Insts {
			if b == exit && in.IsPhi() {
				continue
			}
			for _, op := range in.Operands {
				if defined[op] {
					return errors.MalformedRegion(f.Name(),
						"value "+op.Ident()+" defined in loop "+l.Header.Name()+
							" used outside its exit phis")
				}
			}
		}
	}
	return nil
}

// regionBlocks walks forward from begin and returns every block reachable
// without passing through end, in discovery order.
func regionBlocks(begin, end *ir.Block) []*ir.Block {
	seen := map[*ir.Block]bool{begin: true, end: true}
	order := []*ir.Block{begin}
	for i := 0; i < len(order); i++ {
		for _, s := range order[i].Succs() {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}
	return order
}

func checkRegionUses(f *ir.Func, region []*ir.Block, end *ir.Block) error {
	inRegion := make(map[*ir.Block]bool, len(region))
	for _, b := range region {
		inRegion[b] = true
	}
	defined := make(map[ir.Value]bool)
	for _, b := range region {
		for _, in := range b.Insts {
			if in.Name() != "" {
				defined[in] = true
			}
		}
	}
	for _, b := range f.Blocks {
		if inRegion[b] {
			continue
		}
		for _, in := range b.Insts {
			// the shadow phis of the join legitimately read region
			// values and are patched after cloning
			if b == end && in.IsPhi() {
				continue
			}
			for _, op := range in.Operands {
				if defined[op] {
					return errors.MalformedRegion(f.Name(),
						"value "+op.Ident()+" defined in cloned region used outside it")
				}
			}
		}
	}
	return nil
}
