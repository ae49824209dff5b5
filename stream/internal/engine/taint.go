package engine

import (
	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/snitch"
)

// taintedLoops finds loops that already use the streaming hardware and must
// not be touched, together with all their ancestors.
//
// The traversal is a worklist over (block, enabled) pairs: a block reached
// both inside and outside an active stream region is processed both ways,
// since the enable/disable state is path sensitive. An enable with no
// matching disable taints everything reachable afterwards; that is
// deliberate conservatism, not a bug.
func taintedLoops(prog *ir.Program, f *ir.Func, li *ir.LoopInfo) map[*ir.Loop]bool {
	invalid := make(map[*ir.Loop]bool)
	if len(f.Blocks) == 0 {
		return invalid
	}

	markChain := func(b *ir.Block) {
		for l := li.LoopFor(b); l != nil; l = l.Parent {
			invalid[l] = true
		}
	}

	type item struct {
		block  *ir.Block
		marked bool
	}
	visUnmarked := make(map[*ir.Block]bool)
	visMarked := make(map[*ir.Block]bool)
	work := []item{{block: f.Entry()}}

	for len(work) > 0 {
		it := work[0]
		work = work[1:]
		b, marked := it.block, it.marked

		if marked {
			if visMarked[b] {
				continue
			}
			visMarked[b] = true
			markChain(b)

			// a disable in this block frees the successors again
			for _, in := range b.Insts {
				if in.Op == ir.OpCall && in.Callee == snitch.IntrDisable {
					marked = false
					break
				}
			}
		} else {
			if visUnmarked[b] {
				continue
			}
			visUnmarked[b] = true

			for _, in := range b.Insts {
				switch {
				case in.Op == ir.OpCall && snitch.IsStreamCall(in):
					marked = true
				case in.Op == ir.OpCall:
					// a callee that contains streams invalidates every
					// loop around the call site, but assuming correct
					// usage its streams are done on return
					if callee := prog.FuncByName(in.Callee); callee != nil && callee.HasAttr(AttrStream) {
						markChain(b)
					}
				case in.Op == ir.OpAsm:
					// inline device code may contain stream setup
					marked = true
				}
			}
			if marked {
				work = append(work, item{block: b, marked: true})
			}
		}

		for _, s := range b.Succs() {
			work = append(work, item{block: s, marked: marked})
		}
	}
	return invalid
}
