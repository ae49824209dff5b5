package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/snitchtools/streamgen/affine"
	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/snitch"
)

// scratchpadCheck emits the runtime test that the whole address range of exp
// lies inside the scratchpad. Both ends are inclusive.
func scratchpadCheck(b *ir.Builder, exp affine.Expanded) ir.Value {
	t := exp.Lower.Type()
	beg := b.ICmp(ir.CmpUle, t,
		ir.ConstInt(ir.I64, snitch.ScratchpadBegin), exp.Lower, "beg.check")
	end := b.ICmp(ir.CmpUle, t,
		exp.Upper, ir.ConstInt(ir.I64, snitch.ScratchpadEnd), "end.check")
	return b.And(beg, end, "tcdm.check")
}

// generateSetup emits the channel configuration for exp in front of the
// builder's insertion point and rewrites the covered memory operations into
// stream register reads or writes.
//
// Bound registers take repetition counts, one less than the iteration
// count. The stride of every dimension past the first compensates for the
// address distance the lower dimensions already walked.
func generateSetup(b *ir.Builder, exp affine.Expanded, dmid int) {
	id := ir.ConstInt(ir.I32, int64(dmid))

	for i := 0; i < exp.Dim; i++ {
		stride := exp.Steps[i]
		if i > 0 {
			stride = b.Sub(ir.I64, exp.Steps[i], exp.PrefixSumRanges[i-1],
				fmt.Sprintf("stride.%dd", i+1))
		}
		b.Call(ir.Void, snitch.BoundStrideIntrinsic(i+1), "", id, exp.Reps[i], stride)
	}

	// every op of the access pops (or pushes) the same element once, so
	// the datamover repeats each element accordingly
	nReps := 0
	for _, op := range exp.Access.Ops {
		if op.Op == ir.OpLoad {
			op.Op = ir.OpCall
			op.Callee = snitch.IntrPop
			op.Typ = snitch.ElemType
			op.Operands = []ir.Value{id}
		} else {
			v := op.Operands[0]
			op.Op = ir.OpCall
			op.Callee = snitch.IntrPush
			op.Typ = ir.Void
			op.Operands = []ir.Value{id, v}
		}
		nReps++
	}
	b.Call(ir.Void, snitch.IntrSetupRepetition, "", id, ir.ConstInt(ir.I32, int64(nReps-1)))

	// the address write starts the stream, so it has to come last
	intr := snitch.IntrReadImm
	if exp.Access.IsWrite() {
		intr = snitch.IntrWriteImm
	}
	b.Call(ir.Void, intr, "", id, ir.ConstInt(ir.I32, int64(exp.Dim-1)), exp.Addr)
}

func generateBarrier(b *ir.Builder, dmid int) {
	b.Call(ir.Void, snitch.IntrBarrier, "", ir.ConstInt(ir.I32, int64(dmid)))
}

// plan is one loop's expansion, captured before any region is cloned so
// that later block surgery cannot disturb the loop handles of its siblings.
type plan struct {
	loop *ir.Loop
	phT  *ir.Instr // preheader terminator, entry of the region
	exP  *ir.Instr // first insertion point of the exit, end of the region
	cond ir.Value
	exps []affine.Expanded
}

// cloneAndSetup applies one plan: the region is duplicated behind the guard
// condition, the original copy becomes the streamed version, and the clone
// keeps the plain memory accesses for when the guard fails. A condition
// already known at compile time skips the clone: constant false drops the
// plan entirely, constant true streams unconditionally.
func (e *Engine) cloneAndSetup(f *ir.Func, p plan) error {
	if len(p.exps) == 0 {
		return nil
	}
	disablePoint := p.exP
	if c, ok := p.cond.(*ir.Const); ok {
		if c.IsZero() {
			if e.cfg.Verbose {
				Logger().Info("streams statically rejected",
					zap.String("func", f.Name()),
					zap.String("loop", p.loop.Header.Name()))
			}
			return nil
		}
	} else {
		guard, fuseTerm, err := cloneRegion(f, p.phT, p.exP)
		if err != nil {
			return err
		}
		guard.Operands[0] = p.cond
		disablePoint = fuseTerm
	}

	b := ir.NewBuilder(f, p.phT)
	for dmid, exp := range p.exps {
		generateSetup(b, exp, dmid)
	}
	b.Call(ir.Void, snitch.IntrEnable, "")

	b.SetPoint(disablePoint)
	if e.cfg.Barrier {
		for dmid := range p.exps {
			generateBarrier(b, dmid)
		}
	}
	b.Call(ir.Void, snitch.IntrDisable, "")
	return nil
}
