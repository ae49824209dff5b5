package affine

import (
	"github.com/snitchtools/streamgen/errors"
	"github.com/snitchtools/streamgen/ir"
)

// Expanded is the materialized form of an access at a concrete insertion
// point: every symbolic expression instantiated as an IR value.
//
// Dimension i covers the i-th loop of the access's chain, innermost first.
// Reps hold bound-register values (iterations minus one); PrefixSumRanges[i]
// is the total byte distance dimensions 0..i advance, which the code
// generator subtracts to telescope outer strides.
type Expanded struct {
	Access *Access
	Dim    int

	Steps           []ir.Value
	Reps            []ir.Value
	PrefixSumRanges []ir.Value

	Addr  ir.Value // address of the first element
	Lower ir.Value // lowest address the stream touches
	Upper ir.Value // highest address the stream touches
}

// ExpandAllAt materializes each access of accs in front of point, which must
// be in a block where every expression the accesses depend on is available
// (normally the terminator of L's preheader). It returns the expanded
// accesses together with a combined i1 guard condition: trip-count checks
// for every covered loop when emitBound is set, and pairwise address-range
// disjointness checks for must-not-intersect conflicts when emitIntersect is
// set. With both off the condition is constant true.
func (in *Info) ExpandAllAt(accs []*Access, L *ir.Loop, point *ir.Instr, emitIntersect, emitBound bool) ([]Expanded, ir.Value, error) {
	b := ir.NewBuilder(in.fn, point)
	var cond ir.Value = ir.ConstBool(true)

	repOf := make(map[*ir.Loop]ir.Value)
	checked := make(map[*ir.Loop]bool)
	exps := make([]Expanded, 0, len(accs))

	for _, a := range accs {
		chain := a.Chain(L)
		if chain == nil {
			return nil, nil, errors.Internal(errors.PhaseExpand,
				"access in @%s is not nested under loop %s", in.fn.Nam, L.Header.Nam)
		}

		e := Expanded{
			Access: a,
			Dim:    len(chain),
			Addr:   a.base.Emit(b, "ssr.addr"),
		}
		var prefix, lowAdj, highAdj ir.Value

		for _, m := range chain {
			iv := in.IndVarOf(m)
			if iv == nil {
				return nil, nil, errors.Internal(errors.PhaseExpand,
					"no induction variable for loop %s in @%s", m.Header.Nam, in.fn.Nam)
			}
			rep, ok := repOf[m]
			if !ok {
				rep = iv.Rep().Emit(b, "ssr.rep")
				repOf[m] = rep
			}
			step := a.StepOf(m)
			stepV := ir.ConstInt(ir.I64, step)
			e.Steps = append(e.Steps, stepV)
			e.Reps = append(e.Reps, rep)

			rng := b.Mul(ir.I64, stepV, rep, "ssr.range")
			if prefix == nil {
				prefix = rng
			} else {
				prefix = b.Add(ir.I64, prefix, rng, "ssr.range.sum")
			}
			e.PrefixSumRanges = append(e.PrefixSumRanges, prefix)

			if step > 0 {
				if highAdj == nil {
					highAdj = rng
				} else {
					highAdj = b.Add(ir.I64, highAdj, rng, "ssr.range.hi")
				}
			} else if step < 0 {
				if lowAdj == nil {
					lowAdj = rng
				} else {
					lowAdj = b.Add(ir.I64, lowAdj, rng, "ssr.range.lo")
				}
			}

			if emitBound && !checked[m] {
				checked[m] = true
				c := b.ICmp(iv.Pred, iv.Phi.Type(), iv.Init, iv.Bound, "tc.check")
				cond = b.And(cond, c, "ssr.cond")
			}
		}
		e.Lower, e.Upper = e.Addr, e.Addr
		if lowAdj != nil {
			e.Lower = b.Add(addrType(e.Addr), e.Addr, lowAdj, "ssr.lower")
		}
		if highAdj != nil {
			e.Upper = b.Add(addrType(e.Addr), e.Addr, highAdj, "ssr.upper")
		}
		exps = append(exps, e)
	}

	if emitIntersect {
		for i := 0; i < len(accs); i++ {
			for j := i + 1; j < len(accs); j++ {
				switch conflictKind(accs[i], accs[j]) {
				case NoConflict:
				case MustNotIntersect:
					at := addrType(exps[i].Addr)
					c1 := b.ICmp(ir.CmpUlt, at, exps[i].Upper, exps[j].Lower, "no.isect")
					c2 := b.ICmp(ir.CmpUlt, at, exps[j].Upper, exps[i].Lower, "no.isect")
					cond = b.And(cond, b.Or(c1, c2, "isect.check"), "ssr.cond")
				case Bad:
					return nil, nil, errors.BadConflict(in.fn.Nam, L.Header.Nam)
				}
			}
		}
	}
	return exps, cond, nil
}

func addrType(v ir.Value) ir.Type {
	if v.Type() == ir.Ptr {
		return ir.Ptr
	}
	return ir.I64
}
