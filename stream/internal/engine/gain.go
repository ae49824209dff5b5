package engine

import (
	"go.uber.org/zap"

	"github.com/snitchtools/streamgen/affine"
	"github.com/snitchtools/streamgen/ir"
)

// Cost model weights. Trip counts unknown at compile time are assumed to be
// estLoopTripCount iterations.
const (
	estLoopTripCount = 25
	estMulCost       = 3
	estMemOpCost     = 2
)

// expandCost estimates the instructions needed to materialize the address
// pattern of a at L: the base address plus, for every covered loop beyond
// the innermost, a stride, a repetition count and their product, and the
// running-sum adjustment for third and higher dimensions.
func expandCost(in *affine.Info, a *affine.Access, L *ir.Loop) int {
	chain := a.Chain(L)
	cost := a.Base().Size()
	for i := 1; i < len(chain); i++ {
		iv := in.IndVarOf(chain[i])
		cost += 1 + iv.Rep().Size() + estMulCost
		if i > 1 {
			cost++
		}
	}
	return cost
}

// estGain weighs the memory operations a stream region at L would absorb
// against the setup code it costs: address expansion per access, runtime
// disjointness checks per conflicting pair, the scratchpad range check, and
// one trip-count check per covered loop.
func estGain(in *affine.Info, sel []*affine.Access, L *ir.Loop, cfg Config) int {
	inSet := make(map[*affine.Access]bool, len(sel))
	for _, a := range sel {
		inSet[a] = true
	}

	type pair struct{ a, b *affine.Access }
	vis := make(map[pair]bool)

	contLoops := make(map[*ir.Loop]bool)
	gain := 0
	for _, a := range sel {
		gain -= expandCost(in, a, L)

		reps := 1
		for _, m := range a.Chain(L) {
			contLoops[m] = true
			tc := estLoopTripCount
			if iv := in.IndVarOf(m); iv != nil {
				if c, ok := iv.Iterations().ConstVal(); ok && c > 0 {
					tc = int(c)
				}
			}
			if r := reps * tc; r > reps {
				reps = r
			}
		}
		gain += estMemOpCost * reps

		if cfg.NoIntersectCheck {
			continue
		}
		for _, c := range in.Conflicts(a, L) {
			if c.Kind == affine.Bad {
				Logger().Warn("unresolvable access conflict",
					zap.String("func", L.Header.Parent().Name()),
					zap.String("loop", L.Header.Name()))
				gain -= 1 << 30
				continue
			}
			if vis[pair{a, c.Other}] {
				continue
			}
			vis[pair{a, c.Other}] = true
			vis[pair{c.Other, a}] = true
			gain -= 4
			if !inSet[c.Other] {
				gain -= expandCost(in, c.Other, L)
			}
		}
	}

	if !cfg.NoScratchpadCheck {
		gain -= 4 * len(sel)
	}
	if !cfg.NoBoundCheck {
		gain -= 2 * len(contLoops)
	}
	return gain
}
