package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/snitchtools/streamgen/affine"
	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/snitch"
)

// validLoop reports whether streams can be placed around L at all: the
// expansion code needs a preheader to live in and the disable call needs a
// unique exit.
func validLoop(l *ir.Loop) bool {
	return l.Preheader() != nil && l.SingleExit() != nil
}

// visitLoop collects the stream candidates of L, ranks them, and records L
// in the conflict tree. Candidates are sorted low dimension first and reads
// before writes, then truncated to the channel count; the tree value is the
// estimated gain of that selection, floored at zero so a hopeless loop never
// drags its parent down.
func (e *Engine) visitLoop(l *ir.Loop, aff *affine.Info, tainted map[*ir.Loop]bool, tree *conflictTree) {
	var accs []*affine.Access
	if !tainted[l] && validLoop(l) {
		accs = aff.ExpandableAccesses(l, e.cfg.ConflictFreeOnly)
	}

	var fit []*affine.Access
	for _, a := range accs {
		if a.Elem == snitch.ElemType && a.Dim(l) <= snitch.MaxDim {
			fit = append(fit, a)
		}
	}
	sort.SliceStable(fit, func(i, j int) bool {
		di, dj := fit[i].Dim(l), fit[j].Dim(l)
		if di != dj {
			return di < dj
		}
		return !fit[i].IsWrite() && fit[j].IsWrite()
	})
	if len(fit) > snitch.NumChannels {
		fit = fit[:snitch.NumChannels]
	}

	gain := 0
	if len(fit) > 0 {
		if g := estGain(aff, fit, l, e.cfg); g > 0 {
			gain = g
		}
	}
	if e.cfg.Verbose {
		Logger().Info("loop visited",
			zap.String("func", l.Header.Parent().Name()),
			zap.String("loop", l.Header.Name()),
			zap.Int("candidates", len(fit)),
			zap.Int("gain", gain))
	}
	tree.insert(l, gain, l.Parent)

	e.selected[l] = fit
}
