package engine

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/snitchtools/streamgen/affine"
	"github.com/snitchtools/streamgen/errors"
	"github.com/snitchtools/streamgen/ir"
)

// Function attributes the engine reads and writes.
const (
	// AttrStream marks a function that configures stream registers, either
	// by hand or because a previous run placed streams in it.
	AttrStream = "ssr"
	// AttrNoInline keeps transformed functions out of the inliner, since
	// inlining could merge two active stream regions.
	AttrNoInline = "noinline"
)

// Config selects which parts of the transformation run and which runtime
// guards the generated code carries.
type Config struct {
	Infer             bool // infer streams in unmarked functions
	NoIntersectCheck  bool // omit runtime disjointness checks
	NoScratchpadCheck bool // omit scratchpad address-range checks
	NoBoundCheck      bool // omit loop trip-count checks
	ConflictFreeOnly  bool // only stream accesses with no conflicts at all
	NoInline          bool // mark transformed functions noinline
	Barrier           bool // wait for stream completion before disabling
	Verbose           bool // log per-loop decisions
}

// Engine drives stream inference over one program.
type Engine struct {
	cfg  Config
	prog *ir.Program

	selected map[*ir.Loop][]*affine.Access
}

// New returns an engine for prog.
func New(cfg Config, prog *ir.Program) *Engine {
	return &Engine{cfg: cfg, prog: prog}
}

// Transform runs stream inference over every function and reports whether
// anything changed.
func (e *Engine) Transform() (bool, error) {
	changed := false
	for _, f := range e.prog.Funcs {
		c, err := e.TransformFunc(f)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

// TransformFunc infers and places streams in f. Functions already marked as
// stream users are left alone: their configuration is assumed deliberate,
// and nesting inferred streams inside it would corrupt both.
func (e *Engine) TransformFunc(f *ir.Func) (bool, error) {
	if !e.cfg.Infer || f.HasAttr(AttrStream) || len(f.Blocks) == 0 {
		return false, nil
	}

	dt := ir.Dominators(f)
	li := ir.Loops(f, dt)
	aff := affine.NewInfo(f, dt, li)
	tainted := taintedLoops(e.prog, f, li)

	tree := newConflictTree()
	e.selected = make(map[*ir.Loop][]*affine.Access)
	for _, l := range li.PreOrder() {
		e.visitLoop(l, aff, tainted, tree)
	}

	// Expansion for every selected loop is captured before any region is
	// cloned: cloning rewrites blocks, and loop handles taken from li are
	// only trustworthy while the CFG is still the analyzed one.
	var plans []plan
	for _, l := range tree.findBest() {
		fit := e.selected[l]
		if len(fit) == 0 {
			continue
		}
		if err := checkLoopUses(f, l); err != nil {
			Logger().Warn("loop not streamed",
				zap.String("func", f.Name()),
				zap.String("loop", l.Header.Name()),
				zap.Error(err))
			continue
		}
		phT := l.Preheader().Term()
		exP := l.SingleExit().FirstInsertion()
		exps, cond, err := aff.ExpandAllAt(fit, l, phT,
			!e.cfg.NoIntersectCheck, !e.cfg.NoBoundCheck)
		if err != nil {
			Logger().Warn("loop not streamed",
				zap.String("func", f.Name()),
				zap.String("loop", l.Header.Name()),
				zap.Error(err))
			continue
		}
		if !e.cfg.NoScratchpadCheck {
			b := ir.NewBuilder(f, phT)
			for _, exp := range exps {
				cond = b.And(cond, scratchpadCheck(b, exp), "ssr.cond")
			}
		}
		plans = append(plans, plan{loop: l, phT: phT, exP: exP, cond: cond, exps: exps})
	}

	for _, p := range plans {
		if err := e.cloneAndSetup(f, p); err != nil {
			// refusing one loop must never fail the compilation; only
			// invariant violations inside the pass itself propagate
			var perr *errors.Error
			if stderrors.As(err, &perr) && perr.Kind != errors.KindInternal {
				Logger().Warn("loop not streamed",
					zap.String("func", f.Name()),
					zap.String("loop", p.loop.Header.Name()),
					zap.Error(err))
				continue
			}
			return len(plans) > 0, err
		}
	}

	if len(plans) == 0 {
		return false, nil
	}
	f.SetAttr(AttrStream)
	if e.cfg.NoInline {
		f.SetAttr(AttrNoInline)
	}
	return true, nil
}
