package affine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/snitchtools/streamgen/ir"
)

// Dir is the transfer direction of an access.
type Dir uint8

const (
	Read Dir = iota
	Write
)

func (d Dir) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// ConflictKind classifies how two accesses in the same loop may interfere.
type ConflictKind uint8

const (
	// NoConflict: the accesses provably touch disjoint storage.
	NoConflict ConflictKind = iota
	// MustNotIntersect: safe only if the runtime address ranges are disjoint.
	MustNotIntersect
	// Bad: interference that no runtime check can rule out. The analysis
	// never offers such accesses as expandable, so a Bad conflict reaching
	// expansion is a bug in the caller.
	Bad
)

// Conflict pairs a conflicting access with its classification.
type Conflict struct {
	Other *Access
	Kind  ConflictKind
}

// IndVar is the canonical induction variable of a loop: a header phi with a
// constant step, exiting on a compare against a loop-invariant bound.
type IndVar struct {
	Phi   *ir.Instr
	Init  ir.Value
	Step  int64
	Bound ir.Value
	Pred  ir.Cmp // continue predicate, normalized so Phi is the left operand
}

// Iterations returns the symbolic trip count of the loop.
func (iv *IndVar) Iterations() *Expr {
	var diff *Expr
	switch iv.Pred {
	case ir.CmpSlt, ir.CmpUlt:
		diff = NewSub(NewRef(iv.Bound), NewRef(iv.Init))
	case ir.CmpSle, ir.CmpUle:
		diff = NewAdd(NewSub(NewRef(iv.Bound), NewRef(iv.Init)), NewConst(1))
	case ir.CmpSgt:
		diff = NewSub(NewRef(iv.Init), NewRef(iv.Bound))
	case ir.CmpSge:
		diff = NewAdd(NewSub(NewRef(iv.Init), NewRef(iv.Bound)), NewConst(1))
	case ir.CmpNe:
		if iv.Step < 0 {
			diff = NewSub(NewRef(iv.Init), NewRef(iv.Bound))
		} else {
			diff = NewSub(NewRef(iv.Bound), NewRef(iv.Init))
		}
	default:
		return NewConst(0)
	}
	step := iv.Step
	if step < 0 {
		step = -step
	}
	return NewUDiv(NewAdd(diff, NewConst(step-1)), NewConst(step))
}

// Rep returns the symbolic bound-register value: iterations minus one.
func (iv *IndVar) Rep() *Expr {
	return NewSub(iv.Iterations(), NewConst(1))
}

// Access is one affine memory access pattern: a set of load or store
// instructions whose address is base + sum over enclosing loops of
// step*index. All Ops share the same form and the same innermost loop.
type Access struct {
	Dir  Dir
	Elem ir.Type
	Ops  []*ir.Instr

	base       *Expr
	steps      map[*ir.Loop]int64 // byte stride per iteration of each loop
	loop       *ir.Loop           // innermost loop containing Ops
	roots      map[ir.Value]bool  // named storage the base resolves to
	opaqueRoot bool               // base involves a pointer of unknown origin
	key        string
}

// IsWrite reports whether the access stores.
func (a *Access) IsWrite() bool { return a.Dir == Write }

// Base returns the symbolic address of the first element.
func (a *Access) Base() *Expr { return a.base }

// StepOf returns the byte stride per iteration of loop M.
func (a *Access) StepOf(M *ir.Loop) int64 { return a.steps[M] }

// Chain returns the loops the access spans from its innermost loop up to L,
// innermost first, or nil if L does not enclose the access.
func (a *Access) Chain(L *ir.Loop) []*ir.Loop {
	var chain []*ir.Loop
	for m := a.loop; m != nil; m = m.Parent {
		chain = append(chain, m)
		if m == L {
			return chain
		}
	}
	return nil
}

// Dim returns the affine dimension of the access relative to L.
func (a *Access) Dim(L *ir.Loop) int { return len(a.Chain(L)) }

// Info computes and caches affine access information for one function. It
// must not be queried after the function's control flow has been mutated.
type Info struct {
	fn *ir.Func
	dt *ir.DomTree
	li *ir.LoopInfo

	ivs     map[*ir.Loop]*IndVar
	ivTried map[*ir.Loop]bool
	cands   map[*ir.Loop][]*Access
}

// NewInfo returns an analysis context for fn using precomputed dominators
// and loop structure.
func NewInfo(fn *ir.Func, dt *ir.DomTree, li *ir.LoopInfo) *Info {
	return &Info{
		fn:      fn,
		dt:      dt,
		li:      li,
		ivs:     make(map[*ir.Loop]*IndVar),
		ivTried: make(map[*ir.Loop]bool),
		cands:   make(map[*ir.Loop][]*Access),
	}
}

// IndVarOf returns the canonical induction variable of L, or nil if L has
// none the analysis can recognize.
func (in *Info) IndVarOf(L *ir.Loop) *IndVar {
	if in.ivTried[L] {
		return in.ivs[L]
	}
	in.ivTried[L] = true
	if iv := in.findIndVar(L); iv != nil {
		in.ivs[L] = iv
		return iv
	}
	return nil
}

func (in *Info) findIndVar(L *ir.Loop) *IndVar {
	pre := L.Preheader()
	latch := L.Latch()
	if pre == nil || latch == nil {
		return nil
	}
	term := L.Header.Term()
	if term == nil || term.Op != ir.OpCondBr {
		return nil
	}
	cond, ok := term.Operands[0].(*ir.Instr)
	if !ok || cond.Op != ir.OpICmp || cond.Parent() != L.Header {
		return nil
	}

	// the header must be the exiting block
	var pred ir.Cmp
	switch {
	case L.Contains(term.Blocks[0]) && !L.Contains(term.Blocks[1]):
		pred = cond.Cmp
	case !L.Contains(term.Blocks[0]) && L.Contains(term.Blocks[1]):
		pred = negateCmp(cond.Cmp)
	default:
		return nil
	}

	if iv := in.tryIndVar(L, pre, latch, cond.Operands[0], cond.Operands[1], pred); iv != nil {
		return iv
	}
	return in.tryIndVar(L, pre, latch, cond.Operands[1], cond.Operands[0], mirrorCmp(pred))
}

func (in *Info) tryIndVar(L *ir.Loop, pre, latch *ir.Block, v, bound ir.Value, pred ir.Cmp) *IndVar {
	phi, ok := v.(*ir.Instr)
	if !ok || !phi.IsPhi() || phi.Parent() != L.Header || len(phi.Operands) != 2 {
		return nil
	}
	init := phi.Incoming(pre)
	nextV := phi.Incoming(latch)
	if init == nil || nextV == nil {
		return nil
	}
	next, ok := nextV.(*ir.Instr)
	if !ok || !L.Contains(next.Parent()) {
		return nil
	}

	var step int64
	switch {
	case next.Op == ir.OpAdd && next.Operands[0] == ir.Value(phi):
		c, ok := next.Operands[1].(*ir.Const)
		if !ok {
			return nil
		}
		step = c.Int
	case next.Op == ir.OpAdd && next.Operands[1] == ir.Value(phi):
		c, ok := next.Operands[0].(*ir.Const)
		if !ok {
			return nil
		}
		step = c.Int
	case next.Op == ir.OpSub && next.Operands[0] == ir.Value(phi):
		c, ok := next.Operands[1].(*ir.Const)
		if !ok {
			return nil
		}
		step = -c.Int
	default:
		return nil
	}
	if step == 0 || !in.invariantAt(bound, L, pre) {
		return nil
	}

	// the continue predicate must agree with the step direction, otherwise
	// the trip count formula does not apply
	switch pred {
	case ir.CmpSlt, ir.CmpUlt, ir.CmpSle, ir.CmpUle:
		if step <= 0 {
			return nil
		}
	case ir.CmpSgt, ir.CmpSge:
		if step >= 0 {
			return nil
		}
	case ir.CmpNe:
		if step != 1 && step != -1 {
			return nil
		}
	default:
		return nil
	}
	return &IndVar{Phi: phi, Init: init, Step: step, Bound: bound, Pred: pred}
}

// invariantAt reports whether v is a fixed value at pre, the preheader of L.
func (in *Info) invariantAt(v ir.Value, L *ir.Loop, pre *ir.Block) bool {
	switch x := v.(type) {
	case *ir.Const, *ir.Param, *ir.Global:
		return true
	case *ir.Instr:
		return !L.Contains(x.Parent()) && in.dt.Dominates(x.Parent(), pre)
	}
	return false
}

// ExpandableAccesses returns the accesses that can be turned into streams
// spanning all of L, in deterministic program order. With conflictFreeOnly
// set, accesses with any conflict are dropped.
func (in *Info) ExpandableAccesses(L *ir.Loop, conflictFreeOnly bool) []*Access {
	accs := in.candidates(L)
	if !conflictFreeOnly {
		return accs
	}
	var out []*Access
	for _, a := range accs {
		if len(in.Conflicts(a, L)) == 0 {
			out = append(out, a)
		}
	}
	return out
}

// Conflicts returns the non-trivial conflicts of a against the other
// accesses expandable at L.
func (in *Info) Conflicts(a *Access, L *ir.Loop) []Conflict {
	var out []Conflict
	for _, b := range in.candidates(L) {
		if b == a {
			continue
		}
		if k := conflictKind(a, b); k != NoConflict {
			out = append(out, Conflict{Other: b, Kind: k})
		}
	}
	return out
}

func conflictKind(a, b *Access) ConflictKind {
	if a.Dir == Read && b.Dir == Read {
		return NoConflict
	}
	if a.opaqueRoot || b.opaqueRoot {
		return MustNotIntersect
	}
	// distinct globals name distinct storage; anything involving a pointer
	// parameter may alias and needs the runtime range check
	distinct := true
	allGlobals := true
	for r := range a.roots {
		if b.roots[r] {
			distinct = false
		}
		if _, ok := r.(*ir.Global); !ok {
			allGlobals = false
		}
	}
	for r := range b.roots {
		if _, ok := r.(*ir.Global); !ok {
			allGlobals = false
		}
	}
	if distinct && allGlobals && len(a.roots) > 0 && len(b.roots) > 0 {
		return NoConflict
	}
	return MustNotIntersect
}

// candidates computes (and caches) the full expandable access set of L.
func (in *Info) candidates(L *ir.Loop) []*Access {
	if accs, ok := in.cands[L]; ok {
		return accs
	}
	accs := in.findCandidates(L)
	in.cands[L] = accs
	return accs
}

func (in *Info) findCandidates(L *ir.Loop) []*Access {
	pre := L.Preheader()
	if pre == nil {
		return nil
	}

	var memOps []*ir.Instr
	for _, b := range L.Blocks() {
		for _, i := range b.Insts {
			switch i.Op {
			case ir.OpCall, ir.OpAsm:
				// opaque code may touch any memory
				return nil
			case ir.OpLoad, ir.OpStore:
				memOps = append(memOps, i)
			}
		}
	}

	var accs []*Access
	sawUnknownLoad := false
	for _, op := range memOps {
		a := in.accessFor(op, L, pre)
		if a == nil {
			if op.Op == ir.OpStore {
				// a store the analysis cannot model may overwrite
				// anything streamed here
				return nil
			}
			sawUnknownLoad = true
			continue
		}
		merged := false
		for _, prev := range accs {
			if prev.key == a.key {
				prev.Ops = append(prev.Ops, op)
				merged = true
				break
			}
		}
		if !merged {
			accs = append(accs, a)
		}
	}

	if sawUnknownLoad {
		// an unmodeled load could observe data a write stream drains late
		var reads []*Access
		for _, a := range accs {
			if a.Dir == Read {
				reads = append(reads, a)
			}
		}
		accs = reads
	}
	return accs
}

// accessFor builds the affine form of one load or store relative to L, or
// nil if the address is not affine over L's nest.
func (in *Info) accessFor(op *ir.Instr, L *ir.Loop, pre *ir.Block) *Access {
	var addr ir.Value
	dir := Read
	elem := op.Typ
	if op.Op == ir.OpStore {
		dir = Write
		addr = op.Operands[1]
		elem = op.Operands[0].Type()
	} else {
		addr = op.Operands[0]
	}

	f := &addrForm{base: NewConst(0), coeff: make(map[*ir.Instr]int64), roots: make(map[ir.Value]bool)}
	if !in.decompose(addr, L, pre, 1, f) {
		return nil
	}

	opLoop := in.li.LoopFor(op.Parent())
	if opLoop == nil {
		return nil
	}
	a := &Access{
		Dir:        dir,
		Elem:       elem,
		Ops:        []*ir.Instr{op},
		base:       f.base,
		steps:      make(map[*ir.Loop]int64),
		loop:       opLoop,
		roots:      f.roots,
		opaqueRoot: f.opaqueRoot,
	}

	chain := a.Chain(L)
	if chain == nil {
		return nil
	}
	inChain := make(map[*ir.Loop]bool, len(chain))
	for _, m := range chain {
		inChain[m] = true
	}

	// every induction variable in the address must belong to the chain and
	// its loop must contain the access
	for phi, c := range f.coeff {
		m := in.li.LoopFor(phi.Parent())
		if m == nil || !inChain[m] || !m.Contains(op.Parent()) {
			return nil
		}
		iv := in.IndVarOf(m)
		if iv == nil || iv.Phi != phi {
			return nil
		}
		a.steps[m] += c * iv.Step
	}

	// every chain level needs a recognized induction variable whose bounds
	// are fixed at L's preheader, and the access must run exactly once per
	// innermost iteration
	for _, m := range chain {
		iv := in.IndVarOf(m)
		if iv == nil {
			return nil
		}
		if !in.invariantAt(iv.Init, L, pre) || !in.invariantAt(iv.Bound, L, pre) {
			return nil
		}
	}
	if latch := chain[0].Latch(); latch == nil || !in.dt.Dominates(op.Parent(), latch) {
		return nil
	}
	for i := 0; i+1 < len(chain); i++ {
		inner, outer := chain[i], chain[i+1]
		ph := inner.Preheader()
		ol := outer.Latch()
		if ph == nil || ol == nil || !in.dt.Dominates(ph, ol) {
			return nil
		}
	}

	a.key = a.formKey()
	return a
}

func (a *Access) formKey() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|%s|", a.Dir, a.Elem, a.loop.Header.Nam, a.base)
	loops := make([]*ir.Loop, 0, len(a.steps))
	for m := range a.steps {
		loops = append(loops, m)
	}
	sort.Slice(loops, func(i, j int) bool { return loops[i].Depth > loops[j].Depth })
	for _, m := range loops {
		fmt.Fprintf(&sb, "%s:%d,", m.Header.Nam, a.steps[m])
	}
	return sb.String()
}

// addrForm accumulates one address decomposition: a loop-invariant base
// expression plus a coefficient per induction-variable phi.
type addrForm struct {
	base       *Expr
	coeff      map[*ir.Instr]int64
	roots      map[ir.Value]bool
	opaqueRoot bool
}

func (f *addrForm) addRef(v ir.Value, scale int64) {
	f.base = NewAdd(f.base, NewMul(NewConst(scale), NewRef(v)))
}

func (in *Info) decompose(v ir.Value, L *ir.Loop, pre *ir.Block, scale int64, f *addrForm) bool {
	switch x := v.(type) {
	case *ir.Const:
		f.base = NewAdd(f.base, NewConst(scale*x.Int))
		return true
	case *ir.Global:
		f.roots[x] = true
		f.addRef(x, scale)
		return true
	case *ir.Param:
		if x.Typ == ir.Ptr {
			f.roots[x] = true
		}
		f.addRef(x, scale)
		return true
	case *ir.Instr:
		if !L.Contains(x.Parent()) {
			if !in.dt.Dominates(x.Parent(), pre) {
				return false
			}
			if x.Type() == ir.Ptr {
				f.opaqueRoot = true
			}
			f.addRef(x, scale)
			return true
		}
		switch x.Op {
		case ir.OpPhi:
			m := in.li.LoopFor(x.Parent())
			if m == nil {
				return false
			}
			iv := in.IndVarOf(m)
			if iv == nil || iv.Phi != x {
				return false
			}
			f.coeff[x] += scale
			f.addRef(iv.Init, scale)
			return true
		case ir.OpAdd:
			return in.decompose(x.Operands[0], L, pre, scale, f) &&
				in.decompose(x.Operands[1], L, pre, scale, f)
		case ir.OpSub:
			return in.decompose(x.Operands[0], L, pre, scale, f) &&
				in.decompose(x.Operands[1], L, pre, -scale, f)
		case ir.OpMul:
			if c, ok := x.Operands[1].(*ir.Const); ok {
				return in.decompose(x.Operands[0], L, pre, scale*c.Int, f)
			}
			if c, ok := x.Operands[0].(*ir.Const); ok {
				return in.decompose(x.Operands[1], L, pre, scale*c.Int, f)
			}
			return false
		}
		return false
	}
	return false
}

func negateCmp(c ir.Cmp) ir.Cmp {
	switch c {
	case ir.CmpEq:
		return ir.CmpNe
	case ir.CmpNe:
		return ir.CmpEq
	case ir.CmpSlt:
		return ir.CmpSge
	case ir.CmpSle:
		return ir.CmpSgt
	case ir.CmpSgt:
		return ir.CmpSle
	case ir.CmpSge:
		return ir.CmpSlt
	case ir.CmpUlt:
		return ir.CmpUge
	case ir.CmpUle:
		return ir.CmpUgt
	case ir.CmpUgt:
		return ir.CmpUle
	case ir.CmpUge:
		return ir.CmpUlt
	}
	return c
}

func mirrorCmp(c ir.Cmp) ir.Cmp {
	switch c {
	case ir.CmpSlt:
		return ir.CmpSgt
	case ir.CmpSle:
		return ir.CmpSge
	case ir.CmpSgt:
		return ir.CmpSlt
	case ir.CmpSge:
		return ir.CmpSle
	case ir.CmpUlt:
		return ir.CmpUgt
	case ir.CmpUle:
		return ir.CmpUge
	case ir.CmpUgt:
		return ir.CmpUlt
	case ir.CmpUge:
		return ir.CmpUle
	}
	return c
}
