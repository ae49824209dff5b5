package ir

// Builder inserts new instructions before a movable insertion point,
// constant-folding where both operands are constants. Emitted code stays
// simpler that way and lets callers detect compile-time-decided conditions.
type Builder struct {
	f     *Func
	point *Instr
}

// NewBuilder returns a builder inserting before point.
func NewBuilder(f *Func, point *Instr) *Builder {
	if point == nil || point.Parent() == nil {
		panic("ir: builder needs an attached insertion point")
	}
	return &Builder{f: f, point: point}
}

// SetPoint moves the insertion point.
func (b *Builder) SetPoint(point *Instr) {
	if point == nil || point.Parent() == nil {
		panic("ir: builder needs an attached insertion point")
	}
	b.point = point
}

// Point returns the current insertion point.
func (b *Builder) Point() *Instr { return b.point }

func (b *Builder) insert(i *Instr) *Instr {
	if i.Type() != Void {
		i.Nam = b.f.ValueName(i.Nam)
	}
	return b.point.Parent().InsertBefore(i, b.point)
}

func (b *Builder) binary(op Op, t Type, x, y Value, name string) Value {
	cx, xok := x.(*Const)
	cy, yok := y.(*Const)
	if xok && yok && t.IsInt() {
		if v, ok := foldInt(op, cx.Int, cy.Int); ok {
			return ConstInt(t, v)
		}
	}
	// algebraic identities keep generated setup code readable
	if yok && cy.IsZero() && (op == OpAdd || op == OpSub) {
		return x
	}
	if xok && cx.IsZero() && op == OpAdd {
		return y
	}
	if yok && cy.Int == 1 && (op == OpMul || op == OpUDiv) && t.IsInt() {
		return x
	}
	if xok && cx.Int == 1 && op == OpMul && t.IsInt() {
		return y
	}
	return b.insert(&Instr{Op: op, Typ: t, Nam: name, Operands: []Value{x, y}})
}

func foldInt(op Op, x, y int64) (int64, bool) {
	switch op {
	case OpAdd:
		return x + y, true
	case OpSub:
		return x - y, true
	case OpMul:
		return x * y, true
	case OpUDiv:
		if y == 0 {
			return 0, false
		}
		return int64(uint64(x) / uint64(y)), true
	case OpAnd:
		return x & y, true
	case OpOr:
		return x | y, true
	}
	return 0, false
}

// Add emits x+y.
func (b *Builder) Add(t Type, x, y Value, name string) Value {
	return b.binary(OpAdd, t, x, y, name)
}

// Sub emits x-y.
func (b *Builder) Sub(t Type, x, y Value, name string) Value {
	return b.binary(OpSub, t, x, y, name)
}

// Mul emits x*y.
func (b *Builder) Mul(t Type, x, y Value, name string) Value {
	return b.binary(OpMul, t, x, y, name)
}

// UDiv emits unsigned x/y.
func (b *Builder) UDiv(t Type, x, y Value, name string) Value {
	return b.binary(OpUDiv, t, x, y, name)
}

// And emits x&y. i1 operands fold through their boolean identities.
func (b *Builder) And(x, y Value, name string) Value {
	if cx, ok := x.(*Const); ok && cx.Typ == I1 {
		if cx.Int == 0 {
			return ConstBool(false)
		}
		return y
	}
	if cy, ok := y.(*Const); ok && cy.Typ == I1 {
		if cy.Int == 0 {
			return ConstBool(false)
		}
		return x
	}
	return b.binary(OpAnd, I1, x, y, name)
}

// Or emits x|y with boolean folding.
func (b *Builder) Or(x, y Value, name string) Value {
	if cx, ok := x.(*Const); ok && cx.Typ == I1 {
		if cx.Int != 0 {
			return ConstBool(true)
		}
		return y
	}
	if cy, ok := y.(*Const); ok && cy.Typ == I1 {
		if cy.Int != 0 {
			return ConstBool(true)
		}
		return x
	}
	return b.binary(OpOr, I1, x, y, name)
}

// ICmp emits an integer comparison.
func (b *Builder) ICmp(pred Cmp, t Type, x, y Value, name string) Value {
	cx, xok := x.(*Const)
	cy, yok := y.(*Const)
	if xok && yok {
		return ConstBool(evalCmp(pred, cx.Int, cy.Int))
	}
	return b.insert(&Instr{Op: OpICmp, Cmp: pred, Typ: t, Nam: name, Operands: []Value{x, y}})
}

func evalCmp(pred Cmp, x, y int64) bool {
	switch pred {
	case CmpEq:
		return x == y
	case CmpNe:
		return x != y
	case CmpSlt:
		return x < y
	case CmpSle:
		return x <= y
	case CmpSgt:
		return x > y
	case CmpSge:
		return x >= y
	case CmpUlt:
		return uint64(x) < uint64(y)
	case CmpUle:
		return uint64(x) <= uint64(y)
	case CmpUgt:
		return uint64(x) > uint64(y)
	case CmpUge:
		return uint64(x) >= uint64(y)
	}
	return false
}

// Call emits a call to a named function.
func (b *Builder) Call(result Type, callee string, name string, args ...Value) *Instr {
	return b.insert(&Instr{Op: OpCall, Typ: result, Nam: name, Callee: callee, Operands: args})
}
