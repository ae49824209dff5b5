package affine

import (
	"fmt"

	"github.com/snitchtools/streamgen/ir"
)

// ExprOp is the node kind of a symbolic expression.
type ExprOp uint8

const (
	ExprConst ExprOp = iota
	ExprRef
	ExprAdd
	ExprSub
	ExprMul
	ExprUDiv
)

// Expr is a symbolic integer expression over IR values. Expressions are
// built during analysis, priced via Size, and turned into IR on demand.
// Constructors fold constants so a loop with known bounds yields constant
// stream parameters.
type Expr struct {
	Op   ExprOp
	Val  int64    // ExprConst
	Ref  ir.Value // ExprRef
	X, Y *Expr
}

// NewConst returns a constant expression.
func NewConst(v int64) *Expr { return &Expr{Op: ExprConst, Val: v} }

// NewRef returns an expression referring to an existing IR value. Constant
// values collapse to ExprConst.
func NewRef(v ir.Value) *Expr {
	if c, ok := v.(*ir.Const); ok && c.Typ != ir.F64 {
		return NewConst(c.Int)
	}
	return &Expr{Op: ExprRef, Ref: v}
}

func binExpr(op ExprOp, x, y *Expr) *Expr {
	if x.Op == ExprConst && y.Op == ExprConst {
		switch op {
		case ExprAdd:
			return NewConst(x.Val + y.Val)
		case ExprSub:
			return NewConst(x.Val - y.Val)
		case ExprMul:
			return NewConst(x.Val * y.Val)
		case ExprUDiv:
			if y.Val != 0 {
				return NewConst(int64(uint64(x.Val) / uint64(y.Val)))
			}
		}
	}
	return &Expr{Op: op, X: x, Y: y}
}

// NewAdd returns x+y.
func NewAdd(x, y *Expr) *Expr {
	if x.Op == ExprConst && x.Val == 0 {
		return y
	}
	if y.Op == ExprConst && y.Val == 0 {
		return x
	}
	return binExpr(ExprAdd, x, y)
}

// NewSub returns x-y.
func NewSub(x, y *Expr) *Expr {
	if y.Op == ExprConst && y.Val == 0 {
		return x
	}
	return binExpr(ExprSub, x, y)
}

// NewMul returns x*y.
func NewMul(x, y *Expr) *Expr {
	if x.Op == ExprConst {
		switch x.Val {
		case 0:
			return NewConst(0)
		case 1:
			return y
		}
	}
	if y.Op == ExprConst {
		switch y.Val {
		case 0:
			return NewConst(0)
		case 1:
			return x
		}
	}
	return binExpr(ExprMul, x, y)
}

// NewUDiv returns the unsigned quotient x/y.
func NewUDiv(x, y *Expr) *Expr {
	if y.Op == ExprConst && y.Val == 1 {
		return x
	}
	return binExpr(ExprUDiv, x, y)
}

// ConstVal returns the value of a constant expression.
func (e *Expr) ConstVal() (int64, bool) {
	if e.Op == ExprConst {
		return e.Val, true
	}
	return 0, false
}

// Size counts the nodes of the expression. The selector's gain model uses
// this as a proxy for how much setup code the expression costs to compute.
func (e *Expr) Size() int {
	switch e.Op {
	case ExprConst, ExprRef:
		return 1
	}
	return 1 + e.X.Size() + e.Y.Size()
}

func (e *Expr) String() string {
	switch e.Op {
	case ExprConst:
		return fmt.Sprintf("%d", e.Val)
	case ExprRef:
		return e.Ref.Ident()
	case ExprAdd:
		return fmt.Sprintf("(%s + %s)", e.X, e.Y)
	case ExprSub:
		return fmt.Sprintf("(%s - %s)", e.X, e.Y)
	case ExprMul:
		return fmt.Sprintf("(%s * %s)", e.X, e.Y)
	case ExprUDiv:
		return fmt.Sprintf("(%s /u %s)", e.X, e.Y)
	}
	return "?"
}

// Emit materializes the expression as IR at b's insertion point. Referenced
// values are used as-is; arithmetic is emitted with builder folding, so a
// constant expression produces no instructions.
func (e *Expr) Emit(b *ir.Builder, name string) ir.Value {
	switch e.Op {
	case ExprConst:
		return ir.ConstInt(ir.I64, e.Val)
	case ExprRef:
		return e.Ref
	}
	x := e.X.Emit(b, name)
	y := e.Y.Emit(b, name)
	t := ir.I64
	if x.Type() == ir.Ptr || y.Type() == ir.Ptr {
		t = ir.Ptr
	}
	switch e.Op {
	case ExprAdd:
		return b.Add(t, x, y, name)
	case ExprSub:
		return b.Sub(t, x, y, name)
	case ExprMul:
		return b.Mul(t, x, y, name)
	case ExprUDiv:
		return b.UDiv(t, x, y, name)
	}
	panic("affine: bad expression op")
}
