package ir

import "fmt"

// Op identifies an instruction kind.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpUDiv
	OpAnd
	OpOr
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpICmp
	OpPhi
	OpLoad
	OpStore
	OpCall
	OpAsm
	OpBr
	OpCondBr
	OpRet
)

var opNames = [...]string{
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpUDiv:   "udiv",
	OpAnd:    "and",
	OpOr:     "or",
	OpFAdd:   "fadd",
	OpFSub:   "fsub",
	OpFMul:   "fmul",
	OpFDiv:   "fdiv",
	OpICmp:   "icmp",
	OpPhi:    "phi",
	OpLoad:   "load",
	OpStore:  "store",
	OpCall:   "call",
	OpAsm:    "asm",
	OpBr:     "br",
	OpCondBr: "condbr",
	OpRet:    "ret",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// OpByName returns the op with the given textual name.
func OpByName(name string) (Op, bool) {
	for o, n := range opNames {
		if n == name {
			return Op(o), true
		}
	}
	return 0, false
}

// IsBinary reports whether o is a two-operand arithmetic/logic op.
func (o Op) IsBinary() bool {
	switch o {
	case OpAdd, OpSub, OpMul, OpUDiv, OpAnd, OpOr, OpFAdd, OpFSub, OpFMul, OpFDiv:
		return true
	}
	return false
}

// Cmp is the predicate of an icmp instruction.
type Cmp uint8

const (
	CmpEq Cmp = iota
	CmpNe
	CmpSlt
	CmpSle
	CmpSgt
	CmpSge
	CmpUlt
	CmpUle
	CmpUgt
	CmpUge
)

var cmpNames = [...]string{
	CmpEq:  "eq",
	CmpNe:  "ne",
	CmpSlt: "slt",
	CmpSle: "sle",
	CmpSgt: "sgt",
	CmpSge: "sge",
	CmpUlt: "ult",
	CmpUle: "ule",
	CmpUgt: "ugt",
	CmpUge: "uge",
}

func (c Cmp) String() string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return fmt.Sprintf("cmp(%d)", uint8(c))
}

// CmpByName returns the predicate with the given textual name.
func CmpByName(name string) (Cmp, bool) {
	for c, n := range cmpNames {
		if n == name {
			return Cmp(c), true
		}
	}
	return 0, false
}

// Instr is one instruction. Operand layout by op:
//
//	binary ops:  Operands = [x, y]
//	icmp:        Operands = [x, y], Cmp set
//	phi:         Operands[i] comes from Blocks[i]
//	load:        Operands = [addr], Typ = element type
//	store:       Operands = [value, addr]
//	call:        Operands = args, Callee set, Typ = result (Void for none)
//	asm:         Callee = raw text
//	br:          Blocks = [dest]
//	condbr:      Operands = [cond], Blocks = [then, else]
//	ret:         Operands = [] or [value]
type Instr struct {
	Op       Op
	Cmp      Cmp
	Typ      Type
	Nam      string
	Callee   string
	Operands []Value
	Blocks   []*Block
	blk      *Block
}

func (i *Instr) Type() Type {
	switch i.Op {
	case OpStore, OpBr, OpCondBr, OpRet, OpAsm:
		return Void
	case OpICmp:
		return I1
	}
	return i.Typ
}

func (i *Instr) Name() string  { return i.Nam }
func (i *Instr) Ident() string { return "%" + i.Nam }

// Parent returns the block containing i, or nil if detached.
func (i *Instr) Parent() *Block { return i.blk }

// IsTerm reports whether i is a block terminator.
func (i *Instr) IsTerm() bool {
	return i.Op == OpBr || i.Op == OpCondBr || i.Op == OpRet
}

// IsPhi reports whether i is a phi node.
func (i *Instr) IsPhi() bool { return i.Op == OpPhi }

// Succs returns the successor blocks of a terminator, or nil.
func (i *Instr) Succs() []*Block {
	if i.IsTerm() {
		return i.Blocks
	}
	return nil
}

// Clone returns a detached copy of i. Operand and block references still
// point at the originals; callers remap them.
func (i *Instr) Clone() *Instr {
	c := &Instr{
		Op:     i.Op,
		Cmp:    i.Cmp,
		Typ:    i.Typ,
		Nam:    i.Nam,
		Callee: i.Callee,
	}
	if len(i.Operands) > 0 {
		c.Operands = make([]Value, len(i.Operands))
		copy(c.Operands, i.Operands)
	}
	if len(i.Blocks) > 0 {
		c.Blocks = make([]*Block, len(i.Blocks))
		copy(c.Blocks, i.Blocks)
	}
	return c
}

// Incoming returns the phi value flowing in from pred, or nil.
func (i *Instr) Incoming(pred *Block) Value {
	for k, b := range i.Blocks {
		if b == pred {
			return i.Operands[k]
		}
	}
	return nil
}

// AddIncoming appends an incoming (value, pred) pair to a phi.
func (i *Instr) AddIncoming(v Value, pred *Block) {
	i.Operands = append(i.Operands, v)
	i.Blocks = append(i.Blocks, pred)
}

// RemoveIncoming removes the incoming pair for pred and returns its value.
func (i *Instr) RemoveIncoming(pred *Block) Value {
	for k, b := range i.Blocks {
		if b == pred {
			v := i.Operands[k]
			i.Operands = append(i.Operands[:k], i.Operands[k+1:]...)
			i.Blocks = append(i.Blocks[:k], i.Blocks[k+1:]...)
			return v
		}
	}
	return nil
}
