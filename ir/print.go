package ir

import (
	"fmt"
	"strings"
)

// String renders the program in the textual IR form understood by irtext.
func (p *Program) String() string {
	var b strings.Builder
	for _, g := range p.Globals {
		fmt.Fprintf(&b, "global @%s: %s\n", g.Nam, g.Typ)
	}
	if len(p.Globals) > 0 {
		b.WriteByte('\n')
	}
	for i, f := range p.Funcs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.String())
	}
	return b.String()
}

// String renders the function in the textual IR form.
func (f *Func) String() string {
	var b strings.Builder
	if attrs := f.AttrList(); len(attrs) > 0 {
		fmt.Fprintf(&b, "; attrs: %s\n", strings.Join(attrs, " "))
	}
	b.WriteString("func @")
	b.WriteString(f.Nam)
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%%%s: %s", p.Nam, p.Typ)
	}
	b.WriteString(") {\n")
	for _, blk := range f.Blocks {
		fmt.Fprintf(&b, "%s:\n", blk.Nam)
		for _, in := range blk.Insts {
			b.WriteString("  ")
			b.WriteString(in.String())
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// String renders one instruction.
func (i *Instr) String() string {
	var b strings.Builder
	if i.Type() != Void {
		fmt.Fprintf(&b, "%%%s = ", i.Nam)
	}
	switch i.Op {
	case OpPhi:
		fmt.Fprintf(&b, "phi %s ", i.Typ)
		for k := range i.Operands {
			if k > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "[%s, %s]", operand(i.Operands[k]), blockName(i.Blocks[k]))
		}
	case OpICmp:
		fmt.Fprintf(&b, "icmp %s %s %s, %s", i.Cmp, i.Typ, operand(i.Operands[0]), operand(i.Operands[1]))
	case OpLoad:
		fmt.Fprintf(&b, "load %s %s", i.Typ, operand(i.Operands[0]))
	case OpStore:
		fmt.Fprintf(&b, "store %s %s, %s", i.Typ, operand(i.Operands[0]), operand(i.Operands[1]))
	case OpCall:
		fmt.Fprintf(&b, "call %s @%s(", i.Typ, i.Callee)
		for k, a := range i.Operands {
			if k > 0 {
				b.WriteString(", ")
			}
			b.WriteString(operand(a))
		}
		b.WriteByte(')')
	case OpAsm:
		fmt.Fprintf(&b, "asm %q", i.Callee)
	case OpBr:
		fmt.Fprintf(&b, "br %s", blockName(i.Blocks[0]))
	case OpCondBr:
		fmt.Fprintf(&b, "condbr %s, %s, %s", operand(i.Operands[0]), blockName(i.Blocks[0]), blockName(i.Blocks[1]))
	case OpRet:
		b.WriteString("ret")
		if len(i.Operands) > 0 {
			b.WriteByte(' ')
			b.WriteString(operand(i.Operands[0]))
		}
	default:
		fmt.Fprintf(&b, "%s %s %s, %s", i.Op, i.Typ, operand(i.Operands[0]), operand(i.Operands[1]))
	}
	return b.String()
}

func operand(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Ident()
}

func blockName(b *Block) string {
	if b == nil {
		return "<nil>"
	}
	return b.Nam
}
