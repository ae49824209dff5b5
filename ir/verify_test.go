package ir_test

import (
	"strings"
	"testing"

	"github.com/snitchtools/streamgen/ir"
)

func TestVerifyUnterminatedBlock(t *testing.T) {
	f := ir.NewFunc("bad")
	b := f.NewBlock("entry")
	b.Append(&ir.Instr{Op: ir.OpAdd, Typ: ir.I64, Nam: "v",
		Operands: []ir.Value{ir.ConstInt(ir.I64, 1), ir.ConstInt(ir.I64, 2)}})

	err := f.Verify()
	if err == nil || !strings.Contains(err.Error(), "not terminated") {
		t.Errorf("error = %v, want unterminated block", err)
	}
}

func TestVerifyPhiAfterNonPhi(t *testing.T) {
	f := ir.NewFunc("bad")
	b := f.NewBlock("entry")
	b.Append(&ir.Instr{Op: ir.OpAdd, Typ: ir.I64, Nam: "v",
		Operands: []ir.Value{ir.ConstInt(ir.I64, 1), ir.ConstInt(ir.I64, 2)}})
	b.Append(&ir.Instr{Op: ir.OpPhi, Typ: ir.I64, Nam: "p"})
	b.Append(&ir.Instr{Op: ir.OpRet})

	err := f.Verify()
	if err == nil || !strings.Contains(err.Error(), "phi") {
		t.Errorf("error = %v, want phi placement", err)
	}
}

func TestVerifyPhiArity(t *testing.T) {
	f := ir.NewFunc("bad")
	b := f.NewBlock("entry")
	phi := &ir.Instr{Op: ir.OpPhi, Typ: ir.I64, Nam: "p",
		Operands: []ir.Value{ir.ConstInt(ir.I64, 0)}}
	b.Append(phi)
	b.Append(&ir.Instr{Op: ir.OpRet})

	err := f.Verify()
	if err == nil || !strings.Contains(err.Error(), "arity") {
		t.Errorf("error = %v, want phi arity", err)
	}
}

func TestVerifyMisplacedTerminator(t *testing.T) {
	f := ir.NewFunc("bad")
	b := f.NewBlock("entry")
	b.Append(&ir.Instr{Op: ir.OpRet})
	b.Append(&ir.Instr{Op: ir.OpRet})

	err := f.Verify()
	if err == nil || !strings.Contains(err.Error(), "not last") {
		t.Errorf("error = %v, want misplaced terminator", err)
	}
}

func TestVerifyNilOperand(t *testing.T) {
	f := ir.NewFunc("bad")
	b := f.NewBlock("entry")
	b.Append(&ir.Instr{Op: ir.OpRet, Operands: []ir.Value{nil}})

	err := f.Verify()
	if err == nil || !strings.Contains(err.Error(), "nil") {
		t.Errorf("error = %v, want nil operand", err)
	}
}

func TestVerifyOK(t *testing.T) {
	f := ir.NewFunc("ok")
	b := f.NewBlock("entry")
	b.Append(&ir.Instr{Op: ir.OpRet})
	if err := f.Verify(); err != nil {
		t.Errorf("minimal function should verify: %v", err)
	}
}
