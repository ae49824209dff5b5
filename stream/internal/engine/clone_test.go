package engine

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/snitchtools/streamgen/errors"
	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/irtext"
)

const sumSrc = `
func @sum(%x: ptr, %n: i64) {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%acc = phi f64 [0.0, entry], [%acc.next, loop]
	%off = mul i64 %i, 8
	%p = add ptr %x, %off
	%v = load f64 %p
	%acc.next = fadd f64 %acc, %v
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i.next, %n
	condbr %c, loop, exit
exit:
	%res = phi f64 [%acc.next, loop]
	ret %res
}
`

func cloneSum(t *testing.T) (*ir.Func, *ir.Instr, *ir.Instr) {
	t.Helper()
	f, err := irtext.ParseFunc(sumSrc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	begin := f.BlockByName("entry").Term()
	end := f.BlockByName("exit").FirstInsertion()
	guard, fuseTerm, err := cloneRegion(f, begin, end)
	if err != nil {
		t.Fatalf("cloneRegion failed: %v", err)
	}
	return f, guard, fuseTerm
}

func TestCloneRegionStructure(t *testing.T) {
	f, guard, fuseTerm := cloneSum(t)

	if err := f.Verify(); err != nil {
		t.Fatalf("cloned function does not verify: %v", err)
	}
	if guard.Op != ir.OpCondBr {
		t.Fatalf("guard is %s, want condbr", guard.Op)
	}
	if c, ok := guard.Operands[0].(*ir.Const); !ok || !c.IsZero() {
		t.Error("guard placeholder condition should be constant false")
	}
	if got := guard.Blocks[0].Name(); got != "entry" {
		t.Errorf("guard true target = %q, want entry", got)
	}
	if got := guard.Blocks[1].Name(); got != "entry.clone" {
		t.Errorf("guard false target = %q, want entry.clone", got)
	}
	if got := fuseTerm.Parent().Name(); got != "fuse.prep" {
		t.Errorf("fuse terminator lives in %q, want fuse.prep", got)
	}

	// entry, loop and fuse.prep each get a clone
	if len(f.Blocks) != 8 {
		t.Errorf("block count = %d, want 8", len(f.Blocks))
	}
	for _, name := range []string{"loop.clone", "fuse.prep.clone"} {
		if f.BlockByName(name) == nil {
			t.Errorf("missing cloned block %q", name)
		}
	}
}

func TestCloneRegionJoinPhis(t *testing.T) {
	f, _, _ := cloneSum(t)

	exit := f.BlockByName("exit")
	phis := exit.Phis()
	if len(phis) != 1 {
		t.Fatalf("join block has %d phis, want 1", len(phis))
	}
	shadow := phis[0]
	if len(shadow.Operands) != 2 {
		t.Fatalf("shadow phi has %d incomings, want 2", len(shadow.Operands))
	}
	orig := f.BlockByName("fuse.prep")
	clone := f.BlockByName("fuse.prep.clone")
	if shadow.Incoming(orig) == nil || shadow.Incoming(clone) == nil {
		t.Error("shadow phi should merge both copies of the region")
	}

	// the return value flows through the shadow
	ret := exit.Term()
	if len(ret.Operands) != 1 || ret.Operands[0] != ir.Value(shadow) {
		t.Error("return does not use the shadow phi")
	}
}

func TestCloneRegionIsolatedCopies(t *testing.T) {
	f, _, _ := cloneSum(t)

	// nothing in a cloned block may reference an instruction of the
	// original region
	origDefs := make(map[ir.Value]bool)
	for _, name := range []string{"entry", "loop", "fuse.prep"} {
		for _, in := range f.BlockByName(name).Insts {
			origDefs[in] = true
		}
	}
	for _, name := range []string{"entry.clone", "loop.clone", "fuse.prep.clone"} {
		for _, in := range f.BlockByName(name).Insts {
			for _, op := range in.Operands {
				if origDefs[op] {
					t.Errorf("clone instruction %s references original %s",
						in.Ident(), op.Ident())
				}
			}
			for _, blk := range in.Blocks {
				if blk != f.BlockByName("exit") && !strings.HasSuffix(blk.Name(), ".clone") {
					t.Errorf("clone branches to original block %s", blk.Name())
				}
			}
		}
	}
}

func TestCloneRegionRejectsEscapingValues(t *testing.T) {
	src := `
func @esc(%x: ptr, %n: i64) {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i.next, %n
	condbr %c, loop, exit
exit:
	%z = add i64 %i.next, 4
	ret %z
}
`
	f, err := irtext.ParseFunc(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	begin := f.BlockByName("entry").Term()
	end := f.BlockByName("exit").FirstInsertion()
	_, _, err = cloneRegion(f, begin, end)
	if err == nil {
		t.Fatal("expected an error for a region value escaping to the exit")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindMalformedRegion {
		t.Errorf("error = %v, want malformed region", err)
	}
}
