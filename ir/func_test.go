package ir_test

import (
	"testing"

	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/irtext"
)

func TestSplitBefore(t *testing.T) {
	src := `
func @f(%x: i64) {
entry:
	%a = add i64 %x, 1
	%b = add i64 %a, 2
	ret %b
}
`
	f, err := irtext.ParseFunc(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	entry := f.BlockByName("entry")
	b := entry.Insts[1]

	one, two := f.SplitBefore(b, "front")
	if err := f.Verify(); err != nil {
		t.Fatalf("split function does not verify: %v", err)
	}
	if two != entry {
		t.Error("the split instruction keeps its original block")
	}
	if one.Name() != "front" {
		t.Errorf("new block named %q, want front", one.Name())
	}
	if f.Blocks[0] != one {
		t.Error("new block should take the original block's position")
	}
	if len(one.Insts) != 2 || one.Insts[0].Name() != "a" || one.Insts[1].Op != ir.OpBr {
		t.Error("prefix and branch should move to the new block")
	}
	if len(two.Insts) != 2 || two.Insts[0] != b {
		t.Error("the remainder starts at the split instruction")
	}
	for _, in := range one.Insts {
		if in.Parent() != one {
			t.Error("moved instruction keeps a stale parent")
		}
	}
}

func TestSplitBeforeRedirectsPreds(t *testing.T) {
	src := `
func @g(%c: i1) {
entry:
	condbr %c, mid, other
other:
	br mid
mid:
	%v = add i64 1, 2
	ret %v
}
`
	f, err := irtext.ParseFunc(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	mid := f.BlockByName("mid")
	one, _ := f.SplitBefore(mid.Insts[len(mid.Insts)-1], "mid.head")
	if err := f.Verify(); err != nil {
		t.Fatalf("split function does not verify: %v", err)
	}

	for _, name := range []string{"entry", "other"} {
		for _, s := range f.BlockByName(name).Succs() {
			if s == mid {
				t.Errorf("%s still branches past the split block", name)
			}
		}
	}
	if preds := f.Preds(mid); len(preds) != 1 || preds[0] != one {
		t.Error("only the new block may enter the remainder")
	}
}

func TestValueNameUniquing(t *testing.T) {
	f, err := irtext.ParseFunc("func @h() {\nentry:\n\t%v = add i64 1, 2\n\tret\n}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	n1 := f.ValueName("v")
	n2 := f.ValueName("v")
	if n1 == "v" || n2 == "v" || n1 == n2 {
		t.Errorf("names %q and %q should be fresh and distinct", n1, n2)
	}
	if got := f.ValueName("w"); got != "w" {
		t.Errorf("unused base should be taken as is, got %q", got)
	}
}

func TestReplaceUsesOutsideBlock(t *testing.T) {
	src := `
func @r(%x: i64) {
entry:
	%a = add i64 %x, 1
	%b = add i64 %a, 2
	br next
next:
	%c = add i64 %a, 3
	ret %c
}
`
	f, err := irtext.ParseFunc(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	entry := f.BlockByName("entry")
	a := entry.Insts[0]
	repl := ir.ConstInt(ir.I64, 7)

	f.ReplaceUsesOutsideBlock(a, repl, entry)

	if entry.Insts[1].Operands[0] != ir.Value(a) {
		t.Error("use inside the excluded block must stay")
	}
	c := f.BlockByName("next").Insts[0]
	if c.Operands[0] != ir.Value(repl) {
		t.Error("use outside the excluded block must be replaced")
	}
}
