package ir_test

import (
	"testing"

	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/irtext"
)

const diamondSrc = `
func @diamond(%c: i1) {
entry:
	condbr %c, left, right
left:
	br join
right:
	br join
join:
	ret
}
`

func TestDominators(t *testing.T) {
	f, err := irtext.ParseFunc(diamondSrc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	dt := ir.Dominators(f)

	entry := f.BlockByName("entry")
	left := f.BlockByName("left")
	right := f.BlockByName("right")
	join := f.BlockByName("join")

	if dt.IDom(join) != entry {
		t.Errorf("idom(join) = %v, want entry", dt.IDom(join))
	}
	if dt.IDom(left) != entry || dt.IDom(right) != entry {
		t.Error("branch arms should be dominated by entry directly")
	}
	if !dt.Dominates(entry, join) {
		t.Error("entry dominates everything")
	}
	if dt.Dominates(left, join) {
		t.Error("join is reachable around left")
	}
	if !dt.Dominates(join, join) {
		t.Error("dominance is reflexive")
	}
}

func TestDominatorsUnreachable(t *testing.T) {
	src := `
func @dead() {
entry:
	ret
island:
	br island
}
`
	f, err := irtext.ParseFunc(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	dt := ir.Dominators(f)
	if !dt.Reachable(f.BlockByName("entry")) {
		t.Error("entry must be reachable")
	}
	if dt.Reachable(f.BlockByName("island")) {
		t.Error("island has no path from entry")
	}
}

func TestDominatorsLoopBody(t *testing.T) {
	src := `
func @loop(%n: i64) {
entry:
	br hdr
hdr:
	%i = phi i64 [0, entry], [%i.next, body]
	%c = icmp slt i64 %i, %n
	condbr %c, body, exit
body:
	%i.next = add i64 %i, 1
	br hdr
exit:
	ret
}
`
	f, err := irtext.ParseFunc(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	dt := ir.Dominators(f)
	hdr := f.BlockByName("hdr")
	if dt.IDom(f.BlockByName("body")) != hdr || dt.IDom(f.BlockByName("exit")) != hdr {
		t.Error("header dominates both the body and the exit")
	}
	if dt.Dominates(f.BlockByName("body"), hdr) {
		t.Error("the body does not dominate the header it branches back to")
	}
}
