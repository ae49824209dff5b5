package ir_test

import (
	"testing"

	"github.com/snitchtools/streamgen/irtext"
)

func TestPrintRoundTrip(t *testing.T) {
	src := `global @buf: f64

func @kernel(%a: f64, %x: ptr, %n: i64) {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%acc = phi f64 [0.0, entry], [%acc.next, loop]
	%off = mul i64 %i, 8
	%p = add ptr %x, %off
	%v = load f64 %p
	%q = add ptr @buf, %off
	store f64 %v, %q
	%m = fmul f64 %a, %v
	%acc.next = fadd f64 %acc, %m
	%r = call f64 @ssr.pop(0)
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i, %n
	condbr %c, loop, exit
exit:
	%res = phi f64 [%acc.next, loop]
	asm "fence"
	ret %res
}
`
	prog, err := irtext.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	first := prog.String()
	prog2, err := irtext.Parse(first)
	if err != nil {
		t.Fatalf("reparse failed: %v\n%s", err, first)
	}
	second := prog2.String()
	if first != second {
		t.Errorf("print is not a fixed point:\n--- first\n%s--- second\n%s", first, second)
	}
}
