package engine

import (
	"strings"
	"testing"

	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/irtext"
)

func transform(t *testing.T, src string, cfg Config) (*ir.Program, bool) {
	t.Helper()
	prog, err := irtext.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	cfg.Infer = true
	e := New(cfg, prog)
	changed, err := e.Transform()
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	for _, f := range prog.Funcs {
		if err := f.Verify(); err != nil {
			t.Fatalf("function %s does not verify after transform: %v", f.Name(), err)
		}
	}
	return prog, changed
}

const globalCopySrc = `
func @gcopy() {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%off = mul i64 %i, 8
	%p = add ptr @src, %off
	%v = load f64 %p
	%q = add ptr @dst, %off
	store f64 %v, %q
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i, 128
	condbr %c, loop, exit
exit:
	ret
}
`

func TestTransformStaticallySafeLoop(t *testing.T) {
	// distinct globals cannot intersect and the trip count is constant, so
	// with the scratchpad check off nothing needs a runtime guard
	prog, changed := transform(t, globalCopySrc, Config{NoScratchpadCheck: true})
	if !changed {
		t.Fatal("expected a change")
	}
	f := prog.Funcs[0]
	if !f.HasAttr(AttrStream) {
		t.Error("transformed function not marked")
	}

	out := f.String()
	for _, want := range []string{
		"@ssr.setup_bound_stride_1d(0, 127, 8)",
		"@ssr.setup_bound_stride_1d(1, 127, 8)",
		"@ssr.read_imm(0, 0, @src)",
		"@ssr.write_imm(1, 0, @dst)",
		"call f64 @ssr.pop(0)",
		"@ssr.push(1, %v)",
		"@ssr.enable()",
		"@ssr.disable()",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	// nothing left to guard, so no region was duplicated
	if strings.Contains(out, ".clone") {
		t.Errorf("unexpected clone in statically safe loop\n%s", out)
	}
	if strings.Contains(out, "load f64") || strings.Contains(out, "store f64") {
		t.Errorf("memory accesses survived streaming\n%s", out)
	}
}

func TestTransformScratchpadGuardClones(t *testing.T) {
	prog, changed := transform(t, globalCopySrc, Config{})
	if !changed {
		t.Fatal("expected a change")
	}
	f := prog.Funcs[0]
	out := f.String()

	// the scratchpad range is unknown for globals, so the loop is
	// duplicated behind the range test and the plain copy survives
	if f.BlockByName("loop.clone") == nil {
		t.Fatalf("missing fallback copy of the loop\n%s", out)
	}
	for _, want := range []string{"beg.check", "end.check", "tcdm.check", "load f64", "call f64 @ssr.pop(0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestTransformIdempotent(t *testing.T) {
	prog, changed := transform(t, globalCopySrc, Config{NoScratchpadCheck: true})
	if !changed {
		t.Fatal("expected a change on the first run")
	}
	e := New(Config{Infer: true, NoScratchpadCheck: true}, prog)
	changed, err := e.Transform()
	if err != nil {
		t.Fatalf("second transform failed: %v", err)
	}
	if changed {
		t.Error("second run changed an already transformed function")
	}
}

func TestTransformRequiresInfer(t *testing.T) {
	prog, err := irtext.Parse(globalCopySrc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	e := New(Config{NoScratchpadCheck: true}, prog)
	changed, err := e.Transform()
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if changed {
		t.Error("engine transformed without the inference flag")
	}
}

func TestTransformSkipsTaintedLoop(t *testing.T) {
	src := `
func @manual() {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%off = mul i64 %i, 8
	%p = add ptr @src, %off
	%v = load f64 %p
	call void @ssr.enable()
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i, 128
	condbr %c, loop, exit
exit:
	ret
}
`
	_, changed := transform(t, src, Config{NoScratchpadCheck: true})
	if changed {
		t.Error("loop already driving streams was transformed")
	}
}

func TestTransformChannelCap(t *testing.T) {
	src := `
func @wide() {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%off = mul i64 %i, 8
	%p1 = add ptr @a, %off
	%v1 = load f64 %p1
	%p2 = add ptr @b, %off
	%v2 = load f64 %p2
	%p3 = add ptr @c, %off
	%v3 = load f64 %p3
	%p4 = add ptr @d, %off
	%v4 = load f64 %p4
	%s1 = fadd f64 %v1, %v2
	%s2 = fadd f64 %v3, %v4
	%s = fadd f64 %s1, %s2
	store f64 %s, %p4
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i, 128
	condbr %c, loop, exit
exit:
	ret
}
`
	prog, changed := transform(t, src, Config{NoScratchpadCheck: true, NoIntersectCheck: true})
	if !changed {
		t.Fatal("expected a change")
	}
	out := prog.Funcs[0].String()
	// only three channels exist; reads rank before the write
	if got := strings.Count(out, "@ssr.read_imm("); got != 3 {
		t.Errorf("read_imm count = %d, want 3\n%s", got, out)
	}
	if strings.Contains(out, "@ssr.write_imm(") {
		t.Errorf("write streamed although reads fill all channels\n%s", out)
	}
	if !strings.Contains(out, "store f64 %s, %p4") {
		t.Errorf("unstreamed store should survive untouched\n%s", out)
	}
}

func TestTransformTwoDimTelescope(t *testing.T) {
	src := `
func @copy2d() {
entry:
	br i.ph
i.ph:
	br i.hdr
i.hdr:
	%i = phi i64 [0, i.ph], [%i.next, i.latch]
	%ic = icmp slt i64 %i, 8
	condbr %ic, j.ph, exit
j.ph:
	br j.hdr
j.hdr:
	%j = phi i64 [0, j.ph], [%j.next, j.body]
	%jc = icmp slt i64 %j, 16
	condbr %jc, j.body, i.latch
j.body:
	%ro = mul i64 %i, 128
	%co = mul i64 %j, 8
	%o1 = add i64 %ro, %co
	%p = add ptr @src, %o1
	%v = load f64 %p
	%q = add ptr @dst, %o1
	store f64 %v, %q
	%j.next = add i64 %j, 1
	br j.hdr
i.latch:
	%i.next = add i64 %i, 1
	br i.hdr
exit:
	ret
}
`
	prog, changed := transform(t, src, Config{NoScratchpadCheck: true})
	if !changed {
		t.Fatal("expected a change")
	}
	out := prog.Funcs[0].String()

	// inner dimension walks 16 elements of 8 bytes; the outer stride
	// telescopes to 128 - 15*8 = 8
	for _, want := range []string{
		"@ssr.setup_bound_stride_1d(0, 15, 8)",
		"@ssr.setup_bound_stride_2d(0, 7, 8)",
		"@ssr.read_imm(0, 1, @src)",
		"@ssr.write_imm(1, 1, @dst)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestTransformThreeDimTelescope(t *testing.T) {
	src := `
func @copy3d() {
entry:
	br i.ph
i.ph:
	br i.hdr
i.hdr:
	%i = phi i64 [0, i.ph], [%i.next, i.latch]
	%ic = icmp slt i64 %i, 2
	condbr %ic, j.ph, exit
j.ph:
	br j.hdr
j.hdr:
	%j = phi i64 [0, j.ph], [%j.next, j.latch]
	%jc = icmp slt i64 %j, 8
	condbr %jc, k.ph, i.latch
k.ph:
	br k.hdr
k.hdr:
	%k = phi i64 [0, k.ph], [%k.next, k.body]
	%kc = icmp slt i64 %k, 4
	condbr %kc, k.body, j.latch
k.body:
	%io = mul i64 %i, 1024
	%jo = mul i64 %j, 64
	%ko = mul i64 %k, 8
	%o1 = add i64 %io, %jo
	%o2 = add i64 %o1, %ko
	%p = add ptr @src, %o2
	%v = load f64 %p
	%q = add ptr @dst, %o2
	store f64 %v, %q
	%k.next = add i64 %k, 1
	br k.hdr
j.latch:
	%j.next = add i64 %j, 1
	br j.hdr
i.latch:
	%i.next = add i64 %i, 1
	br i.hdr
exit:
	ret
}
`
	prog, changed := transform(t, src, Config{NoScratchpadCheck: true})
	if !changed {
		t.Fatal("expected a change")
	}
	out := prog.Funcs[0].String()

	// each outer stride drops the distance the dimensions below already
	// walked: 64 - 3*8 = 40, then 1024 - (3*8 + 7*64) = 552
	for _, want := range []string{
		"@ssr.setup_bound_stride_1d(0, 3, 8)",
		"@ssr.setup_bound_stride_2d(0, 7, 40)",
		"@ssr.setup_bound_stride_3d(0, 1, 552)",
		"@ssr.read_imm(0, 2, @src)",
		"@ssr.setup_bound_stride_3d(1, 1, 552)",
		"@ssr.write_imm(1, 2, @dst)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestTransformFourDimTelescope(t *testing.T) {
	src := `
func @copy4d() {
entry:
	br x.ph
x.ph:
	br x.hdr
x.hdr:
	%x = phi i64 [0, x.ph], [%x.next, x.latch]
	%xc = icmp slt i64 %x, 3
	condbr %xc, y.ph, exit
y.ph:
	br y.hdr
y.hdr:
	%y = phi i64 [0, y.ph], [%y.next, y.latch]
	%yc = icmp slt i64 %y, 2
	condbr %yc, z.ph, x.latch
z.ph:
	br z.hdr
z.hdr:
	%z = phi i64 [0, z.ph], [%z.next, z.latch]
	%zc = icmp slt i64 %z, 8
	condbr %zc, w.ph, y.latch
w.ph:
	br w.hdr
w.hdr:
	%w = phi i64 [0, w.ph], [%w.next, w.body]
	%wc = icmp slt i64 %w, 4
	condbr %wc, w.body, z.latch
w.body:
	%xo = mul i64 %x, 4096
	%yo = mul i64 %y, 1024
	%zo = mul i64 %z, 64
	%wo = mul i64 %w, 8
	%o1 = add i64 %xo, %yo
	%o2 = add i64 %o1, %zo
	%o3 = add i64 %o2, %wo
	%p = add ptr @src, %o3
	%v = load f64 %p
	%q = add ptr @dst, %o3
	store f64 %v, %q
	%w.next = add i64 %w, 1
	br w.hdr
z.latch:
	%z.next = add i64 %z, 1
	br z.hdr
y.latch:
	%y.next = add i64 %y, 1
	br y.hdr
x.latch:
	%x.next = add i64 %x, 1
	br x.hdr
exit:
	ret
}
`
	prog, changed := transform(t, src, Config{NoScratchpadCheck: true})
	if !changed {
		t.Fatal("expected a change")
	}
	out := prog.Funcs[0].String()

	// 4096 - (3*8 + 7*64 + 1*1024) = 2600 for the outermost dimension
	for _, want := range []string{
		"@ssr.setup_bound_stride_1d(0, 3, 8)",
		"@ssr.setup_bound_stride_2d(0, 7, 40)",
		"@ssr.setup_bound_stride_3d(0, 1, 552)",
		"@ssr.setup_bound_stride_4d(0, 2, 2600)",
		"@ssr.read_imm(0, 3, @src)",
		"@ssr.write_imm(1, 3, @dst)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestTransformInnerLoopWins(t *testing.T) {
	// the outer loop carries a non-affine call, so only the inner loop
	// can stream; selection must settle on it rather than give up
	src := `
func @mixed(%n: i64) {
entry:
	br i.hdr
i.hdr:
	%i = phi i64 [0, entry], [%i.next, i.latch]
	%ic = icmp slt i64 %i, %n
	condbr %ic, pre, exit
pre:
	call void @tick()
	br j.hdr
j.hdr:
	%j = phi i64 [0, pre], [%j.next, j.body]
	%jc = icmp slt i64 %j, 64
	condbr %jc, j.body, i.latch
j.body:
	%off = mul i64 %j, 8
	%p = add ptr @buf, %off
	%v = load f64 %p
	%v2 = fadd f64 %v, %v
	store f64 %v2, %p
	%j.next = add i64 %j, 1
	br j.hdr
i.latch:
	%i.next = add i64 %i, 1
	br i.hdr
exit:
	ret
}
`
	prog, changed := transform(t, src, Config{NoScratchpadCheck: true})
	if !changed {
		t.Fatal("expected the inner loop to stream")
	}
	out := prog.Funcs[0].String()
	if !strings.Contains(out, "@ssr.read_imm(0, 0, @buf)") {
		t.Errorf("inner loop not streamed\n%s", out)
	}
	if !strings.Contains(out, "call void @tick()") {
		t.Errorf("outer loop call disappeared\n%s", out)
	}
}

func TestTransformConflictFreeOnly(t *testing.T) {
	src := `
func @inc(%x: ptr, %n: i64) {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%off = mul i64 %i, 8
	%p = add ptr %x, %off
	%v = load f64 %p
	%v2 = fadd f64 %v, %v
	store f64 %v2, %p
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i, %n
	condbr %c, loop, exit
exit:
	ret
}
`
	// read and write of the same array conflict, so conflict-free mode
	// leaves the loop alone
	_, changed := transform(t, src, Config{ConflictFreeOnly: true})
	if changed {
		t.Error("conflicting accesses streamed in conflict-free mode")
	}
}

func TestTransformBarrier(t *testing.T) {
	prog, changed := transform(t, globalCopySrc, Config{NoScratchpadCheck: true, Barrier: true})
	if !changed {
		t.Fatal("expected a change")
	}
	out := prog.Funcs[0].String()
	if got := strings.Count(out, "@ssr.barrier("); got != 2 {
		t.Errorf("barrier count = %d, want one per channel\n%s", got, out)
	}
	if !strings.Contains(out, "@ssr.barrier(0)") || !strings.Contains(out, "@ssr.barrier(1)") {
		t.Errorf("barriers should name their own channel\n%s", out)
	}
}

func TestTransformSkipsLoopResultUsedPastExit(t *testing.T) {
	// %i.next is read after the loop without going through an exit phi,
	// so the region cannot be duplicated; the loop must be refused
	// before anything is emitted, leaving the function untouched
	src := `
func @escape() {
entry:
	br loop
loop:
	%i = phi i64 [0, entry], [%i.next, loop]
	%off = mul i64 %i, 8
	%p = add ptr @src, %off
	%v = load f64 %p
	%q = add ptr @dst, %off
	store f64 %v, %q
	%i.next = add i64 %i, 1
	%c = icmp slt i64 %i, 128
	condbr %c, loop, exit
exit:
	ret %i.next
}
`
	pristine, err := irtext.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	prog, changed := transform(t, src, Config{})
	if changed {
		t.Error("refused loop still reported a change")
	}
	if prog.Funcs[0].HasAttr(AttrStream) {
		t.Error("refused function marked as streaming")
	}
	if got, want := prog.String(), pristine.String(); got != want {
		t.Errorf("refused function was mutated:\n%s", got)
	}
}

func TestTransformSkipsOnlyTheEscapingLoop(t *testing.T) {
	// the first loop's counter escapes past its exit, the second loop is
	// clean; refusing the first must not cost the second its streams
	src := `
func @partial() {
entry:
	br l1
l1:
	%i = phi i64 [0, entry], [%i.next, l1]
	%off = mul i64 %i, 8
	%p = add ptr @a, %off
	%v = load f64 %p
	%q = add ptr @b, %off
	store f64 %v, %q
	%i.next = add i64 %i, 1
	%c1 = icmp slt i64 %i, 128
	condbr %c1, l1, mid
mid:
	%m = add i64 %i.next, 0
	br l2
l2:
	%j = phi i64 [0, mid], [%j.next, l2]
	%joff = mul i64 %j, 8
	%jp = add ptr @c, %joff
	%jv = load f64 %jp
	%jq = add ptr @d, %joff
	store f64 %jv, %jq
	%j.next = add i64 %j, 1
	%c2 = icmp slt i64 %j, 128
	condbr %c2, l2, exit
exit:
	ret
}
`
	prog, changed := transform(t, src, Config{})
	if !changed {
		t.Fatal("clean loop should still stream")
	}
	f := prog.Funcs[0]
	out := f.String()

	if f.BlockByName("l1.clone") != nil {
		t.Errorf("loop with escaping value was cloned\n%s", out)
	}
	if f.BlockByName("l2.clone") == nil {
		t.Fatalf("clean loop not cloned\n%s", out)
	}
	if got := strings.Count(out, "@ssr.read_imm("); got != 1 {
		t.Errorf("read_imm count = %d, want 1\n%s", got, out)
	}
	if !strings.Contains(out, "@ssr.read_imm(0, 0, @c)") {
		t.Errorf("clean loop missing its read stream\n%s", out)
	}
	if !strings.Contains(out, "%v = load f64 %p") {
		t.Errorf("refused loop's load should survive untouched\n%s", out)
	}
}

func TestTransformNoInline(t *testing.T) {
	prog, changed := transform(t, globalCopySrc, Config{NoScratchpadCheck: true, NoInline: true})
	if !changed {
		t.Fatal("expected a change")
	}
	if !prog.Funcs[0].HasAttr(AttrNoInline) {
		t.Error("transformed function not marked noinline")
	}
}
