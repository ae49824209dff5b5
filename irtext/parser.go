// Package irtext parses the textual IR form produced by ir's printers.
// Tests and the command line tool build functions from source strings with
// it instead of constructing instruction lists by hand.
package irtext

import (
	"fmt"
	"strconv"

	"github.com/snitchtools/streamgen/ir"
)

// Parse parses a whole program: global declarations followed by functions.
func Parse(src string) (*ir.Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, prog: &ir.Program{}}
	for !p.at(tokEOF) {
		switch {
		case p.atIdent("global"):
			if err := p.parseGlobal(); err != nil {
				return nil, err
			}
		case p.atIdent("func"):
			f, err := p.parseFunc()
			if err != nil {
				return nil, err
			}
			p.prog.Funcs = append(p.prog.Funcs, f)
		default:
			return nil, p.errf("expected 'func' or 'global', got %s", p.peek())
		}
	}
	return p.prog, nil
}

// ParseFunc parses a source string containing a single function.
func ParseFunc(src string) (*ir.Func, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(prog.Funcs) != 1 {
		return nil, fmt.Errorf("expected exactly one function, got %d", len(prog.Funcs))
	}
	return prog.Funcs[0], nil
}

// forwardRef stands in for a local used before its definition.
type forwardRef struct {
	name string
	typ  ir.Type
}

func (r *forwardRef) Type() ir.Type { return r.typ }
func (r *forwardRef) Ident() string { return "%" + r.name }

type parser struct {
	toks []token
	pos  int
	prog *ir.Program
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) at(k tokenKind) bool { return p.toks[p.pos].kind == k }

func (p *parser) atIdent(s string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) atPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.peek().line, fmt.Sprintf(format, args...))
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return p.errf("expected %q, got %s", s, p.peek())
	}
	p.next()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if !p.at(tokIdent) {
		return "", p.errf("expected identifier, got %s", p.peek())
	}
	return p.next().text, nil
}

func (p *parser) parseType() (ir.Type, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ir.Void, err
	}
	t, ok := ir.TypeByName(name)
	if !ok {
		return ir.Void, p.errf("unknown type %q", name)
	}
	return t, nil
}

func (p *parser) parseGlobal() error {
	p.next() // "global"
	if !p.at(tokGlobal) {
		return p.errf("expected @name after 'global', got %s", p.peek())
	}
	name := p.next().text
	if err := p.expectPunct(":"); err != nil {
		return err
	}
	t, err := p.parseType()
	if err != nil {
		return err
	}
	if p.prog.GlobalByName(name) != nil {
		return fmt.Errorf("duplicate global @%s", name)
	}
	p.prog.Globals = append(p.prog.Globals, &ir.Global{Nam: name, Typ: t})
	return nil
}

type funcParser struct {
	*parser
	f       *ir.Func
	locals  map[string]ir.Value
	blocks  map[string]*ir.Block
	defined map[string]bool
	cur     *ir.Block
}

func (p *parser) parseFunc() (*ir.Func, error) {
	p.next() // "func"
	if !p.at(tokGlobal) {
		return nil, p.errf("expected @name after 'func', got %s", p.peek())
	}
	name := p.next().text
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []*ir.Param
	for !p.atPunct(")") {
		if len(params) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		if !p.at(tokLocal) {
			return nil, p.errf("expected %%param, got %s", p.peek())
		}
		pname := p.next().text
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, &ir.Param{Nam: pname, Typ: t})
	}
	p.next() // ")"
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	fp := &funcParser{
		parser:  p,
		f:       ir.NewFunc(name, params...),
		locals:  make(map[string]ir.Value),
		blocks:  make(map[string]*ir.Block),
		defined: make(map[string]bool),
	}
	for _, prm := range params {
		if !fp.f.RegisterName(prm.Nam) {
			return nil, fmt.Errorf("func @%s: duplicate parameter %%%s", name, prm.Nam)
		}
		fp.locals[prm.Nam] = prm
	}
	if err := fp.parseBody(); err != nil {
		return nil, err
	}
	if err := fp.resolve(); err != nil {
		return nil, err
	}
	return fp.f, nil
}

func (fp *funcParser) parseBody() error {
	for {
		switch {
		case fp.atPunct("}"):
			fp.next()
			return nil
		case fp.at(tokEOF):
			return fp.errf("unexpected end of input inside func @%s", fp.f.Nam)
		case fp.at(tokIdent) && fp.toks[fp.pos+1].kind == tokPunct && fp.toks[fp.pos+1].text == ":":
			label := fp.next().text
			fp.next() // ":"
			if fp.defined[label] {
				return fmt.Errorf("func @%s: duplicate block %q", fp.f.Nam, label)
			}
			fp.defined[label] = true
			fp.cur = fp.block(label)
			fp.f.AddBlock(fp.cur)
		default:
			if fp.cur == nil {
				return fp.errf("instruction before first block label")
			}
			if err := fp.parseInstr(); err != nil {
				return err
			}
		}
	}
}

// block returns the named block, creating a detached one for forward refs.
func (fp *funcParser) block(name string) *ir.Block {
	if b, ok := fp.blocks[name]; ok {
		return b
	}
	b := &ir.Block{Nam: name}
	fp.blocks[name] = b
	return b
}

func (fp *funcParser) blockRef() (*ir.Block, error) {
	name, err := fp.expectIdent()
	if err != nil {
		return nil, err
	}
	return fp.block(name), nil
}

func (fp *funcParser) parseValue(expected ir.Type) (ir.Value, error) {
	t := fp.peek()
	switch t.kind {
	case tokNumber:
		fp.next()
		if t.isFloat || expected == ir.F64 {
			v, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad float %q", t.line, t.text)
			}
			return ir.ConstFloat(v), nil
		}
		v, err := strconv.ParseInt(t.text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad integer %q", t.line, t.text)
		}
		return ir.ConstInt(expected, v), nil
	case tokLocal:
		fp.next()
		if v, ok := fp.locals[t.text]; ok {
			return v, nil
		}
		return &forwardRef{name: t.text, typ: expected}, nil
	case tokGlobal:
		fp.next()
		if g := fp.prog.GlobalByName(t.text); g != nil {
			return g, nil
		}
		g := &ir.Global{Nam: t.text, Typ: ir.Ptr}
		fp.prog.Globals = append(fp.prog.Globals, g)
		return g, nil
	}
	return nil, fp.errf("expected value, got %s", t)
}

func (fp *funcParser) parseInstr() error {
	if fp.at(tokLocal) {
		name := fp.next().text
		if err := fp.expectPunct("="); err != nil {
			return err
		}
		in, err := fp.parseValueInstr()
		if err != nil {
			return err
		}
		if !fp.f.RegisterName(name) {
			return fmt.Errorf("func @%s: duplicate value %%%s", fp.f.Nam, name)
		}
		in.Nam = name
		fp.locals[name] = in
		fp.cur.Append(in)
		return nil
	}
	in, err := fp.parseVoidInstr()
	if err != nil {
		return err
	}
	fp.cur.Append(in)
	return nil
}

func (fp *funcParser) parseValueInstr() (*ir.Instr, error) {
	opName, err := fp.expectIdent()
	if err != nil {
		return nil, err
	}
	switch opName {
	case "phi":
		t, err := fp.parseType()
		if err != nil {
			return nil, err
		}
		in := &ir.Instr{Op: ir.OpPhi, Typ: t}
		for {
			if err := fp.expectPunct("["); err != nil {
				return nil, err
			}
			v, err := fp.parseValue(t)
			if err != nil {
				return nil, err
			}
			if err := fp.expectPunct(","); err != nil {
				return nil, err
			}
			blk, err := fp.blockRef()
			if err != nil {
				return nil, err
			}
			if err := fp.expectPunct("]"); err != nil {
				return nil, err
			}
			in.AddIncoming(v, blk)
			if fp.atPunct(",") && fp.toks[fp.pos+1].kind == tokPunct && fp.toks[fp.pos+1].text == "[" {
				fp.next()
				continue
			}
			break
		}
		return in, nil
	case "icmp":
		predName, err := fp.expectIdent()
		if err != nil {
			return nil, err
		}
		pred, ok := ir.CmpByName(predName)
		if !ok {
			return nil, fp.errf("unknown icmp predicate %q", predName)
		}
		t, err := fp.parseType()
		if err != nil {
			return nil, err
		}
		x, y, err := fp.parsePair(t)
		if err != nil {
			return nil, err
		}
		return &ir.Instr{Op: ir.OpICmp, Cmp: pred, Typ: t, Operands: []ir.Value{x, y}}, nil
	case "load":
		t, err := fp.parseType()
		if err != nil {
			return nil, err
		}
		addr, err := fp.parseValue(ir.Ptr)
		if err != nil {
			return nil, err
		}
		return &ir.Instr{Op: ir.OpLoad, Typ: t, Operands: []ir.Value{addr}}, nil
	case "call":
		return fp.parseCall()
	}
	op, ok := ir.OpByName(opName)
	if !ok || !op.IsBinary() {
		return nil, fp.errf("unknown instruction %q", opName)
	}
	t, err := fp.parseType()
	if err != nil {
		return nil, err
	}
	x, y, err := fp.parsePair(t)
	if err != nil {
		return nil, err
	}
	return &ir.Instr{Op: op, Typ: t, Operands: []ir.Value{x, y}}, nil
}

func (fp *funcParser) parsePair(t ir.Type) (ir.Value, ir.Value, error) {
	x, err := fp.parseValue(t)
	if err != nil {
		return nil, nil, err
	}
	if err := fp.expectPunct(","); err != nil {
		return nil, nil, err
	}
	y, err := fp.parseValue(t)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (fp *funcParser) parseCall() (*ir.Instr, error) {
	t, err := fp.parseType()
	if err != nil {
		return nil, err
	}
	if !fp.at(tokGlobal) {
		return nil, fp.errf("expected @callee, got %s", fp.peek())
	}
	callee := fp.next().text
	if err := fp.expectPunct("("); err != nil {
		return nil, err
	}
	in := &ir.Instr{Op: ir.OpCall, Typ: t, Callee: callee}
	for !fp.atPunct(")") {
		if len(in.Operands) > 0 {
			if err := fp.expectPunct(","); err != nil {
				return nil, err
			}
		}
		// untyped integer call arguments default to i64
		arg, err := fp.parseValue(ir.I64)
		if err != nil {
			return nil, err
		}
		in.Operands = append(in.Operands, arg)
	}
	fp.next() // ")"
	return in, nil
}

func (fp *funcParser) parseVoidInstr() (*ir.Instr, error) {
	opName, err := fp.expectIdent()
	if err != nil {
		return nil, err
	}
	switch opName {
	case "store":
		t, err := fp.parseType()
		if err != nil {
			return nil, err
		}
		v, err := fp.parseValue(t)
		if err != nil {
			return nil, err
		}
		if err := fp.expectPunct(","); err != nil {
			return nil, err
		}
		addr, err := fp.parseValue(ir.Ptr)
		if err != nil {
			return nil, err
		}
		return &ir.Instr{Op: ir.OpStore, Typ: t, Operands: []ir.Value{v, addr}}, nil
	case "call":
		return fp.parseCall()
	case "asm":
		if !fp.at(tokString) {
			return nil, fp.errf("expected string after 'asm', got %s", fp.peek())
		}
		return &ir.Instr{Op: ir.OpAsm, Callee: fp.next().text}, nil
	case "br":
		blk, err := fp.blockRef()
		if err != nil {
			return nil, err
		}
		return &ir.Instr{Op: ir.OpBr, Blocks: []*ir.Block{blk}}, nil
	case "condbr":
		cond, err := fp.parseValue(ir.I1)
		if err != nil {
			return nil, err
		}
		if err := fp.expectPunct(","); err != nil {
			return nil, err
		}
		then, err := fp.blockRef()
		if err != nil {
			return nil, err
		}
		if err := fp.expectPunct(","); err != nil {
			return nil, err
		}
		els, err := fp.blockRef()
		if err != nil {
			return nil, err
		}
		return &ir.Instr{Op: ir.OpCondBr, Operands: []ir.Value{cond}, Blocks: []*ir.Block{then, els}}, nil
	case "ret":
		in := &ir.Instr{Op: ir.OpRet}
		if fp.at(tokLocal) || fp.at(tokGlobal) || fp.at(tokNumber) {
			v, err := fp.parseValue(ir.I64)
			if err != nil {
				return nil, err
			}
			in.Operands = []ir.Value{v}
		}
		return in, nil
	}
	return nil, fp.errf("unknown instruction %q", opName)
}

// resolve patches forward references once every local is known.
func (fp *funcParser) resolve() error {
	for name, b := range fp.blocks {
		if !fp.defined[name] {
			return fmt.Errorf("func @%s: undefined block %q", fp.f.Nam, name)
		}
		_ = b
	}
	for _, b := range fp.f.Blocks {
		for _, in := range b.Insts {
			for k, op := range in.Operands {
				ref, ok := op.(*forwardRef)
				if !ok {
					continue
				}
				v, found := fp.locals[ref.name]
				if !found {
					return fmt.Errorf("func @%s: undefined value %%%s", fp.f.Nam, ref.name)
				}
				in.Operands[k] = v
			}
		}
	}
	return fp.f.Verify()
}
