package ir

import (
	"fmt"
	"sort"
)

// Func is one function: parameters, blocks (Blocks[0] is the entry), and
// string attributes used to tag pass results.
type Func struct {
	Nam     string
	Params  []*Param
	Blocks  []*Block
	Attrs   map[string]bool
	nameSeq map[string]int
}

// NewFunc creates an empty function.
func NewFunc(name string, params ...*Param) *Func {
	return &Func{
		Nam:     name,
		Params:  params,
		Attrs:   make(map[string]bool),
		nameSeq: make(map[string]int),
	}
}

func (f *Func) Name() string { return f.Nam }

// Entry returns the entry block, or nil for a declaration.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// HasAttr reports whether the attribute is set.
func (f *Func) HasAttr(name string) bool { return f.Attrs[name] }

// SetAttr sets a function attribute.
func (f *Func) SetAttr(name string) {
	if f.Attrs == nil {
		f.Attrs = make(map[string]bool)
	}
	f.Attrs[name] = true
}

// AttrList returns the set attributes in sorted order.
func (f *Func) AttrList() []string {
	var out []string
	for a, ok := range f.Attrs {
		if ok {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// NewBlock appends a new block with a unique name derived from name.
func (f *Func) NewBlock(name string) *Block {
	b := &Block{Nam: f.uniqueBlockName(name), fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewBlockBefore creates a new block placed immediately before pos in the
// function's block list.
func (f *Func) NewBlockBefore(name string, pos *Block) *Block {
	b := &Block{Nam: f.uniqueBlockName(name), fn: f}
	for i, bb := range f.Blocks {
		if bb == pos {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[i+1:], f.Blocks[i:])
			f.Blocks[i] = b
			return b
		}
	}
	f.Blocks = append(f.Blocks, b)
	return b
}

// AddBlock appends an existing detached block (used by the text parser).
func (f *Func) AddBlock(b *Block) *Block {
	b.fn = f
	f.Blocks = append(f.Blocks, b)
	f.claimName(b.Nam)
	return b
}

// BlockByName returns the block with the given name, or nil.
func (f *Func) BlockByName(name string) *Block {
	for _, b := range f.Blocks {
		if b.Nam == name {
			return b
		}
	}
	return nil
}

// Preds returns the predecessor blocks of b in block-list order.
func (f *Func) Preds(b *Block) []*Block {
	var preds []*Block
	for _, p := range f.Blocks {
		for _, s := range p.Succs() {
			if s == b {
				preds = append(preds, p)
				break
			}
		}
	}
	return preds
}

// ValueName returns a function-unique value name derived from base.
func (f *Func) ValueName(base string) string {
	if base == "" {
		base = "v"
	}
	return f.claimName(base)
}

func (f *Func) uniqueBlockName(base string) string {
	if base == "" {
		base = "bb"
	}
	return f.claimName(base)
}

// claimName reserves base, appending a numeric suffix on collision. Value and
// block names share one namespace; the printer relies on that.
func (f *Func) claimName(base string) string {
	if f.nameSeq == nil {
		f.nameSeq = make(map[string]int)
	}
	n, taken := f.nameSeq[base]
	if !taken {
		f.nameSeq[base] = 1
		return base
	}
	for {
		cand := fmt.Sprintf("%s%d", base, n)
		n++
		if _, clash := f.nameSeq[cand]; !clash {
			f.nameSeq[base] = n
			f.nameSeq[cand] = 1
			return cand
		}
	}
}

// RegisterName claims an exact value name, reporting whether it was free.
// The text parser uses this so later generated names cannot collide with
// source names.
func (f *Func) RegisterName(name string) bool {
	if f.nameSeq == nil {
		f.nameSeq = make(map[string]int)
	}
	if _, taken := f.nameSeq[name]; taken {
		return false
	}
	f.nameSeq[name] = 1
	return true
}

// ReplaceUses rewrites every operand equal to old into new, across the whole
// function.
func (f *Func) ReplaceUses(old, new Value) {
	for _, b := range f.Blocks {
		for _, in := range b.Insts {
			for k, op := range in.Operands {
				if op == old {
					in.Operands[k] = new
				}
			}
		}
	}
}

// ReplaceUsesOutsideBlock rewrites uses of old into new except for uses
// inside the given block.
func (f *Func) ReplaceUsesOutsideBlock(old, new Value, except *Block) {
	for _, b := range f.Blocks {
		if b == except {
			continue
		}
		for _, in := range b.Insts {
			for k, op := range in.Operands {
				if op == old {
					in.Operands[k] = new
				}
			}
		}
	}
}

// SplitBefore splits x's block in two. A new block named name is placed
// immediately before it and receives every instruction preceding x plus an
// unconditional branch to the remainder; every other predecessor is
// redirected to the new block. x must not be a phi. Returns the new block
// and x's trimmed block, in that order.
func (f *Func) SplitBefore(x *Instr, name string) (*Block, *Block) {
	two := x.Parent()
	if two == nil || x.IsPhi() {
		panic("ir: cannot split at a detached instruction or a phi")
	}
	one := f.NewBlockBefore(name, two)
	k := two.IndexOf(x)
	for _, in := range two.Insts[:k] {
		in.blk = one
	}
	one.Insts = append(one.Insts, two.Insts[:k]...)
	two.Insts = append([]*Instr{}, two.Insts[k:]...)
	one.Append(&Instr{Op: OpBr, Blocks: []*Block{two}})
	for _, p := range f.Preds(two) {
		if p == one {
			continue
		}
		t := p.Term()
		for i, b := range t.Blocks {
			if b == two {
				t.Blocks[i] = one
			}
		}
	}
	return one, two
}

// ParamByName returns the parameter with the given name, or nil.
func (f *Func) ParamByName(name string) *Param {
	for _, p := range f.Params {
		if p.Nam == name {
			return p
		}
	}
	return nil
}

// Program is a set of functions forming one translation unit.
type Program struct {
	Funcs   []*Func
	Globals []*Global
}

// FuncByName returns the function with the given name, or nil.
func (p *Program) FuncByName(name string) *Func {
	for _, f := range p.Funcs {
		if f.Nam == name {
			return f
		}
	}
	return nil
}

// GlobalByName returns the global with the given name, or nil.
func (p *Program) GlobalByName(name string) *Global {
	for _, g := range p.Globals {
		if g.Nam == name {
			return g
		}
	}
	return nil
}
