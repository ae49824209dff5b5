package ir

import (
	"fmt"
	"strconv"
)

// Type is the value type of an IR value.
type Type uint8

const (
	Void Type = iota
	I1
	I32
	I64
	F64
	Ptr
)

var typeNames = [...]string{
	Void: "void",
	I1:   "i1",
	I32:  "i32",
	I64:  "i64",
	F64:  "f64",
	Ptr:  "ptr",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// TypeByName returns the type with the given textual name.
func TypeByName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), true
		}
	}
	return Void, false
}

// IsInt reports whether t is an integer or pointer type. Address arithmetic
// is done on Ptr values directly, so Ptr counts as integral.
func (t Type) IsInt() bool {
	return t == I1 || t == I32 || t == I64 || t == Ptr
}

// Value is anything that can appear as an instruction operand.
type Value interface {
	Type() Type
	// Ident returns the printable operand form: "%x", "@g", "42", "1.5".
	Ident() string
}

// Const is a constant value.
type Const struct {
	Typ   Type
	Int   int64
	Float float64
}

// ConstInt returns an integer constant of the given type.
func ConstInt(t Type, v int64) *Const { return &Const{Typ: t, Int: v} }

// ConstFloat returns an f64 constant.
func ConstFloat(v float64) *Const { return &Const{Typ: F64, Float: v} }

// ConstBool returns an i1 constant.
func ConstBool(b bool) *Const {
	if b {
		return &Const{Typ: I1, Int: 1}
	}
	return &Const{Typ: I1}
}

func (c *Const) Type() Type { return c.Typ }

func (c *Const) Ident() string {
	if c.Typ == F64 {
		s := strconv.FormatFloat(c.Float, 'g', -1, 64)
		// keep floats visibly distinct from ints in the text form
		if !containsAny(s, ".eE") {
			s += ".0"
		}
		return s
	}
	return strconv.FormatInt(c.Int, 10)
}

// IsZero reports whether c is the zero value of its type.
func (c *Const) IsZero() bool {
	if c.Typ == F64 {
		return c.Float == 0
	}
	return c.Int == 0
}

func containsAny(s, chars string) bool {
	for _, r := range s {
		for _, c := range chars {
			if r == c {
				return true
			}
		}
	}
	return false
}

// Param is a function parameter.
type Param struct {
	Nam string
	Typ Type
}

func (p *Param) Type() Type    { return p.Typ }
func (p *Param) Name() string  { return p.Nam }
func (p *Param) Ident() string { return "%" + p.Nam }

// Global is a module-level symbol, usually a pointer to static storage.
type Global struct {
	Nam string
	Typ Type
}

func (g *Global) Type() Type    { return g.Typ }
func (g *Global) Name() string  { return g.Nam }
func (g *Global) Ident() string { return "@" + g.Nam }
