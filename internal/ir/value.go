package ir

import (
	"fmt"
	"go/token"
)

// Value is anything that can appear as an instruction operand.
type Value interface {
	Name() string
	Type() *Type
	String() string
}

// Constant is an integer constant.
type Constant struct {
	typ *Type
	val uint64
}

// ConstInt returns an integer constant of type t.
func ConstInt(t *Type, v uint64) *Constant { return &Constant{typ: t, val: v} }

func (c *Constant) Name() string   { return "" }
func (c *Constant) Type() *Type    { return c.typ }
func (c *Constant) Uint64() uint64 { return c.val }
func (c *Constant) String() string { return fmt.Sprintf("%s %d", c.typ, c.val) }

// Equal reports whether c and o hold the same value of the same type.
func (c *Constant) Equal(o *Constant) bool {
	return o != nil && c.val == o.val && c.typ.Equal(o.typ)
}

// Argument is a formal parameter of a function.
type Argument struct {
	name   string
	typ    *Type
	Align  uint64 // known alignment of a pointer argument, 0 if unknown
	Parent *Function
}

func (a *Argument) Name() string        { return a.name }
func (a *Argument) SetName(name string) { a.name = name }
func (a *Argument) Type() *Type         { return a.typ }
func (a *Argument) String() string      { return fmt.Sprintf("%s %%%s", a.typ, a.name) }

// Global is a module-level variable. As an operand it denotes its address.
type Global struct {
	name      string
	ValueType *Type
	Align     uint64
	Pos       token.Pos
	Parent    *Module
}

func (g *Global) Name() string        { return g.name }
func (g *Global) SetName(name string) { g.name = name }
func (g *Global) Type() *Type         { return Ptr }
func (g *Global) String() string      { return "ptr @" + g.name }

// Named is a value whose name can be changed.
type Named interface {
	Value
	SetName(name string)
}

// Literal is a constant that is not an integer, such as a string, a float or
// nil. Only its type matters to this package.
type Literal struct {
	typ  *Type
	text string
}

// NewLiteral returns a literal of type t printed as text.
func NewLiteral(t *Type, text string) *Literal { return &Literal{typ: t, text: text} }

func (l *Literal) Name() string   { return "" }
func (l *Literal) Type() *Type    { return l.typ }
func (l *Literal) String() string { return fmt.Sprintf("%s %s", l.typ, l.text) }
