package ir

import (
	"fmt"
	"go/token"
	"strings"
)

// Linkage controls the visibility of a function outside its module.
type Linkage int

const (
	ExternalLinkage Linkage = iota
	InternalLinkage
)

// Attribute is a function attribute.
type Attribute string

const (
	// AttrNoInstrument excludes a function from instrumentation passes.
	AttrNoInstrument Attribute = "noinstrument"
)

// Module is a compilation unit.
type Module struct {
	Name   string
	Layout *DataLayout

	functions []*Function
	globals   []*Global
}

// NewModule returns an empty module using layout dl.
func NewModule(name string, dl *DataLayout) *Module {
	return &Module{Name: name, Layout: dl}
}

// Functions returns the module's functions in declaration order. The returned
// slice is a snapshot: functions added afterwards are not part of it.
func (m *Module) Functions() []*Function {
	return append([]*Function(nil), m.functions...)
}

// Globals returns the module's global variables in declaration order.
func (m *Module) Globals() []*Global {
	return append([]*Global(nil), m.globals...)
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.functions {
		if fn.name == name {
			return fn
		}
	}
	return nil
}


// NewFunction appends a function without a body to the module.
func (m *Module) NewFunction(name string, sig *Signature, linkage Linkage) *Function {
	fn := &Function{
		name:    name,
		Sig:     sig,
		Linkage: linkage,
		Parent:  m,
	}
	for i, t := range sig.Params {
		fn.Params = append(fn.Params, &Argument{name: fmt.Sprintf("arg%d", i), typ: t, Parent: fn})
	}
	m.functions = append(m.functions, fn)
	return fn
}

// GetOrInsertFunction returns the function named name, declaring it with
// signature sig when it does not exist yet. An existing function is returned
// as is, whatever its signature.
func (m *Module) GetOrInsertFunction(name string, sig *Signature) *Function {
	if fn := m.Function(name); fn != nil {
		return fn
	}
	return m.NewFunction(name, sig, ExternalLinkage)
}

// NewGlobal appends a global variable holding a value of type t.
func (m *Module) NewGlobal(name string, t *Type, align uint64) *Global {
	g := &Global{name: name, ValueType: t, Align: align, Parent: m}
	m.globals = append(m.globals, g)
	return g
}

func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; module %s\n", m.Name)
	for _, g := range m.globals {
		fmt.Fprintf(&b, "@%s = global %s", g.name, g.ValueType)
		if g.Align != 0 {
			fmt.Fprintf(&b, ", align %d", g.Align)
		}
		b.WriteString("\n")
	}
	for _, fn := range m.functions {
		b.WriteString("\n")
		b.WriteString(fn.Format())
	}
	return b.String()
}

// Function is a function definition or declaration.
type Function struct {
	name    string
	Sig     *Signature
	Linkage Linkage
	Params  []*Argument
	Blocks  []*Block
	Parent  *Module
	Pos     token.Pos

	attrs  map[Attribute]bool
	nextID int
}

func (f *Function) Name() string        { return f.name }
func (f *Function) SetName(name string) { f.name = name }
func (f *Function) Type() *Type         { return Ptr }
func (f *Function) String() string      { return "ptr @" + f.name }

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// AddAttr attaches attribute a to the function.
func (f *Function) AddAttr(a Attribute) {
	if f.attrs == nil {
		f.attrs = make(map[Attribute]bool)
	}
	f.attrs[a] = true
}

// HasAttr reports whether the function carries attribute a.
func (f *Function) HasAttr(a Attribute) bool { return f.attrs[a] }

// NewBlock appends an empty basic block.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Instructions returns every instruction of the function in block order.
func (f *Function) Instructions() []*Instruction {
	var out []*Instruction
	for _, b := range f.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// Format returns the textual form of the function.
func (f *Function) Format() string {
	var b strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	kw := "define"
	if f.IsDeclaration() {
		kw = "declare"
	}
	fmt.Fprintf(&b, "%s %s @%s(%s)", kw, f.Sig.result(), f.name, strings.Join(params, ", "))
	if f.IsDeclaration() {
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(" {\n")
	for _, blk := range f.Blocks {
		fmt.Fprintf(&b, "%s:\n", blk.Name)
		for _, instr := range blk.Instrs {
			fmt.Fprintf(&b, "  %s\n", instr.Format())
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func (f *Function) newName() string {
	name := fmt.Sprintf("t%d", f.nextID)
	f.nextID++
	return name
}

// Block is a basic block.
type Block struct {
	Name   string
	Instrs []*Instruction
	Parent *Function
}
