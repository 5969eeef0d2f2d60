package lower

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/noinstrument"
)

// ErrNoSizes is returned when Config.Sizes is nil.
var ErrNoSizes = errors.New("lower: type sizes are required")

// Config controls lowering.
type Config struct {
	// Sizes computes the layout of Go types. Required.
	Sizes types.Sizes
	// NoInstrument reports whether a function is excluded from
	// instrumentation. Excluded functions get ir.AttrNoInstrument.
	NoInstrument func(fn *ssa.Function) bool
	// Globals are declared in the module before any function is lowered,
	// so that globals no function refers to still appear in it.
	Globals []*ssa.Global
}

// DataLayout derives an ir data layout from Go type sizes.
func DataLayout(sizes types.Sizes) *ir.DataLayout {
	ptr := sizes.Sizeof(types.Typ[types.UnsafePointer])
	maxAlign := sizes.Alignof(types.Typ[types.Complex128])
	return ir.NewDataLayout(uint64(ptr), uint64(maxAlign))
}

// Package lowers funcs into a new module named name. Functions appear in the
// module in the order given; functions they call that are not part of funcs
// are appended as declarations when first referenced.
//
// Functions without a body and generic functions become declarations. Runtime
// entry points the lowering calls, such as runtime.newobject, are declared as
// helpers named with the noinstrument prefix.
func Package(name string, funcs []*ssa.Function, cfg Config) (*ir.Module, error) {
	if cfg.Sizes == nil {
		return nil, ErrNoSizes
	}
	l := &lowerer{
		cfg:     cfg,
		mod:     ir.NewModule(name, DataLayout(cfg.Sizes)),
		types:   newTypeLowerer(cfg.Sizes),
		funcs:   make(map[*ssa.Function]*ir.Function),
		globals: make(map[*ssa.Global]*ir.Global),
	}
	for _, g := range cfg.Globals {
		l.global(g)
	}
	for _, fn := range funcs {
		l.declare(fn)
	}
	for _, fn := range funcs {
		if err := l.define(fn); err != nil {
			return nil, fmt.Errorf("lower %s: %w", fn, err)
		}
	}
	return l.mod, nil
}

type lowerer struct {
	cfg     Config
	mod     *ir.Module
	types   *typeLowerer
	funcs   map[*ssa.Function]*ir.Function
	globals map[*ssa.Global]*ir.Global
}

// typeOr lowers t, falling back to def for types without a layout.
func (l *lowerer) typeOr(t types.Type, def *ir.Type) *ir.Type {
	lt, err := l.types.lower(t)
	if err != nil {
		return def
	}
	return lt
}

func (l *lowerer) alignof(t types.Type) uint64 {
	if t == nil {
		return 0
	}
	return uint64(l.cfg.Sizes.Alignof(t))
}

// pointerAlign returns the alignment guaranteed for values of pointer type t.
func (l *lowerer) pointerAlign(t types.Type) uint64 {
	e := elem(t)
	if e == nil {
		return 0
	}
	if _, ok := types.Unalias(e).(*types.TypeParam); ok {
		return 0
	}
	return l.alignof(e)
}

// declare returns the ir function for fn, creating a body-less one on first
// use.
func (l *lowerer) declare(fn *ssa.Function) *ir.Function {
	if f, ok := l.funcs[fn]; ok {
		return f
	}

	var params []types.Type
	sig := fn.Signature
	if recv := sig.Recv(); recv != nil {
		params = append(params, recv.Type())
	}
	for i := 0; i < sig.Params().Len(); i++ {
		params = append(params, sig.Params().At(i).Type())
	}
	for _, fv := range fn.FreeVars {
		params = append(params, fv.Type())
	}

	irSig := &ir.Signature{
		Params:   make([]*ir.Type, len(params)),
		Result:   l.typeOr(sig.Results(), ir.Ptr),
		Variadic: sig.Variadic(),
	}
	for i, p := range params {
		irSig.Params[i] = l.typeOr(p, ir.Ptr)
	}

	linkage := ir.InternalLinkage
	if fn.Parent() == nil && token.IsExported(fn.Name()) {
		linkage = ir.ExternalLinkage
	}

	f := l.mod.NewFunction(fn.String(), irSig, linkage)
	f.Pos = fn.Pos()
	for i, p := range params {
		f.Params[i].Align = l.pointerAlign(p)
	}
	for i, p := range fn.Params {
		f.Params[i].SetName(p.Name())
	}
	for i, fv := range fn.FreeVars {
		f.Params[len(fn.Params)+i].SetName(fv.Name())
	}
	if l.cfg.NoInstrument != nil && l.cfg.NoInstrument(fn) {
		f.AddAttr(ir.AttrNoInstrument)
	}
	l.funcs[fn] = f
	return f
}

// define lowers the body of fn. Generic functions and functions without
// blocks stay declarations.
func (l *lowerer) define(fn *ssa.Function) error {
	f := l.declare(fn)
	if len(fn.Blocks) == 0 || isGeneric(fn) || len(fn.Params)+len(fn.FreeVars) != len(f.Params) {
		return nil
	}

	fl := &funcLowerer{
		l:      l,
		fn:     fn,
		f:      f,
		values: make(map[ssa.Value]ir.Value),
		phis:   make(map[*ssa.Phi]*ir.Instruction),
		copies: make(map[*ssa.Store]*ssa.UnOp),
	}
	err := fl.lower()
	if errors.Is(err, ErrUnsupportedType) {
		f.Blocks = nil
		return nil
	}
	return err
}

func isGeneric(fn *ssa.Function) bool {
	for ; fn != nil; fn = fn.Parent() {
		if fn.TypeParams().Len() > 0 || fn.Signature.RecvTypeParams().Len() > 0 {
			return true
		}
	}
	return false
}

func (l *lowerer) global(g *ssa.Global) *ir.Global {
	if lg, ok := l.globals[g]; ok {
		return lg
	}
	t := elem(g.Type())
	lg := l.mod.NewGlobal(g.String(), l.typeOr(t, ir.I8), l.alignof(t))
	lg.Pos = g.Pos()
	if !lg.Pos.IsValid() {
		// Synthesized by the compiler, such as the package init guard.
		noinstrument.Set(lg)
	}
	l.globals[g] = lg
	return lg
}

// helper returns the declaration of the runtime function name.
func (l *lowerer) helper(name string, sig *ir.Signature) (*ir.Function, error) {
	return noinstrument.GetOrInsert(l.mod, name, sig)
}

func (l *lowerer) constant(c *ssa.Const) ir.Value {
	t := l.typeOr(c.Type(), ir.Ptr)
	if c.Value == nil {
		return ir.NewLiteral(t, "zeroinitializer")
	}
	if c.Value.Kind() == constant.Int {
		if u, exact := constant.Uint64Val(c.Value); exact {
			return ir.ConstInt(t, u)
		}
		if i, exact := constant.Int64Val(c.Value); exact {
			return ir.ConstInt(t, uint64(i))
		}
	}
	return ir.NewLiteral(t, c.Value.ExactString())
}
