package lower

import (
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/mpyw/memaccess/internal/ir"
)

type funcLowerer struct {
	l      *lowerer
	fn     *ssa.Function
	f      *ir.Function
	b      *ir.Builder
	values map[ssa.Value]ir.Value
	phis   map[*ssa.Phi]*ir.Instruction
	copies map[*ssa.Store]*ssa.UnOp // aggregate load/store pairs lowered as memcpy
}

func (fl *funcLowerer) lower() error {
	blocks := make(map[*ssa.BasicBlock]*ir.Block, len(fl.fn.Blocks))
	for _, sb := range fl.fn.Blocks {
		name := fmt.Sprintf("b%d", sb.Index)
		if sb.Comment != "" {
			name = fmt.Sprintf("%s.%d", sb.Comment, sb.Index)
		}
		blocks[sb] = fl.f.NewBlock(name)
	}
	for i, p := range fl.fn.Params {
		fl.values[p] = fl.f.Params[i]
	}
	for i, fv := range fl.fn.FreeVars {
		fl.values[fv] = fl.f.Params[len(fl.fn.Params)+i]
	}

	// Dominator preorder guarantees every non-phi operand is lowered
	// before its use.
	fl.b = ir.NewBuilder(blocks[fl.fn.Blocks[0]])
	for _, sb := range fl.fn.DomPreorder() {
		fl.b.SetBlock(blocks[sb])
		for _, instr := range sb.Instrs {
			if err := fl.instr(instr); err != nil {
				return err
			}
		}
	}

	for phi, res := range fl.phis {
		ops := make([]ir.Value, len(phi.Edges))
		for i, e := range phi.Edges {
			ops[i] = fl.value(e)
		}
		res.Operands = ops
	}
	return nil
}

func (fl *funcLowerer) value(v ssa.Value) ir.Value {
	switch v := v.(type) {
	case nil:
		return nil
	case *ssa.Const:
		return fl.l.constant(v)
	case *ssa.Global:
		return fl.l.global(v)
	case *ssa.Function:
		return fl.l.declare(v)
	case *ssa.Builtin:
		return ir.NewLiteral(ir.Ptr, "builtin "+v.Name())
	}
	if lv, ok := fl.values[v]; ok {
		return lv
	}
	return ir.NewLiteral(fl.l.typeOr(v.Type(), ir.Ptr), "undef")
}

func (fl *funcLowerer) valueList(vs []ssa.Value) []ir.Value {
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		out[i] = fl.value(v)
	}
	return out
}

func (fl *funcLowerer) instr(instr ssa.Instruction) error {
	fl.b.SetPos(instr.Pos())

	switch instr := instr.(type) {
	case *ssa.Alloc:
		t := elem(instr.Type())
		lt, err := fl.l.types.lower(t)
		if err != nil {
			return err
		}
		align := fl.l.alignof(t)
		if !instr.Heap {
			fl.values[instr] = fl.b.Alloca(lt, align)
			return nil
		}
		newobject, err := fl.l.helper("runtime.newobject", &ir.Signature{
			Params: []*ir.Type{ir.Ptr},
			Result: ir.Ptr,
		})
		if err != nil {
			return err
		}
		res := fl.b.Call(newobject, ir.NewLiteral(ir.Ptr, "type "+t.String()))
		res.Align = align
		res.Alloc = lt
		fl.values[instr] = res

	case *ssa.MakeSlice:
		return fl.makeSlice(instr)

	case *ssa.UnOp:
		if instr.Op != token.MUL {
			return fl.other(instr)
		}
		t := elem(instr.X.Type())
		lt, err := fl.l.types.lower(t)
		if err != nil {
			return err
		}
		if st := aggregateCopy(instr); st != nil {
			fl.copies[st] = instr
			return nil
		}
		fl.values[instr] = fl.b.Load(lt, fl.value(instr.X), fl.l.alignof(t))

	case *ssa.Store:
		if ld, ok := fl.copies[instr]; ok {
			t := elem(ld.X.Type())
			size := ir.ConstInt(fl.l.types.word, uint64(fl.l.cfg.Sizes.Sizeof(t)))
			fl.b.MemCpy(fl.value(instr.Addr), fl.value(ld.X), size, fl.l.alignof(t))
			return nil
		}
		fl.b.Store(fl.value(instr.Val), fl.value(instr.Addr), fl.l.pointerAlign(instr.Addr.Type()))

	case *ssa.FieldAddr:
		idx := ir.ConstInt(ir.I32, uint64(instr.Field))
		fl.values[instr] = fl.b.GEP(fl.value(instr.X), fl.l.pointerAlign(instr.Type()), idx)

	case *ssa.IndexAddr:
		fl.values[instr] = fl.b.GEP(fl.value(instr.X), fl.l.pointerAlign(instr.Type()), fl.value(instr.Index))

	case *ssa.BinOp:
		op, ok := binOps[instr.Op]
		lt, err := fl.l.types.lower(instr.Type())
		if err != nil {
			return err
		}
		if !ok || lt.Kind != ir.IntKind {
			return fl.other(instr)
		}
		fl.values[instr] = fl.b.Binary(op, fl.value(instr.X), fl.value(instr.Y))

	case *ssa.Phi:
		lt, err := fl.l.types.lower(instr.Type())
		if err != nil {
			return err
		}
		res := fl.b.Other("phi", lt)
		fl.phis[instr] = res
		fl.values[instr] = res

	case *ssa.Call:
		return fl.call(instr)

	case *ssa.Return:
		fl.b.Ret(fl.valueList(instr.Results)...)

	default:
		return fl.other(instr)
	}
	return nil
}

var binOps = map[token.Token]ir.BinOp{
	token.ADD: ir.BinAdd,
	token.SUB: ir.BinSub,
	token.MUL: ir.BinMul,
}

// other lowers instr to an instruction without memory semantics that keeps
// its operands.
func (fl *funcLowerer) other(instr ssa.Instruction) error {
	t := ir.Void
	if v, ok := instr.(ssa.Value); ok {
		lt, err := fl.l.types.lower(v.Type())
		if err != nil {
			return err
		}
		t = lt
	}

	var ops []ir.Value
	for _, op := range instr.Operands(nil) {
		if op == nil || *op == nil {
			continue
		}
		ops = append(ops, fl.value(*op))
	}

	res := fl.b.Other(mnemonic(instr), t, ops...)
	if v, ok := instr.(ssa.Value); ok {
		fl.values[v] = res
	}
	return nil
}

func mnemonic(instr ssa.Instruction) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", instr), "*ssa.")
	return strings.ToLower(name)
}

func (fl *funcLowerer) call(instr *ssa.Call) error {
	common := instr.Common()
	if b, ok := common.Value.(*ssa.Builtin); ok {
		switch b.Name() {
		case "copy":
			return fl.copyBuiltin(instr, common.Args)
		case "clear":
			return fl.clearBuiltin(instr, common.Args)
		}
	}

	callee := common.StaticCallee()
	if callee == nil {
		return fl.other(instr)
	}
	if ok, err := fl.atomic(instr, callee, common.Args); ok || err != nil {
		return err
	}

	f := fl.l.declare(callee)
	if len(f.Params) != len(common.Args) && !f.Sig.Variadic {
		return fl.other(instr)
	}
	fl.values[instr] = fl.b.Call(f, fl.valueList(common.Args)...)
	return nil
}

// copyBuiltin lowers copy(dst, src) to a memmove of min(len(dst), len(src))
// elements.
func (fl *funcLowerer) copyBuiltin(instr *ssa.Call, args []ssa.Value) error {
	if len(args) != 2 {
		return fl.other(instr)
	}
	dst, src := args[0], args[1]
	s, ok := dst.Type().Underlying().(*types.Slice)
	if !ok {
		return fl.other(instr)
	}
	et := s.Elem()
	if _, err := fl.l.types.lower(et); err != nil {
		return err
	}

	word := fl.l.types.word
	dstPtr := fl.b.Other("slice.ptr", ir.Ptr, fl.value(dst))
	srcPtr := fl.b.Other(ptrMnemonic(src.Type()), ir.Ptr, fl.value(src))
	n := fl.b.Binary(ir.BinUMin,
		fl.b.Other("len", word, fl.value(dst)),
		fl.b.Other("len", word, fl.value(src)))
	size := fl.b.Binary(ir.BinMul, n, ir.ConstInt(word, uint64(fl.l.cfg.Sizes.Sizeof(et))))
	fl.b.MemMove(dstPtr, srcPtr, size, fl.l.alignof(et))
	fl.values[instr] = n
	return nil
}

// clearBuiltin lowers clear(s) on a slice to a memset of len(s) elements.
// Clearing a map stays an opaque instruction.
func (fl *funcLowerer) clearBuiltin(instr *ssa.Call, args []ssa.Value) error {
	if len(args) != 1 {
		return fl.other(instr)
	}
	s, ok := args[0].Type().Underlying().(*types.Slice)
	if !ok {
		return fl.other(instr)
	}
	et := s.Elem()
	if _, err := fl.l.types.lower(et); err != nil {
		return err
	}

	word := fl.l.types.word
	ptr := fl.b.Other("slice.ptr", ir.Ptr, fl.value(args[0]))
	n := fl.b.Other("len", word, fl.value(args[0]))
	size := fl.b.Binary(ir.BinMul, n, ir.ConstInt(word, uint64(fl.l.cfg.Sizes.Sizeof(et))))
	fl.b.MemSet(ptr, ir.ConstInt(ir.I8, 0), size, fl.l.alignof(et))
	return nil
}

// makeSlice lowers make([]T, len, cap) to a call of runtime.makeslice, which
// allocates cap elements of T.
func (fl *funcLowerer) makeSlice(instr *ssa.MakeSlice) error {
	s, ok := instr.Type().Underlying().(*types.Slice)
	if !ok {
		return fl.other(instr)
	}
	et, err := fl.l.types.lower(s.Elem())
	if err != nil {
		return err
	}

	word := fl.l.types.word
	makeslice, err := fl.l.helper("runtime.makeslice", &ir.Signature{
		Params: []*ir.Type{ir.Ptr, word, word},
		Result: ir.StructOf(ir.Ptr, word, word),
	})
	if err != nil {
		return err
	}
	res := fl.b.Call(makeslice,
		ir.NewLiteral(ir.Ptr, "type "+s.Elem().String()),
		fl.value(instr.Len),
		fl.value(instr.Cap))
	res.Alloc = et
	fl.values[instr] = res
	return nil
}

// aggregateCopy returns the store that immediately writes the struct or
// array loaded by ld to another address, or nil. The pair is a plain memory
// copy.
func aggregateCopy(ld *ssa.UnOp) *ssa.Store {
	switch ld.Type().Underlying().(type) {
	case *types.Struct, *types.Array:
	default:
		return nil
	}
	refs := ld.Referrers()
	if refs == nil || len(*refs) != 1 {
		return nil
	}
	st, ok := (*refs)[0].(*ssa.Store)
	if !ok || st.Val != ld || st.Block() != ld.Block() {
		return nil
	}
	instrs := ld.Block().Instrs
	for i, instr := range instrs {
		if instr == ld {
			if i+1 < len(instrs) && instrs[i+1] == st {
				return st
			}
			return nil
		}
	}
	return nil
}

func ptrMnemonic(t types.Type) string {
	if b, ok := t.Underlying().(*types.Basic); ok && b.Info()&types.IsString != 0 {
		return "string.ptr"
	}
	return "slice.ptr"
}
