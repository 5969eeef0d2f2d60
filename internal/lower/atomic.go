package lower

import (
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/mpyw/memaccess/internal/ir"
)

type atomicOp int

const (
	atomicCAS atomicOp = iota
	atomicSwap
	atomicAdd
	atomicAnd
	atomicOr
	atomicLoad
	atomicStore
)

// Checked in order; CompareAndSwap must precede Swap.
var atomicPrefixes = []struct {
	prefix string
	op     atomicOp
}{
	{"CompareAndSwap", atomicCAS},
	{"Swap", atomicSwap},
	{"Add", atomicAdd},
	{"And", atomicAnd},
	{"Or", atomicOr},
	{"Load", atomicLoad},
	{"Store", atomicStore},
}

var rmwOps = map[atomicOp]ir.RMWOp{
	atomicSwap: ir.RMWXchg,
	atomicAdd:  ir.RMWAdd,
	atomicAnd:  ir.RMWAnd,
	atomicOr:   ir.RMWOr,
}

func atomicOpFor(name string) (atomicOp, bool) {
	for _, p := range atomicPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.op, true
		}
	}
	return 0, false
}

// atomic lowers calls into sync/atomic to atomic memory instructions. It
// reports false for any other callee.
func (fl *funcLowerer) atomic(instr *ssa.Call, callee *ssa.Function, args []ssa.Value) (bool, error) {
	obj, _ := callee.Object().(*types.Func)
	if obj == nil || obj.Pkg() == nil || obj.Pkg().Path() != "sync/atomic" {
		return false, nil
	}
	op, ok := atomicOpFor(obj.Name())
	if !ok || len(args) == 0 {
		return false, nil
	}

	addr, operands := args[0], args[1:]
	var accessType types.Type
	if recv := obj.Type().(*types.Signature).Recv(); recv != nil {
		accessType = atomicValueType(recv.Type())
	} else {
		accessType = elem(addr.Type())
	}
	if accessType == nil {
		return false, nil
	}
	lt, err := fl.l.types.lower(accessType)
	if err != nil {
		return false, err
	}

	want := 1
	switch op {
	case atomicCAS:
		want = 2
	case atomicLoad:
		want = 0
	}
	if len(operands) != want {
		return false, nil
	}

	ptr := fl.value(addr)
	align := fl.l.alignof(accessType)
	conv := func(v ssa.Value) ir.Value {
		x := fl.value(v)
		if !x.Type().Equal(lt) {
			x = fl.b.Other("convert", lt, x)
		}
		return x
	}

	var res *ir.Instruction
	switch op {
	case atomicCAS:
		res = fl.b.CmpXchg(ptr, conv(operands[0]), conv(operands[1]))
	case atomicLoad:
		res = fl.b.AtomicLoad(lt, ptr, align)
	case atomicStore:
		res = fl.b.AtomicStore(conv(operands[0]), ptr, align)
	default:
		res = fl.b.AtomicRMW(rmwOps[op], ptr, conv(operands[0]))
	}
	fl.values[instr] = res
	return true, nil
}

// atomicValueType returns the type of the word wrapped by a sync/atomic
// type such as *atomic.Int64. atomic.Value is not a single word.
func atomicValueType(recv types.Type) types.Type {
	t := elem(recv)
	if t == nil {
		return nil
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok || named.Obj().Name() == "Value" {
		return nil
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	for i := 0; i < st.NumFields(); i++ {
		if f := st.Field(i); f.Name() == "v" {
			return f.Type()
		}
	}
	return nil
}
