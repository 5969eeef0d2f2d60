package ir

import (
	"fmt"
	"go/token"
	"strings"
)

// Opcode identifies the shape of an instruction.
type Opcode int

const (
	OpOther Opcode = iota // any instruction without memory semantics of interest
	OpAlloca
	OpLoad
	OpStore
	OpGEP
	OpCall
	OpMemCpy
	OpMemMove
	OpMemSet
	OpCmpXchg
	OpAtomicRMW
	OpBinary
	OpRet
)

var opcodeNames = [...]string{
	OpOther:     "other",
	OpAlloca:    "alloca",
	OpLoad:      "load",
	OpStore:     "store",
	OpGEP:       "getelementptr",
	OpCall:      "call",
	OpMemCpy:    "memcpy",
	OpMemMove:   "memmove",
	OpMemSet:    "memset",
	OpCmpXchg:   "cmpxchg",
	OpAtomicRMW: "atomicrmw",
	OpBinary:    "binop",
	OpRet:       "ret",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", int(op))
}

// RMWOp is the operation of an atomicrmw instruction.
type RMWOp int

const (
	RMWXchg RMWOp = iota
	RMWAdd
	RMWSub
	RMWAnd
	RMWOr
	RMWXor
)

func (op RMWOp) String() string {
	switch op {
	case RMWXchg:
		return "xchg"
	case RMWAdd:
		return "add"
	case RMWSub:
		return "sub"
	case RMWAnd:
		return "and"
	case RMWOr:
		return "or"
	case RMWXor:
		return "xor"
	}
	return "?"
}

// BinOp is the operation of a binary instruction.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinUMin
)

func (op BinOp) String() string {
	switch op {
	case BinAdd:
		return "add"
	case BinSub:
		return "sub"
	case BinMul:
		return "mul"
	case BinUMin:
		return "umin"
	}
	return "?"
}

// Instruction is a single operation inside a Block.
//
// Operand layout per opcode:
//
//	OpAlloca     (none)                 Alloc holds the allocated type
//	OpLoad       ptr
//	OpStore      value, ptr
//	OpGEP        base, indices...
//	OpCall       callee, args...
//	OpMemCpy     dst, src, len
//	OpMemMove    dst, src, len
//	OpMemSet     dst, byte, len
//	OpCmpXchg    ptr, cmp, new
//	OpAtomicRMW  ptr, value
//	OpBinary     x, y
//	OpRet        [value]
type Instruction struct {
	Op       Opcode
	Operands []Value
	Align    uint64 // declared alignment; for pointer results, known alignment of the result
	Alloc    *Type  // OpAlloca; the allocated element type of a runtime allocation call
	Atomic   bool   // OpLoad, OpStore
	Volatile bool
	RMW      RMWOp // OpAtomicRMW
	Bin      BinOp // OpBinary
	Text     string
	Pos      token.Pos
	Block    *Block

	name string
	typ  *Type
}

func (i *Instruction) Name() string        { return i.name }
func (i *Instruction) SetName(name string) { i.name = name }

// Type returns the type of the value produced by the instruction.
func (i *Instruction) Type() *Type {
	if i.typ == nil {
		return Void
	}
	return i.typ
}

// Function returns the function containing the instruction, or nil when it
// has not been inserted into a block.
func (i *Instruction) Function() *Function {
	if i.Block == nil {
		return nil
	}
	return i.Block.Parent
}

// Module returns the module containing the instruction, or nil.
func (i *Instruction) Module() *Module {
	if fn := i.Function(); fn != nil {
		return fn.Parent
	}
	return nil
}

func (i *Instruction) operand(n int) Value {
	if n < len(i.Operands) {
		return i.Operands[n]
	}
	return nil
}

// PointerOperand returns the address operand of a load, store, cmpxchg,
// atomicrmw or getelementptr, and nil for other instructions.
func (i *Instruction) PointerOperand() Value {
	switch i.Op {
	case OpLoad, OpCmpXchg, OpAtomicRMW, OpGEP:
		return i.operand(0)
	case OpStore:
		return i.operand(1)
	}
	return nil
}

// ValueOperand returns the stored value of a store or the operand of an
// atomicrmw.
func (i *Instruction) ValueOperand() Value {
	switch i.Op {
	case OpStore:
		return i.operand(0)
	case OpAtomicRMW:
		return i.operand(1)
	}
	return nil
}

// CompareOperand returns the expected value of a cmpxchg.
func (i *Instruction) CompareOperand() Value {
	if i.Op == OpCmpXchg {
		return i.operand(1)
	}
	return nil
}

// NewValOperand returns the replacement value of a cmpxchg.
func (i *Instruction) NewValOperand() Value {
	if i.Op == OpCmpXchg {
		return i.operand(2)
	}
	return nil
}

// IsMemIntrinsic reports whether i is a memcpy, memmove or memset.
func (i *Instruction) IsMemIntrinsic() bool {
	return i.Op == OpMemCpy || i.Op == OpMemMove || i.Op == OpMemSet
}

// IsMemTransfer reports whether i is a memcpy or memmove.
func (i *Instruction) IsMemTransfer() bool {
	return i.Op == OpMemCpy || i.Op == OpMemMove
}

// RawDest returns the destination of a memory intrinsic.
func (i *Instruction) RawDest() Value {
	if i.IsMemIntrinsic() {
		return i.operand(0)
	}
	return nil
}

// RawSource returns the source of a memcpy or memmove.
func (i *Instruction) RawSource() Value {
	if i.IsMemTransfer() {
		return i.operand(1)
	}
	return nil
}

// Length returns the byte count operand of a memory intrinsic.
func (i *Instruction) Length() Value {
	if i.IsMemIntrinsic() {
		return i.operand(2)
	}
	return nil
}

// Callee returns the called function of a call instruction.
func (i *Instruction) Callee() *Function {
	if i.Op != OpCall {
		return nil
	}
	fn, _ := i.operand(0).(*Function)
	return fn
}

// Args returns the actual arguments of a call instruction.
func (i *Instruction) Args() []Value {
	if i.Op != OpCall || len(i.Operands) == 0 {
		return nil
	}
	return i.Operands[1:]
}

// String returns the textual form of the value, e.g. "i64 %t3".
func (i *Instruction) String() string {
	if i.name == "" {
		return i.Type().String()
	}
	return fmt.Sprintf("%s %%%s", i.Type(), i.name)
}

// Format returns the textual form of the instruction itself.
func (i *Instruction) Format() string {
	var b strings.Builder
	if i.name != "" && i.Type().Kind != VoidKind {
		fmt.Fprintf(&b, "%%%s = ", i.name)
	}
	switch i.Op {
	case OpAlloca:
		fmt.Fprintf(&b, "alloca %s", i.Alloc)
	case OpLoad:
		b.WriteString("load ")
		if i.Atomic {
			b.WriteString("atomic ")
		}
		fmt.Fprintf(&b, "%s, %s", i.Type(), operandString(i.PointerOperand()))
	case OpStore:
		b.WriteString("store ")
		if i.Atomic {
			b.WriteString("atomic ")
		}
		fmt.Fprintf(&b, "%s, %s", operandString(i.ValueOperand()), operandString(i.PointerOperand()))
	case OpCmpXchg:
		fmt.Fprintf(&b, "cmpxchg %s, %s, %s",
			operandString(i.PointerOperand()), operandString(i.CompareOperand()), operandString(i.NewValOperand()))
	case OpAtomicRMW:
		fmt.Fprintf(&b, "atomicrmw %s %s", i.RMW, joinOperands(i.Operands))
	case OpBinary:
		fmt.Fprintf(&b, "%s %s", i.Bin, joinOperands(i.Operands))
	case OpCall:
		name := "?"
		if fn := i.Callee(); fn != nil {
			name = fn.Name()
		}
		fmt.Fprintf(&b, "call %s @%s(%s)", i.Type(), name, joinOperands(i.Args()))
	case OpOther:
		b.WriteString(i.Text)
		if len(i.Operands) > 0 {
			b.WriteString(" " + joinOperands(i.Operands))
		}
	default:
		fmt.Fprintf(&b, "%s %s", i.Op, joinOperands(i.Operands))
	}
	if i.Align != 0 && i.Op != OpCall {
		fmt.Fprintf(&b, ", align %d", i.Align)
	}
	return b.String()
}

func operandString(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

func joinOperands(vs []Value) string {
	parts := make([]string, len(vs))
	for n, v := range vs {
		parts[n] = operandString(v)
	}
	return strings.Join(parts, ", ")
}
