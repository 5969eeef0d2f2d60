package memaccess

import "github.com/mpyw/memaccess/internal/ir"

// MemoryWrite is a MemoryAccess that writes memory.
type MemoryWrite struct {
	MemoryAccess
}

// WriteOf returns the write performed by i, or an empty MemoryWrite if i does
// not write memory. Shapes are tried in the order store, memory intrinsic
// (memcpy, memmove, memset), cmpxchg, atomicrmw.
func WriteOf(i *ir.Instruction) MemoryWrite {
	if i == nil {
		return MemoryWrite{}
	}
	switch {
	case i.Op == ir.OpStore:
		return writeStore(i)
	case i.IsMemIntrinsic():
		return writeIntrinsic(i)
	case i.Op == ir.OpCmpXchg:
		return writeCmpXchg(i)
	case i.Op == ir.OpAtomicRMW:
		return writeRMW(i)
	}
	return MemoryWrite{}
}

func newWrite(i *ir.Instruction, ptr, length ir.Value, align uint64) MemoryWrite {
	return MemoryWrite{MemoryAccess{instr: i, pointer: ptr, length: length, align: align}}
}

func writeStore(i *ir.Instruction) MemoryWrite {
	return newWrite(i, i.PointerOperand(), staticLength(i, i.ValueOperand().Type()), i.Align)
}

func writeIntrinsic(i *ir.Instruction) MemoryWrite {
	return newWrite(i, i.RawDest(), i.Length(), i.Align)
}

func writeCmpXchg(i *ir.Instruction) MemoryWrite {
	ptr := i.PointerOperand()
	return newWrite(i, ptr, staticLength(i, i.CompareOperand().Type()), layout(i).PointerAlignment(ptr))
}

func writeRMW(i *ir.Instruction) MemoryWrite {
	ptr := i.PointerOperand()
	return newWrite(i, ptr, staticLength(i, i.ValueOperand().Type()), layout(i).PointerAlignment(ptr))
}
