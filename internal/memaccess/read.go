package memaccess

import "github.com/mpyw/memaccess/internal/ir"

// MemoryRead is a MemoryAccess that reads memory.
type MemoryRead struct {
	MemoryAccess
}

// ReadOf returns the read performed by i, or an empty MemoryRead if i does
// not read memory. Shapes are tried in the order load, memcpy/memmove,
// cmpxchg, atomicrmw.
func ReadOf(i *ir.Instruction) MemoryRead {
	if i == nil {
		return MemoryRead{}
	}
	switch {
	case i.Op == ir.OpLoad:
		return readLoad(i)
	case i.IsMemTransfer():
		return readTransfer(i)
	case i.Op == ir.OpCmpXchg:
		return readCmpXchg(i)
	case i.Op == ir.OpAtomicRMW:
		return readRMW(i)
	}
	return MemoryRead{}
}

func newRead(i *ir.Instruction, ptr, length ir.Value, align uint64) MemoryRead {
	return MemoryRead{MemoryAccess{instr: i, pointer: ptr, length: length, align: align, isRead: true}}
}

func readLoad(i *ir.Instruction) MemoryRead {
	return newRead(i, i.PointerOperand(), staticLength(i, i.Type()), i.Align)
}

func readTransfer(i *ir.Instruction) MemoryRead {
	return newRead(i, i.RawSource(), i.Length(), i.Align)
}

func readCmpXchg(i *ir.Instruction) MemoryRead {
	ptr := i.PointerOperand()
	return newRead(i, ptr, staticLength(i, i.CompareOperand().Type()), layout(i).PointerAlignment(ptr))
}

func readRMW(i *ir.Instruction) MemoryRead {
	ptr := i.PointerOperand()
	return newRead(i, ptr, staticLength(i, i.ValueOperand().Type()), layout(i).PointerAlignment(ptr))
}
