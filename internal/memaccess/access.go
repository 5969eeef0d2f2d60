package memaccess

import (
	"fmt"

	"github.com/mpyw/memaccess/internal/ir"
)

// MemoryAccess describes one memory touch of one instruction.
//
// The zero value is the empty descriptor: Valid reports false and every other
// accessor returns its zero value.
type MemoryAccess struct {
	instr   *ir.Instruction
	pointer ir.Value
	length  ir.Value
	align   uint64
	isRead  bool
}

// Instruction returns the instruction performing the access.
func (a MemoryAccess) Instruction() *ir.Instruction { return a.instr }

// Pointer returns the accessed address.
func (a MemoryAccess) Pointer() ir.Value { return a.pointer }

// Length returns the number of bytes accessed. It is an *ir.Constant for
// accesses of statically known size.
func (a MemoryAccess) Length() ir.Value { return a.length }

// Alignment returns the alignment of the access in bytes, 0 if unknown.
func (a MemoryAccess) Alignment() uint64 { return a.align }

func (a MemoryAccess) IsRead() bool  { return a.isRead }
func (a MemoryAccess) IsWrite() bool { return !a.isRead }

// Valid reports whether the descriptor describes an access.
func (a MemoryAccess) Valid() bool { return a.instr != nil }

// HasConstLength reports whether the size is a compile-time constant.
func (a MemoryAccess) HasConstLength() bool {
	_, ok := a.length.(*ir.Constant)
	return ok
}

// ConstLength returns the constant size. It panics if HasConstLength is false.
func (a MemoryAccess) ConstLength() uint64 {
	return a.length.(*ir.Constant).Uint64()
}

// Equal reports whether a and b describe the same access.
func (a MemoryAccess) Equal(b MemoryAccess) bool {
	if a.instr != b.instr || a.pointer != b.pointer || a.align != b.align || a.isRead != b.isRead {
		return false
	}
	ca, okA := a.length.(*ir.Constant)
	cb, okB := b.length.(*ir.Constant)
	if okA && okB {
		return ca.Equal(cb)
	}
	return a.length == b.length
}

func (a MemoryAccess) String() string {
	if !a.Valid() {
		return "<no access>"
	}
	kind := "write"
	if a.isRead {
		kind = "read"
	}
	size := "dynamic"
	if a.HasConstLength() {
		size = fmt.Sprint(a.ConstLength())
	}
	return fmt.Sprintf("%s %s [size %s, align %d]", kind, a.pointer, size, a.align)
}

// staticLength materialises the store size of t as a constant of the
// module's largest legal integer type.
func staticLength(i *ir.Instruction, t *ir.Type) *ir.Constant {
	dl := layout(i)
	return ir.ConstInt(dl.LargestLegalIntType(), dl.TypeStoreSize(t))
}

// layout returns the data layout governing i. The instruction must belong to
// a module with a layout.
func layout(i *ir.Instruction) *ir.DataLayout {
	return i.Module().Layout
}
