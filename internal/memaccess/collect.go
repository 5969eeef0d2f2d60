package memaccess

import "github.com/mpyw/memaccess/internal/ir"

// Collect returns every memory access of fn in instruction order. An
// instruction that both reads and writes contributes its read first.
func Collect(fn *ir.Function) []MemoryAccess {
	var out []MemoryAccess
	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			out = AppendAccesses(out, i)
		}
	}
	return out
}

// AppendAccesses appends the accesses performed by i to dst.
func AppendAccesses(dst []MemoryAccess, i *ir.Instruction) []MemoryAccess {
	if r := ReadOf(i); r.Valid() {
		dst = append(dst, r.MemoryAccess)
	}
	if w := WriteOf(i); w.Valid() {
		dst = append(dst, w.MemoryAccess)
	}
	return dst
}
