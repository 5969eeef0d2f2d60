// Package memaccess classifies instructions that touch memory.
//
// Every instruction is tried against a fixed list of shapes. A matching
// shape yields a descriptor holding the accessed address, the number of bytes
// touched and the alignment of the access:
//
//	Shape                    Read  Write  Size source
//	─────────────────────────────────────────────────────────────
//	load                      ✓           store size of loaded type
//	store                           ✓     store size of stored value
//	memcpy / memmove          ✓     ✓     length operand
//	memset                          ✓     length operand
//	cmpxchg                   ✓     ✓     store size of compare operand
//	atomicrmw                 ✓     ✓     store size of value operand
//
// Instructions of any other shape produce an empty descriptor. That is the
// common case and not an error:
//
//	if r := memaccess.ReadOf(instr); r.Valid() {
//	    hook(r.Pointer(), r.Length())
//	}
//
// Descriptors borrow the instruction and its operands; they must not be kept
// beyond the lifetime of the module they were derived from.
package memaccess
