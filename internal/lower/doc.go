// Package lower translates go/ssa functions into the ir representation.
//
// # Mapping
//
//	go/ssa                                 ir
//	──────────────────────────────────────────────────────────────
//	*ssa.UnOp (*x)                         load
//	*ssa.Store                             store
//	*dst = *src (struct or array)          memcpy, static length
//	*ssa.Alloc (stack)                     alloca
//	*ssa.Alloc (heap)                      call @NOINSTRUMENT_runtime.newobject
//	*ssa.MakeSlice                         call @NOINSTRUMENT_runtime.makeslice
//	*ssa.FieldAddr, *ssa.IndexAddr         getelementptr
//	copy(dst, src)                         memmove, dynamic length
//	clear(s) on a slice                    memset, dynamic length
//	atomic.CompareAndSwap*                 cmpxchg
//	atomic.Add*, Swap*, And*, Or*          atomicrmw
//	atomic.Load*, Store*                   atomic load / store
//	static call                            call
//	anything else                          other
//
// The same shapes are recognised for the methods of the sync/atomic types
// (Int32, Uint64, Bool, Pointer[T], ...), where the accessed word is the
// type's value field.
//
// Runtime allocation calls record the allocated element type in
// ir.Instruction.Alloc.
//
// Alignments come from the Go type system: every Go value is aligned to
// Alignof of its type, so loads, stores and derived addresses carry that
// alignment.
package lower
