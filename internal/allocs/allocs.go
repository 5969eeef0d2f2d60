// Package allocs classifies the allocation sites of a module.
//
// A site is a stack slot (alloca), a call to a runtime allocation function
// or a global variable. Runtime functions are recognised by name, with or
// without the noinstrument prefix the lowering gives its helper
// declarations:
//
//	runtime.newobject(type)           one value of the call's Alloc type
//	runtime.makeslice(type, len, cap) cap values of the call's Alloc type
package allocs

import (
	"strings"

	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/noinstrument"
)

// UnknownSize is returned by Site.ConstSize when the byte size of an
// allocation is not a constant.
const UnknownSize = ^uint64(0)

// Kind is a set of allocation kinds.
type Kind uint8

const (
	New Kind = 1 << iota
	MakeSlice
	Alloca
	Global

	HeapAlloc = New | MakeSlice
	AnyAlloc  = HeapAlloc | Alloca | Global
)

// String returns the storage class of k: "stack", "heap" or "global".
func (k Kind) String() string {
	switch {
	case k&Alloca != 0:
		return "stack"
	case k&HeapAlloc != 0:
		return "heap"
	case k&Global != 0:
		return "global"
	}
	return "none"
}

// funcInfo describes a runtime allocation function. Argument indices count
// from zero; -1 means the function has no such argument.
type funcInfo struct {
	kind    Kind
	membArg int // number of elements
	sizeArg int // element size in bytes
}

var allocFuncs = map[string]funcInfo{
	"runtime.newobject": {kind: New, membArg: -1, sizeArg: -1},
	"runtime.makeslice": {kind: MakeSlice, membArg: 2, sizeArg: -1},
}

// Site is an allocation site.
type Site struct {
	value   ir.Value
	kind    Kind
	membArg int
	sizeArg int
}

// TryCreate returns the site allocated by i, if i is an alloca or a call to a
// runtime allocation function.
func TryCreate(i *ir.Instruction) (Site, bool) {
	if i == nil {
		return Site{}, false
	}
	switch i.Op {
	case ir.OpAlloca:
		return Site{value: i, kind: Alloca, membArg: -1, sizeArg: -1}, true
	case ir.OpCall:
		fn := i.Callee()
		if fn == nil {
			return Site{}, false
		}
		info, ok := allocFuncs[strings.TrimPrefix(fn.Name(), noinstrument.Prefix)]
		if !ok {
			return Site{}, false
		}
		return Site{value: i, kind: info.kind, membArg: info.membArg, sizeArg: info.sizeArg}, true
	}
	return Site{}, false
}

// ForGlobal returns the site of global variable g.
func ForGlobal(g *ir.Global) Site {
	return Site{value: g, kind: Global, membArg: -1, sizeArg: -1}
}

// Value returns the allocating instruction or the global.
func (s Site) Value() ir.Value { return s.value }

func (s Site) Kind() Kind { return s.kind }

func (s Site) IsStackAlloc() bool  { return s.kind&Alloca != 0 }
func (s Site) IsHeapAlloc() bool   { return s.kind&HeapAlloc != 0 }
func (s Site) IsGlobalAlloc() bool { return s.kind&Global != 0 }

// Instruction returns the allocating instruction, or nil for a global.
func (s Site) Instruction() *ir.Instruction {
	i, _ := s.value.(*ir.Instruction)
	return i
}

// Global returns the allocated global, or nil for other sites.
func (s Site) Global() *ir.Global {
	g, _ := s.value.(*ir.Global)
	return g
}

// SizeFactors returns the values whose product is the byte size of the
// allocation. Constant factors are i64 constants.
func (s Site) SizeFactors(dl *ir.DataLayout) []ir.Value {
	switch {
	case s.IsGlobalAlloc():
		g := s.Global()
		if g == nil || g.ValueType == nil || !g.ValueType.IsSized() {
			return nil
		}
		return []ir.Value{ir.ConstInt(ir.I64, dl.TypeStoreSize(g.ValueType))}
	case s.IsStackAlloc(), s.IsHeapAlloc():
		i := s.Instruction()
		if i == nil {
			return nil
		}
		var factors []ir.Value
		if i.Alloc != nil && i.Alloc.IsSized() {
			factors = append(factors, ir.ConstInt(ir.I64, dl.TypeAllocSize(i.Alloc)))
		}
		args := i.Args()
		if s.sizeArg >= 0 && s.sizeArg < len(args) {
			factors = append(factors, args[s.sizeArg])
		}
		if s.membArg >= 0 && s.membArg < len(args) {
			factors = append(factors, args[s.membArg])
		}
		return factors
	}
	return nil
}

// ConstSize returns the byte size of the allocation, or UnknownSize when a
// factor is not a constant.
func (s Site) ConstSize(dl *ir.DataLayout) uint64 {
	factors := s.SizeFactors(dl)
	if len(factors) == 0 {
		return UnknownSize
	}
	size := uint64(1)
	for _, f := range factors {
		c, ok := f.(*ir.Constant)
		if !ok {
			return UnknownSize
		}
		size *= c.Uint64()
	}
	return size
}
