package ir

import "fmt"

// DataLayout answers size and alignment questions for a target.
type DataLayout struct {
	// PointerSize is the size of a pointer in bytes.
	PointerSize uint64
	// MaxAlign caps the ABI alignment of any type. Zero means no cap.
	MaxAlign uint64
	// LegalIntWidths lists the native integer widths in bits, ascending.
	LegalIntWidths []int
}

// NewDataLayout returns a layout for a target with the given pointer size and
// maximum alignment. Legal integer widths are 8, 16, 32 and, on 64-bit
// targets, 64 bits.
func NewDataLayout(pointerSize, maxAlign uint64) *DataLayout {
	widths := []int{8, 16, 32}
	if pointerSize >= 8 {
		widths = append(widths, 64)
	}
	return &DataLayout{
		PointerSize:    pointerSize,
		MaxAlign:       maxAlign,
		LegalIntWidths: widths,
	}
}

// LargestLegalIntType returns the widest native integer type.
func (dl *DataLayout) LargestLegalIntType() *Type {
	if len(dl.LegalIntWidths) == 0 {
		return IntType(int(dl.PointerSize * 8))
	}
	return IntType(dl.LegalIntWidths[len(dl.LegalIntWidths)-1])
}

// TypeSizeInBits returns the number of bits needed to hold a value of type t.
// It panics for unsized types.
func (dl *DataLayout) TypeSizeInBits(t *Type) uint64 {
	switch t.Kind {
	case IntKind, FloatKind:
		return uint64(t.Bits)
	case PointerKind:
		return dl.PointerSize * 8
	case ArrayKind:
		return dl.TypeAllocSize(t.Elem) * t.Len * 8
	case StructKind:
		return dl.structSize(t) * 8
	}
	panic(fmt.Sprintf("ir: size of unsized type %s", t))
}

// TypeStoreSize returns the maximum number of bytes written when storing a
// value of type t.
func (dl *DataLayout) TypeStoreSize(t *Type) uint64 {
	return (dl.TypeSizeInBits(t) + 7) / 8
}

// TypeAllocSize returns the distance in bytes between consecutive values of
// type t in memory, including tail padding.
func (dl *DataLayout) TypeAllocSize(t *Type) uint64 {
	return alignTo(dl.TypeStoreSize(t), dl.ABIAlignment(t))
}

// ABIAlignment returns the required alignment of type t in bytes.
func (dl *DataLayout) ABIAlignment(t *Type) uint64 {
	var a uint64
	switch t.Kind {
	case IntKind, FloatKind:
		a = nextPowerOf2((uint64(t.Bits) + 7) / 8)
	case PointerKind:
		a = dl.PointerSize
	case ArrayKind:
		return dl.ABIAlignment(t.Elem)
	case StructKind:
		a = 1
		for _, f := range t.Fields {
			a = max(a, dl.ABIAlignment(f))
		}
		return a
	default:
		panic(fmt.Sprintf("ir: alignment of unsized type %s", t))
	}
	if dl.MaxAlign != 0 && a > dl.MaxAlign {
		a = dl.MaxAlign
	}
	return a
}

// FieldOffsets returns the byte offset of each field of struct type t.
func (dl *DataLayout) FieldOffsets(t *Type) []uint64 {
	offsets := make([]uint64, len(t.Fields))
	var off uint64
	for i, f := range t.Fields {
		off = alignTo(off, dl.ABIAlignment(f))
		offsets[i] = off
		off += dl.TypeAllocSize(f)
	}
	return offsets
}

func (dl *DataLayout) structSize(t *Type) uint64 {
	n := len(t.Fields)
	if n == 0 {
		return 0
	}
	end := dl.FieldOffsets(t)[n-1] + dl.TypeAllocSize(t.Fields[n-1])
	return alignTo(end, dl.ABIAlignment(t))
}

// PointerAlignment returns the alignment in bytes known to hold for the
// address held by v, or 0 when nothing is known.
func (dl *DataLayout) PointerAlignment(v Value) uint64 {
	switch v := v.(type) {
	case *Global:
		if v.Align != 0 {
			return v.Align
		}
		if v.ValueType != nil && v.ValueType.IsSized() {
			return dl.ABIAlignment(v.ValueType)
		}
	case *Argument:
		return v.Align
	case *Instruction:
		switch v.Op {
		case OpAlloca, OpGEP, OpCall:
			return v.Align
		}
	}
	return 0
}

func alignTo(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func nextPowerOf2(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}
