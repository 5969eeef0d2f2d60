package ir

import (
	"fmt"
	"strings"
)

// TypeKind discriminates the shape of a Type.
type TypeKind int

const (
	VoidKind TypeKind = iota
	IntKind
	FloatKind
	PointerKind
	ArrayKind
	StructKind
)

// Type describes the layout-relevant shape of a value.
//
// Pointers are opaque: the pointee type is carried by the instruction that
// dereferences the pointer, never by the pointer type itself.
type Type struct {
	Kind   TypeKind
	Bits   int     // IntKind, FloatKind
	Elem   *Type   // ArrayKind
	Len    uint64  // ArrayKind
	Fields []*Type // StructKind
}

// Common types.
var (
	Void = &Type{Kind: VoidKind}
	Ptr  = &Type{Kind: PointerKind}
	I1   = IntType(1)
	I8   = IntType(8)
	I16  = IntType(16)
	I32  = IntType(32)
	I64  = IntType(64)
	F32  = FloatType(32)
	F64  = FloatType(64)
)

// IntType returns an integer type of the given bit width.
func IntType(bits int) *Type { return &Type{Kind: IntKind, Bits: bits} }

// FloatType returns a floating point type of the given bit width.
func FloatType(bits int) *Type { return &Type{Kind: FloatKind, Bits: bits} }

// ArrayOf returns an array type of n elements.
func ArrayOf(elem *Type, n uint64) *Type { return &Type{Kind: ArrayKind, Elem: elem, Len: n} }

// StructOf returns a struct type with the given fields in order.
func StructOf(fields ...*Type) *Type { return &Type{Kind: StructKind, Fields: fields} }

// IsSized reports whether the type has a storage size.
func (t *Type) IsSized() bool {
	switch t.Kind {
	case VoidKind:
		return false
	case ArrayKind:
		return t.Elem.IsSized()
	case StructKind:
		for _, f := range t.Fields {
			if !f.IsSized() {
				return false
			}
		}
	}
	return true
}

// Equal reports whether t and u describe the same type.
func (t *Type) Equal(u *Type) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil || t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case IntKind, FloatKind:
		return t.Bits == u.Bits
	case ArrayKind:
		return t.Len == u.Len && t.Elem.Equal(u.Elem)
	case StructKind:
		if len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Equal(u.Fields[i]) {
				return false
			}
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case VoidKind:
		return "void"
	case IntKind:
		return fmt.Sprintf("i%d", t.Bits)
	case FloatKind:
		if t.Bits == 32 {
			return "float"
		}
		return "double"
	case PointerKind:
		return "ptr"
	case ArrayKind:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	case StructKind:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	return "?"
}

// Signature is the type of a function.
type Signature struct {
	Params   []*Type
	Result   *Type
	Variadic bool
}

// Equal reports whether two signatures are identical.
func (s *Signature) Equal(o *Signature) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.Variadic != o.Variadic || len(s.Params) != len(o.Params) {
		return false
	}
	if !s.result().Equal(o.result()) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (s *Signature) result() *Type {
	if s.Result == nil {
		return Void
	}
	return s.Result
}

func (s *Signature) String() string {
	parts := make([]string, 0, len(s.Params)+1)
	for _, p := range s.Params {
		parts = append(parts, p.String())
	}
	if s.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("%s (%s)", s.result(), strings.Join(parts, ", "))
}
