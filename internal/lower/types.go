package lower

import (
	"errors"
	"fmt"
	"go/types"

	"golang.org/x/tools/go/types/typeutil"

	"github.com/mpyw/memaccess/internal/ir"
)

// ErrUnsupportedType is returned for types without a concrete layout, such
// as type parameters.
var ErrUnsupportedType = errors.New("type has no concrete layout")

// typeLowerer converts go/types types into ir types, caching results.
type typeLowerer struct {
	sizes types.Sizes
	word  *ir.Type
	cache typeutil.Map
}

func newTypeLowerer(sizes types.Sizes) *typeLowerer {
	bits := sizes.Sizeof(types.Typ[types.UnsafePointer]) * 8
	return &typeLowerer{sizes: sizes, word: ir.IntType(int(bits))}
}

func (tl *typeLowerer) lower(t types.Type) (*ir.Type, error) {
	if cached, ok := tl.cache.At(t).(*ir.Type); ok {
		return cached, nil
	}
	lt, err := tl.lowerUncached(t)
	if err != nil {
		return nil, err
	}
	tl.cache.Set(t, lt)
	return lt, nil
}

func (tl *typeLowerer) lowerUncached(t types.Type) (*ir.Type, error) {
	if _, ok := types.Unalias(t).(*types.TypeParam); ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return tl.basic(u)
	case *types.Pointer, *types.Map, *types.Chan, *types.Signature:
		return ir.Ptr, nil
	case *types.Slice:
		return ir.StructOf(ir.Ptr, tl.word, tl.word), nil
	case *types.Interface:
		return ir.StructOf(ir.Ptr, ir.Ptr), nil
	case *types.Array:
		elem, err := tl.lower(u.Elem())
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(elem, uint64(u.Len())), nil
	case *types.Struct:
		fields := make([]*ir.Type, u.NumFields())
		for i := range fields {
			f, err := tl.lower(u.Field(i).Type())
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		if tl.trailingZeroSize(u) {
			fields = append(fields, ir.I8)
		}
		return ir.StructOf(fields...), nil
	case *types.Tuple:
		switch u.Len() {
		case 0:
			return ir.Void, nil
		case 1:
			return tl.lower(u.At(0).Type())
		}
		fields := make([]*ir.Type, u.Len())
		for i := range fields {
			f, err := tl.lower(u.At(i).Type())
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return ir.StructOf(fields...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// trailingZeroSize reports whether the last field of s has size zero but
// does not start at offset zero. The compiler pads such structs by one byte
// so that a pointer to the field cannot point past the object.
func (tl *typeLowerer) trailingZeroSize(s *types.Struct) bool {
	n := s.NumFields()
	if n == 0 {
		return false
	}
	fields := make([]*types.Var, n)
	for i := range fields {
		fields[i] = s.Field(i)
	}
	last := fields[n-1]
	return tl.sizes.Sizeof(last.Type()) == 0 && tl.sizes.Offsetsof(fields)[n-1] > 0
}

func (tl *typeLowerer) basic(b *types.Basic) (*ir.Type, error) {
	if b.Info()&types.IsUntyped != 0 {
		if b.Kind() == types.UntypedNil {
			return ir.Ptr, nil
		}
		return tl.lower(types.Default(b))
	}
	switch b.Kind() {
	case types.Bool, types.Int8, types.Uint8:
		return ir.I8, nil
	case types.Int16, types.Uint16:
		return ir.I16, nil
	case types.Int32, types.Uint32:
		return ir.I32, nil
	case types.Int64, types.Uint64:
		return ir.I64, nil
	case types.Int, types.Uint, types.Uintptr:
		return tl.word, nil
	case types.Float32:
		return ir.F32, nil
	case types.Float64:
		return ir.F64, nil
	case types.Complex64:
		return ir.StructOf(ir.F32, ir.F32), nil
	case types.Complex128:
		return ir.StructOf(ir.F64, ir.F64), nil
	case types.String:
		return ir.StructOf(ir.Ptr, tl.word), nil
	case types.UnsafePointer:
		return ir.Ptr, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, b)
}

// elem returns the pointee type of a pointer type.
func elem(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return nil
}
