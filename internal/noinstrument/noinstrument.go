// Package noinstrument manages the marker that excludes functions from
// instrumentation and the runtime helpers that lowering and instrumentation
// passes declare in a module.
//
// A value is marked when its name starts with [Prefix]. Mangled C++ names
// ("_Z...") embed the identifier, so for them the prefix may appear anywhere
// after the mangling header. A function is also marked when it carries the
// [ir.AttrNoInstrument] attribute.
package noinstrument

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mpyw/memaccess/internal/ir"
)

// Prefix marks a value as not to be instrumented.
const Prefix = "NOINSTRUMENT_"

// ErrSignatureMismatch is returned by GetOrInsert when the existing helper has
// a different signature.
var ErrSignatureMismatch = errors.New("unexpected type for helper function")

// Is reports whether v is marked as not to be instrumented.
func Is(v ir.Value) bool {
	if v == nil {
		return false
	}
	if fn, ok := v.(*ir.Function); ok && fn.HasAttr(ir.AttrNoInstrument) {
		return true
	}
	return IsName(v.Name())
}

// IsName reports whether name carries the marker.
func IsName(name string) bool {
	if strings.HasPrefix(name, Prefix) {
		return true
	}
	if strings.HasPrefix(name, "_Z") {
		return strings.Contains(name[2:], Prefix)
	}
	return false
}

// Set marks v by prefixing its name.
func Set(v ir.Named) {
	v.SetName(Prefix + v.Name())
}

// GetOrInsert returns the helper Prefix+name, declaring it with signature sig
// if it does not exist yet.
func GetOrInsert(m *ir.Module, name string, sig *ir.Signature) (*ir.Function, error) {
	full := Prefix + name
	fn := m.GetOrInsertFunction(full, sig)
	if !fn.Sig.Equal(sig) {
		return nil, fmt.Errorf("%w %s: expected %s, found %s", ErrSignatureMismatch, full, sig, fn.Sig)
	}
	return fn, nil
}
