package allocs

import (
	"fmt"
	"io"

	"github.com/mpyw/memaccess/internal/ir"
)

// Sites holds the allocation sites of a module, globals apart from the
// sites of each function.
type Sites struct {
	globals []Site
	funcs   map[*ir.Function][]Site
}

// Collect finds every allocation site of m.
func Collect(m *ir.Module) *Sites {
	s := &Sites{funcs: make(map[*ir.Function][]Site)}
	for _, g := range m.Globals() {
		s.globals = append(s.globals, ForGlobal(g))
	}
	for _, fn := range m.Functions() {
		for _, i := range fn.Instructions() {
			if site, ok := TryCreate(i); ok {
				s.funcs[fn] = append(s.funcs[fn], site)
			}
		}
	}
	return s
}

// Globals returns the global variable sites in declaration order.
func (s *Sites) Globals() []Site { return s.globals }

// Function returns the sites of fn in instruction order.
func (s *Sites) Function(fn *ir.Function) []Site { return s.funcs[fn] }

// Describe writes a two-line description of site to w:
//
//	heap alloc: ptr %t0
//	  byte size: 8
func Describe(w io.Writer, site Site, dl *ir.DataLayout) {
	size := "unknown"
	if n := site.ConstSize(dl); n != UnknownSize {
		size = fmt.Sprint(n)
	}
	fmt.Fprintf(w, "%s alloc: %s\n  byte size: %s\n", site.Kind(), site.Value(), size)
}
