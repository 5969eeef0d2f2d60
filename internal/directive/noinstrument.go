package directive

import (
	"go/ast"
	"go/token"
)

// NoInstrumentSet holds the functions of a file marked with
// //memaccess:noinstrument, keyed by the position of the function name.
// SSA functions report that same position from Pos.
type NoInstrumentSet map[token.Pos]bool

// BuildNoInstrumentSet collects the marked function declarations of file.
// Function literals have no doc comment and cannot be marked.
func BuildNoInstrumentSet(file *ast.File) NoInstrumentSet {
	set := make(NoInstrumentSet)
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}
		for _, c := range fd.Doc.List {
			if IsNoInstrumentDirective(c.Text) {
				set[fd.Name.Pos()] = true
				break
			}
		}
	}
	return set
}

// Merge adds every entry of other to s.
func (s NoInstrumentSet) Merge(other NoInstrumentSet) {
	for pos := range other {
		s[pos] = true
	}
}

// Contains reports whether the function named at pos is marked.
func (s NoInstrumentSet) Contains(pos token.Pos) bool { return s[pos] }
