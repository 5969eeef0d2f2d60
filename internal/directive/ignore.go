package directive

import (
	"go/ast"
	"go/token"
	"slices"
)

// IgnoreMap records the ignore directives of one file and which of them
// actually suppressed a report.
type IgnoreMap struct {
	fileLevel bool
	lines     map[int]*ignoreEntry
}

type ignoreEntry struct {
	pos  token.Pos
	used bool
}

// BuildIgnoreMap scans file for ignore directives.
//
// A directive in the package doc comment ignores the whole file. Any other
// directive covers its own line and the line below it.
func BuildIgnoreMap(fset *token.FileSet, file *ast.File) *IgnoreMap {
	m := &IgnoreMap{lines: make(map[int]*ignoreEntry)}

	if file.Doc != nil {
		for _, c := range file.Doc.List {
			if IsIgnoreDirective(c.Text) {
				m.fileLevel = true
			}
		}
	}

	for _, cg := range file.Comments {
		if cg == file.Doc {
			continue
		}
		for _, c := range cg.List {
			if IsIgnoreDirective(c.Text) {
				m.Add(fset.Position(c.Pos()).Line, c.Pos())
			}
		}
	}
	return m
}

// Add registers an ignore directive at line.
func (m *IgnoreMap) Add(line int, pos token.Pos) {
	m.lines[line] = &ignoreEntry{pos: pos}
}

// ShouldIgnore reports whether reports on line are suppressed, marking the
// responsible directive as used.
func (m *IgnoreMap) ShouldIgnore(line int) bool {
	if m == nil {
		return false
	}
	if m.fileLevel {
		return true
	}
	for _, l := range [...]int{line, line - 1} {
		if e, ok := m.lines[l]; ok {
			e.used = true
			return true
		}
	}
	return false
}

// Unused returns the positions of directives that suppressed nothing, in
// source order.
func (m *IgnoreMap) Unused() []token.Pos {
	if m == nil {
		return nil
	}
	var out []token.Pos
	for _, e := range m.lines {
		if !e.used {
			out = append(out, e.pos)
		}
	}
	slices.Sort(out)
	return out
}
