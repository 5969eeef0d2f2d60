// Package debug renders human-readable dumps of classified accesses.
package debug

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/memaccess"
)

// FormatFunction returns a dump of fn listing each instruction together with
// the accesses it performs.
//
//	Function: example.com/p.inc
//	  line 7: %t0 = load i64, ptr %arg0, align 8
//	    └─ read  %arg0 size 8 align 8
//	  line 7: store i64 %t1, ptr %arg0, align 8
//	    └─ write %arg0 size 8 align 8
//	  Total: 1 reads, 1 writes
func FormatFunction(fn *ir.Function, fset *token.FileSet) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Function: %s\n", fn.Name())
	reads, writes := 0, 0
	for _, instr := range fn.Instructions() {
		accesses := memaccess.AppendAccesses(nil, instr)
		if len(accesses) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  %s: %s\n", location(fset, instr.Pos), instr.Format())
		for n, a := range accesses {
			branch := "├─"
			if n == len(accesses)-1 {
				branch = "└─"
			}
			kind := "write"
			if a.IsRead() {
				kind = "read "
				reads++
			} else {
				writes++
			}
			fmt.Fprintf(&buf, "    %s %s %s size %s align %d\n", branch, kind, name(a.Pointer()), Size(a), a.Alignment())
		}
	}
	fmt.Fprintf(&buf, "  Total: %d reads, %d writes\n", reads, writes)
	return buf.String()
}

// Size renders the size of an access: the byte count when constant,
// "dynamic" otherwise.
func Size(a memaccess.MemoryAccess) string {
	if a.HasConstLength() {
		return fmt.Sprint(a.ConstLength())
	}
	return "dynamic"
}

func location(fset *token.FileSet, pos token.Pos) string {
	if fset == nil || !pos.IsValid() {
		return "line ?"
	}
	return fmt.Sprintf("line %d", fset.Position(pos).Line)
}

func name(v ir.Value) string {
	switch v := v.(type) {
	case *ir.Global:
		return "@" + v.Name()
	case *ir.Function:
		return "@" + v.Name()
	case nil:
		return "<nil>"
	}
	if v.Name() == "" {
		return v.String()
	}
	return "%" + v.Name()
}
