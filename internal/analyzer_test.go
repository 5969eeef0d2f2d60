package internal

import (
	"bytes"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/go/analysis"

	"github.com/mpyw/memaccess/internal/allocs"
	"github.com/mpyw/memaccess/internal/config"
	"github.com/mpyw/memaccess/internal/directive"
	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/memaccess"
	"github.com/mpyw/memaccess/internal/noinstrument"
	driver "github.com/mpyw/memaccess/internal/pass"
)

// =============================================================================
// Reporter Tests
// =============================================================================

const reporterSrc = `package p

func f() {
	//memaccess:ignore
	x()
	y()
	//memaccess:ignore
}
`

type diag struct {
	Line    int
	Message string
}

type reporterFixture struct {
	fset  *token.FileSet
	file  *token.File
	pass  *analysis.Pass
	diags *[]diag
	maps  map[string]*directive.IgnoreMap
	mod   *ir.Module
}

func newReporterFixture(t *testing.T) *reporterFixture {
	t.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", reporterSrc, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	tf := fset.File(f.Pos())

	var diags []diag
	pass := &analysis.Pass{
		Fset: fset,
		Report: func(d analysis.Diagnostic) {
			diags = append(diags, diag{Line: fset.Position(d.Pos).Line, Message: d.Message})
		},
	}

	// Line 5 is covered by a directive, line 6 is not, and the last access
	// has no position at all.
	mod := ir.NewModule("p", ir.NewDataLayout(8, 8))
	fn := mod.NewFunction("p.f", &ir.Signature{Params: []*ir.Type{ir.Ptr}}, ir.ExternalLinkage)
	fn.Params[0].Align = 8
	b := ir.NewBuilder(fn.NewBlock("entry"))
	b.SetPos(tf.LineStart(5))
	b.Store(ir.ConstInt(ir.I64, 1), fn.Params[0], 8)
	b.SetPos(tf.LineStart(6))
	b.Load(ir.I64, fn.Params[0], 8)
	b.CmpXchg(fn.Params[0], ir.ConstInt(ir.I64, 0), ir.ConstInt(ir.I64, 1))
	b.SetPos(token.NoPos)
	b.Load(ir.I64, fn.Params[0], 8)
	b.Ret()

	return &reporterFixture{
		fset:  fset,
		file:  tf,
		pass:  pass,
		diags: &diags,
		maps:  map[string]*directive.IgnoreMap{"p.go": directive.BuildIgnoreMap(fset, f)},
		mod:   mod,
	}
}

func TestReporter(t *testing.T) {
	t.Parallel()

	fx := newReporterFixture(t)
	var dump bytes.Buffer
	r := newReporter(fx.pass, config.Default(), fx.maps, Options{DebugFilter: regexpMust(t, `^p\.f$`), DebugOut: &dump})

	if driver.Run(fx.mod, r) {
		t.Error("reporter should not report changes")
	}

	want := []diag{
		{Line: 6, Message: "memory read: 8 bytes, align 8"},
		{Line: 6, Message: "memory write: 8 bytes, align 8"},
		{Line: 7, Message: "unused memaccess:ignore directive"},
	}
	if diff := cmp.Diff(want, *fx.diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	wantResult := &Result{Functions: []FunctionSummary{{Name: "p.f", Reads: 3, Writes: 2}}}
	if diff := cmp.Diff(wantResult, r.result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(dump.String(), "Function: p.f") {
		t.Errorf("debug dump missing function header:\n%s", dump.String())
	}
}

func TestReporter_ReportFilter(t *testing.T) {
	t.Parallel()

	fx := newReporterFixture(t)
	off := false
	cfg := &config.Config{Report: config.Report{Reads: &off}}
	driver.Run(fx.mod, newReporter(fx.pass, cfg, fx.maps, Options{}))

	want := []diag{
		{Line: 6, Message: "memory write: 8 bytes, align 8"},
		{Line: 7, Message: "unused memaccess:ignore directive"},
	}
	if diff := cmp.Diff(want, *fx.diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestReporter_NoInstrument(t *testing.T) {
	t.Parallel()

	fx := newReporterFixture(t)
	fx.mod.Function("p.f").AddAttr(ir.AttrNoInstrument)
	r := newReporter(fx.pass, config.Default(), fx.maps, Options{})
	driver.Run(fx.mod, r)

	// Both directives are unused once the function is skipped.
	want := []diag{
		{Line: 4, Message: "unused memaccess:ignore directive"},
		{Line: 7, Message: "unused memaccess:ignore directive"},
	}
	if diff := cmp.Diff(want, *fx.diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if len(r.result.Functions) != 0 {
		t.Errorf("functions = %v, want none", r.result.Functions)
	}
}

func TestReporter_DirectiveCoversDisabledKind(t *testing.T) {
	t.Parallel()

	fx := newReporterFixture(t)
	off := false
	cfg := &config.Config{Report: config.Report{Writes: &off}}
	driver.Run(fx.mod, newReporter(fx.pass, cfg, fx.maps, Options{}))

	// The directive on line 4 covers the unreported store on line 5.
	want := []diag{
		{Line: 6, Message: "memory read: 8 bytes, align 8"},
		{Line: 7, Message: "unused memaccess:ignore directive"},
	}
	if diff := cmp.Diff(want, *fx.diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestReporter_Allocs(t *testing.T) {
	t.Parallel()

	fx := newReporterFixture(t)
	hidden := fx.mod.NewGlobal("p.hidden", ir.I64, 8)
	hidden.Pos = fx.file.LineStart(5)
	v := fx.mod.NewGlobal("p.v", ir.I32, 4)
	v.Pos = fx.file.LineStart(6)
	guard := fx.mod.NewGlobal("p.init$guard", ir.I8, 1)
	guard.Pos = fx.file.LineStart(6)
	noinstrument.Set(guard)

	fn := fx.mod.NewFunction("p.g", &ir.Signature{}, ir.ExternalLinkage)
	b := ir.NewBuilder(fn.NewBlock("entry"))
	b.SetPos(fx.file.LineStart(6))
	b.Alloca(ir.ArrayOf(ir.I64, 4), 8)
	b.Ret()

	on, off := true, false
	cfg := &config.Config{Report: config.Report{Reads: &off, Writes: &off, Allocs: &on}}
	var dump bytes.Buffer
	r := newReporter(fx.pass, cfg, fx.maps, Options{DebugFilter: regexpMust(t, `^p\.g$`), DebugOut: &dump})
	driver.Run(fx.mod, r)

	want := []diag{
		{Line: 6, Message: "global allocation: 4 bytes"},
		{Line: 6, Message: "stack allocation: 32 bytes"},
		{Line: 7, Message: "unused memaccess:ignore directive"},
	}
	if diff := cmp.Diff(want, *fx.diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	wantResult := &Result{Functions: []FunctionSummary{
		{Name: "p.f", Reads: 3, Writes: 2},
		{Name: "p.g", Allocs: 1},
	}}
	if diff := cmp.Diff(wantResult, r.result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(dump.String(), "stack alloc: ptr %t0\n  byte size: 32\n") {
		t.Errorf("debug dump missing allocation site:\n%s", dump.String())
	}
}

func TestReporter_SkippedFile(t *testing.T) {
	t.Parallel()

	fx := newReporterFixture(t)
	r := newReporter(fx.pass, config.Default(), fx.maps, Options{SkipFiles: map[string]bool{"p.go": true}})
	driver.Run(fx.mod, r)

	// Accesses in skipped files are dropped; directives are still checked.
	want := []diag{
		{Line: 4, Message: "unused memaccess:ignore directive"},
		{Line: 7, Message: "unused memaccess:ignore directive"},
	}
	if diff := cmp.Diff(want, *fx.diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Message Tests
// =============================================================================

func TestMessage(t *testing.T) {
	t.Parallel()

	m := ir.NewModule("p", ir.NewDataLayout(8, 8))
	fn := m.NewFunction("f", &ir.Signature{Params: []*ir.Type{ir.Ptr, ir.Ptr, ir.I64}}, ir.ExternalLinkage)
	b := ir.NewBuilder(fn.NewBlock("entry"))
	dst, src, n := fn.Params[0], fn.Params[1], fn.Params[2]

	tests := []struct {
		name   string
		access memaccess.MemoryAccess
		want   string
	}{
		{
			name:   "load",
			access: memaccess.ReadOf(b.Load(ir.I32, src, 4)).MemoryAccess,
			want:   "memory read: 4 bytes, align 4",
		},
		{
			name:   "store",
			access: memaccess.WriteOf(b.Store(ir.ConstInt(ir.I16, 1), dst, 2)).MemoryAccess,
			want:   "memory write: 2 bytes, align 2",
		},
		{
			name:   "memmove dynamic",
			access: memaccess.WriteOf(b.MemMove(dst, src, n, 1)).MemoryAccess,
			want:   "memory write: dynamic size, align 1",
		},
		{
			name:   "memcpy constant",
			access: memaccess.ReadOf(b.MemCpy(dst, src, ir.ConstInt(ir.I64, 24), 8)).MemoryAccess,
			want:   "memory read: 24 bytes, align 8",
		},
		{
			name:   "unknown alignment",
			access: memaccess.ReadOf(b.AtomicRMW(ir.RMWAdd, src, ir.ConstInt(ir.I64, 1))).MemoryAccess,
			want:   "memory read: 8 bytes, align 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Message(tt.access); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllocMessage(t *testing.T) {
	t.Parallel()

	m := ir.NewModule("p", ir.NewDataLayout(8, 8))
	fn := m.NewFunction("f", &ir.Signature{Params: []*ir.Type{ir.I64}}, ir.ExternalLinkage)
	makeslice := m.NewFunction("runtime.makeslice", &ir.Signature{
		Params: []*ir.Type{ir.Ptr, ir.I64, ir.I64},
		Result: ir.StructOf(ir.Ptr, ir.I64, ir.I64),
	}, ir.ExternalLinkage)
	b := ir.NewBuilder(fn.NewBlock("entry"))

	slot, _ := allocs.TryCreate(b.Alloca(ir.I16, 2))
	call := b.Call(makeslice, ir.NewLiteral(ir.Ptr, "type"), fn.Params[0], fn.Params[0])
	call.Alloc = ir.I32
	heap, _ := allocs.TryCreate(call)
	global := allocs.ForGlobal(m.NewGlobal("g", ir.StructOf(ir.I64, ir.I8), 8))

	tests := []struct {
		name string
		site allocs.Site
		want string
	}{
		{"stack", slot, "stack allocation: 2 bytes"},
		{"heap dynamic", heap, "heap allocation: dynamic size"},
		{"global", global, "global allocation: 16 bytes"},
	}
	for _, tt := range tests {
		if got := AllocMessage(tt.site, m.Layout); got != tt.want {
			t.Errorf("%s: AllocMessage() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func regexpMust(t *testing.T, expr string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(expr)
	if err != nil {
		t.Fatal(err)
	}
	return re
}
