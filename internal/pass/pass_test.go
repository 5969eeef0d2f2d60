package pass

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/memaccess"
	"github.com/mpyw/memaccess/internal/noinstrument"
)

// recorder records every hook invocation.
type recorder struct {
	calls    []string
	init     bool
	apply    map[string]bool
	fin      bool
	accesses []memaccess.MemoryAccess
}

func (r *recorder) Initialize(m *ir.Module) bool {
	r.calls = append(r.calls, "init:"+m.Name)
	return r.init
}

func (r *recorder) Apply(fn *ir.Function) bool {
	r.calls = append(r.calls, "apply:"+fn.Name())
	r.accesses = append(r.accesses, memaccess.Collect(fn)...)
	return r.apply[fn.Name()]
}

func (r *recorder) Finalize(m *ir.Module) bool {
	r.calls = append(r.calls, "fini:"+m.Name)
	return r.fin
}

// newScenarioModule builds a module with a declaration, a marked function
// and a plain function holding one load and one store.
func newScenarioModule(t *testing.T) *ir.Module {
	t.Helper()

	m := ir.NewModule("M", ir.NewDataLayout(8, 8))
	m.NewFunction("decl", &ir.Signature{}, ir.ExternalLinkage)

	noinst := m.NewFunction("noinst", &ir.Signature{}, ir.InternalLinkage)
	noinstrument.Set(noinst)
	b := ir.NewBuilder(noinst.NewBlock("entry"))
	g := m.NewGlobal("g", ir.I64, 8)
	b.Store(ir.ConstInt(ir.I64, 1), g, 8)
	b.Ret()

	foo := m.NewFunction("foo", &ir.Signature{Params: []*ir.Type{ir.Ptr}}, ir.ExternalLinkage)
	b = ir.NewBuilder(foo.NewBlock("entry"))
	v := b.Load(ir.I32, foo.Params[0], 4)
	b.Binary(ir.BinAdd, v, ir.ConstInt(ir.I32, 1))
	b.Store(v, g, 4)
	b.Ret()
	return m
}

func TestRun_Scenario(t *testing.T) {
	t.Parallel()

	m := newScenarioModule(t)
	r := &recorder{}
	changed := Run(m, r)

	if changed {
		t.Error("no hook reported a change")
	}
	want := []string{"init:M", "apply:foo", "fini:M"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if len(r.accesses) != 2 {
		t.Fatalf("accesses = %d, want 2", len(r.accesses))
	}
	if !r.accesses[0].IsRead() || r.accesses[0].Instruction().Op != ir.OpLoad {
		t.Error("first access must be the load, classified as read")
	}
	if !r.accesses[1].IsWrite() || r.accesses[1].Instruction().Op != ir.OpStore {
		t.Error("second access must be the store, classified as write")
	}
}

func TestRun_ChangedFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		init  bool
		apply map[string]bool
		fin   bool
		want  bool
	}{
		{"all no-op", false, nil, false, false},
		{"initialize only", true, nil, false, true},
		{"apply only", false, map[string]bool{"foo": true}, false, true},
		{"finalize only", false, nil, true, true},
		{"change in skipped function ignored", false, map[string]bool{"decl": true, noinstrument.Prefix + "noinst": true}, false, false},
		{"all", true, map[string]bool{"foo": true}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &recorder{init: tt.init, apply: tt.apply, fin: tt.fin}
			if got := Run(newScenarioModule(t), r); got != tt.want {
				t.Errorf("Run() = %v, want %v", got, tt.want)
			}
			// Every phase runs regardless of earlier results.
			if len(r.calls) != 3 {
				t.Errorf("calls = %v, want 3 phases", r.calls)
			}
		})
	}
}

func TestRun_ApplyOnlyVisitor(t *testing.T) {
	t.Parallel()

	var visited []string
	v := VisitorFunc(func(fn *ir.Function) bool {
		visited = append(visited, fn.Name())
		return false
	})

	m := ir.NewModule("m", ir.NewDataLayout(8, 8))
	for _, name := range []string{"a", "b", "c"} {
		fn := m.NewFunction(name, &ir.Signature{}, ir.ExternalLinkage)
		ir.NewBuilder(fn.NewBlock("entry")).Ret()
	}

	if Run(m, v) {
		t.Error("Run() = true, want false")
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, visited); diff != "" {
		t.Errorf("visit order mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_FunctionsAddedDuringRunAreNotVisited(t *testing.T) {
	t.Parallel()

	m := ir.NewModule("m", ir.NewDataLayout(8, 8))
	fn := m.NewFunction("f", &ir.Signature{}, ir.ExternalLinkage)
	ir.NewBuilder(fn.NewBlock("entry")).Ret()

	var visited []string
	changed := Run(m, VisitorFunc(func(fn *ir.Function) bool {
		visited = append(visited, fn.Name())
		added := m.NewFunction(fn.Name()+"_clone", &ir.Signature{}, ir.ExternalLinkage)
		ir.NewBuilder(added.NewBlock("entry")).Ret()
		return true
	}))

	if !changed {
		t.Error("Run() = false, want true")
	}
	if len(visited) != 1 {
		t.Errorf("visited = %v, want only f", visited)
	}
	if m.Function("f_clone") == nil {
		t.Error("hook mutation must persist")
	}
}

func TestRun_WithMarker(t *testing.T) {
	t.Parallel()

	m := newScenarioModule(t)
	r := &recorder{}
	Run(m, r, WithMarker(func(fn *ir.Function) bool { return fn.Name() == "foo" }))

	// The custom marker replaces the default, so the prefixed helper is visited.
	want := []string{"init:M", "apply:" + noinstrument.Prefix + "noinst", "fini:M"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_LogsSkippedFunctions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Run(newScenarioModule(t), &recorder{}, WithLogger(logger))

	out := buf.String()
	for _, want := range []string{
		"function=decl reason=declaration",
		"function=" + noinstrument.Prefix + "noinst reason=noinstrument",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "function=foo") {
		t.Error("eligible function must not be logged as skipped")
	}
}

func TestShouldInstrument(t *testing.T) {
	t.Parallel()

	m := ir.NewModule("m", ir.NewDataLayout(8, 8))
	decl := m.NewFunction("decl", &ir.Signature{}, ir.ExternalLinkage)
	body := m.NewFunction("body", &ir.Signature{}, ir.ExternalLinkage)
	body.NewBlock("entry")
	attr := m.NewFunction("attr", &ir.Signature{}, ir.ExternalLinkage)
	attr.NewBlock("entry")
	attr.AddAttr(ir.AttrNoInstrument)

	tests := []struct {
		fn   *ir.Function
		want bool
	}{
		{decl, false},
		{body, true},
		{attr, false},
	}
	for _, tt := range tests {
		if got := ShouldInstrument(tt.fn, nil); got != tt.want {
			t.Errorf("ShouldInstrument(%s) = %v, want %v", tt.fn.Name(), got, tt.want)
		}
	}
}
