// Package internal connects the public analyzer to the lowering, the pass
// driver and the access model.
//
// # Architecture
//
//	analyzer.go (public)
//	     │
//	     ▼
//	internal/analyzer.go   Run()
//	     ├── build ignore maps and noinstrument sets per file
//	     ├── lower SSA functions to ir (internal/lower)
//	     ├── drive the reporter over the module (internal/pass)
//	     │     ├── Initialize: find allocation sites (internal/allocs)
//	     │     ├── Apply: classify accesses (internal/memaccess)
//	     │     └── Finalize: report unused ignore directives
//	     └── return per-function access counts
package internal

import (
	"fmt"
	"go/token"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ssa"

	"github.com/mpyw/memaccess/internal/allocs"
	"github.com/mpyw/memaccess/internal/config"
	"github.com/mpyw/memaccess/internal/debug"
	"github.com/mpyw/memaccess/internal/directive"
	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/lower"
	"github.com/mpyw/memaccess/internal/memaccess"
	"github.com/mpyw/memaccess/internal/noinstrument"
	driver "github.com/mpyw/memaccess/internal/pass"
)

// Options configures Run.
type Options struct {
	Config    *config.Config
	SkipFiles map[string]bool
	// DebugFilter selects functions whose access table is written to
	// DebugOut. Nil disables dumping.
	DebugFilter *regexp.Regexp
	DebugOut    io.Writer
	Logger      *slog.Logger
}

// Result summarizes the accesses found in a package.
type Result struct {
	Functions []FunctionSummary
}

// FunctionSummary counts the accesses of one instrumented function.
type FunctionSummary struct {
	Name    string
	Reads   int
	Writes  int
	Dynamic int // accesses whose size is not a constant
	Allocs  int // stack and heap allocation sites
}

// Function returns the summary for the function named name.
func (r *Result) Function(name string) (FunctionSummary, bool) {
	for _, s := range r.Functions {
		if s.Name == name {
			return s, true
		}
	}
	return FunctionSummary{}, false
}

// =============================================================================
// Entry Point
// =============================================================================

// Run reports the memory accesses of every source function of the package.
//
// Processing flow:
//  1. Skip excluded files (generated files, etc.)
//  2. Lower the remaining functions; //memaccess:noinstrument functions,
//     closures inside them and configured patterns are marked
//  3. Report each access, and each allocation when enabled, unless
//     suppressed by a line-level ignore
//  4. Report unused ignore directives
func Run(pass *analysis.Pass, ssaInfo *buildssa.SSA, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	ignoreMaps := make(map[string]*directive.IgnoreMap)
	marked := make(directive.NoInstrumentSet)
	for _, file := range pass.Files {
		filename := pass.Fset.Position(file.Pos()).Filename
		if opts.SkipFiles[filename] {
			continue
		}
		ignoreMaps[filename] = directive.BuildIgnoreMap(pass.Fset, file)
		marked.Merge(directive.BuildNoInstrumentSet(file))
	}

	var funcs []*ssa.Function
	for _, fn := range ssaInfo.SrcFuncs {
		pos := fn.Pos()
		if !pos.IsValid() || opts.SkipFiles[pass.Fset.Position(pos).Filename] {
			continue
		}
		funcs = append(funcs, fn)
	}

	var globals []*ssa.Global
	for _, mem := range ssaInfo.Pkg.Members {
		g, ok := mem.(*ssa.Global)
		if !ok || g.Pos().IsValid() && opts.SkipFiles[pass.Fset.Position(g.Pos()).Filename] {
			continue
		}
		globals = append(globals, g)
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i].Pos() < globals[j].Pos() })

	sizes := cfg.Sizes()
	if sizes == nil {
		sizes = pass.TypesSizes
	}
	mod, err := lower.Package(pass.Pkg.Path(), funcs, lower.Config{
		Sizes:   sizes,
		Globals: globals,
		NoInstrument: func(fn *ssa.Function) bool {
			for f := fn; f != nil; f = f.Parent() {
				if marked.Contains(f.Pos()) || cfg.Excluded(f.String()) {
					return true
				}
			}
			return false
		},
	})
	if err != nil {
		return nil, err
	}

	r := newReporter(pass, cfg, ignoreMaps, opts)
	var runOpts []driver.Option
	if opts.Logger != nil {
		runOpts = append(runOpts, driver.WithLogger(opts.Logger))
	}
	driver.Run(mod, r, runOpts...)
	return r.result, nil
}

// =============================================================================
// Reporter
// =============================================================================

// reporter is the function visitor that turns accesses into diagnostics.
//
// It ensures:
//   - The same message at the same position is only reported once
//   - Line-level ignore directives suppress diagnostics, and are used even
//     when the kind they cover is not reported
//   - Accesses without a source position are counted but not reported
type reporter struct {
	pass        *analysis.Pass
	cfg         *config.Config
	ignoreMaps  map[string]*directive.IgnoreMap
	skipFiles   map[string]bool
	debugFilter *regexp.Regexp
	debugOut    io.Writer
	reported    map[reportKey]bool
	sites       *allocs.Sites
	layout      *ir.DataLayout
	result      *Result
}

type reportKey struct {
	pos     token.Pos
	message string
}

func newReporter(pass *analysis.Pass, cfg *config.Config, ignoreMaps map[string]*directive.IgnoreMap, opts Options) *reporter {
	out := opts.DebugOut
	if out == nil {
		out = os.Stderr
	}
	return &reporter{
		pass:        pass,
		cfg:         cfg,
		ignoreMaps:  ignoreMaps,
		skipFiles:   opts.SkipFiles,
		debugFilter: opts.DebugFilter,
		debugOut:    out,
		reported:    make(map[reportKey]bool),
		result:      &Result{},
	}
}

func (r *reporter) Initialize(m *ir.Module) bool {
	r.result.Functions = r.result.Functions[:0]
	r.sites = allocs.Collect(m)
	r.layout = m.Layout
	for _, site := range r.sites.Globals() {
		g := site.Global()
		if noinstrument.Is(g) {
			continue
		}
		r.reportAt(g.Pos, AllocMessage(site, r.layout), r.cfg.ReportAllocs())
	}
	return false
}

func (r *reporter) Apply(fn *ir.Function) bool {
	summary := FunctionSummary{Name: fn.Name()}
	for _, a := range memaccess.Collect(fn) {
		if a.IsRead() {
			summary.Reads++
		} else {
			summary.Writes++
		}
		if !a.HasConstLength() {
			summary.Dynamic++
		}
		r.report(a)
	}
	sites := r.sites.Function(fn)
	for _, site := range sites {
		summary.Allocs++
		r.reportAt(site.Instruction().Pos, AllocMessage(site, r.layout), r.cfg.ReportAllocs())
	}
	r.result.Functions = append(r.result.Functions, summary)

	if r.debugFilter != nil && r.debugFilter.MatchString(fn.Name()) {
		fmt.Fprintf(r.debugOut, "\n=== Debug output for %s ===\n", fn.Name())
		fmt.Fprint(r.debugOut, debug.FormatFunction(fn, r.pass.Fset))
		for _, site := range sites {
			allocs.Describe(r.debugOut, site, r.layout)
		}
	}
	return false
}

func (r *reporter) Finalize(*ir.Module) bool {
	filenames := make([]string, 0, len(r.ignoreMaps))
	for name := range r.ignoreMaps {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	for _, name := range filenames {
		for _, pos := range r.ignoreMaps[name].Unused() {
			r.pass.Reportf(pos, "unused memaccess:ignore directive")
		}
	}
	return false
}

func (r *reporter) report(a memaccess.MemoryAccess) {
	enabled := a.IsRead() && r.cfg.ReportReads() || a.IsWrite() && r.cfg.ReportWrites()
	r.reportAt(a.Instruction().Pos, Message(a), enabled)
}

// reportAt reports msg at pos if enabled, not ignored and not already
// reported. The ignore map is consulted first so that a directive covering a
// disabled kind still counts as used.
func (r *reporter) reportAt(pos token.Pos, msg string, enabled bool) {
	if !pos.IsValid() {
		return
	}
	position := r.pass.Fset.Position(pos)
	if r.skipFiles[position.Filename] {
		return
	}
	if r.ignoreMaps[position.Filename].ShouldIgnore(position.Line) || !enabled {
		return
	}

	key := reportKey{pos: pos, message: msg}
	if r.reported[key] {
		return
	}
	r.reported[key] = true
	r.pass.Reportf(pos, "%s", msg)
}

// Message returns the diagnostic text for a.
func Message(a memaccess.MemoryAccess) string {
	kind := "write"
	if a.IsRead() {
		kind = "read"
	}
	size := "dynamic size"
	if a.HasConstLength() {
		size = fmt.Sprintf("%d bytes", a.ConstLength())
	}
	return fmt.Sprintf("memory %s: %s, align %d", kind, size, a.Alignment())
}

// AllocMessage returns the diagnostic text for an allocation site.
func AllocMessage(site allocs.Site, dl *ir.DataLayout) string {
	size := "dynamic size"
	if n := site.ConstSize(dl); n != allocs.UnknownSize {
		size = fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%s allocation: %s", site.Kind(), size)
}
