// Package memaccess provides a static analysis tool that reports the memory
// reads and writes performed by Go functions.
//
// Every source function is lowered from SSA into a small typed IR. Loads,
// stores, copies and sync/atomic operations become memory instructions whose
// address, size and alignment are then reported as diagnostics:
//
//	counter = v // memory write: 8 bytes, align 8
//
// Functions annotated with //memaccess:noinstrument are skipped, and
// //memaccess:ignore suppresses diagnostics on its own line and the next.
// Setting report.allocs in the -config file also reports stack, heap and
// global allocation sites.
package memaccess

import (
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"reflect"
	"regexp"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"

	"github.com/mpyw/memaccess/internal"
	"github.com/mpyw/memaccess/internal/config"
)

// Flags for the analyzer.
var (
	debugFilter string
	configFile  string
)

func init() {
	Analyzer.Flags.StringVar(&debugFilter, "debug", "",
		"dump the access table of functions whose name matches this regexp to stderr")
	Analyzer.Flags.StringVar(&configFile, "config", "",
		"path to a YAML configuration file")
}

// Analyzer is the main analyzer for memaccess.
var Analyzer = &analysis.Analyzer{
	Name:       "memaccess",
	Doc:        "reports memory reads and writes with their size and alignment",
	Requires:   []*analysis.Analyzer{buildssa.Analyzer},
	Run:        run,
	Flags:      flag.FlagSet{},
	ResultType: reflect.TypeOf((*Result)(nil)),
}

// Result is the per-package summary returned by Analyzer.
type Result = internal.Result

// FunctionSummary counts the accesses of one function.
type FunctionSummary = internal.FunctionSummary

// ErrNoSSA is returned when the buildssa analyzer result is not available.
var ErrNoSSA = errors.New("buildssa analyzer result not found")

func run(pass *analysis.Pass) (any, error) {
	ssaInfo, ok := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	if !ok {
		return nil, ErrNoSSA
	}

	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	var filter *regexp.Regexp
	if debugFilter != "" {
		var err error
		if filter, err = regexp.Compile(debugFilter); err != nil {
			return nil, fmt.Errorf("invalid debug filter: %w", err)
		}
	}

	return internal.Run(pass, ssaInfo, internal.Options{
		Config:      cfg,
		SkipFiles:   buildSkipFiles(pass),
		DebugFilter: filter,
	})
}

// buildSkipFiles creates a set of filenames to skip.
// Generated files are always skipped.
// Test files can be skipped via the driver's built-in -test flag.
func buildSkipFiles(pass *analysis.Pass) map[string]bool {
	skipFiles := make(map[string]bool)

	for _, file := range pass.Files {
		if ast.IsGenerated(file) {
			skipFiles[pass.Fset.Position(file.Pos()).Filename] = true
		}
	}

	return skipFiles
}
