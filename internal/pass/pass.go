// Package pass runs a per-function visitor over every eligible function of a
// module.
//
// # Phases
//
//	Start ─▶ Initialize ─▶ Apply(fn) for each eligible fn ─▶ Finalize ─▶ Done
//
// Initialize and Finalize are optional: a visitor opts in by implementing
// [Initializer] or [Finalizer]. The run reports whether any phase changed the
// module.
//
// # Eligibility
//
// A function is visited only if it has a body and is not marked as "do not
// instrument". The marker query is supplied by a [Marker]; the default is
// [noinstrument.Is].
package pass

import (
	"context"
	"log/slog"

	"github.com/mpyw/memaccess/internal/ir"
	"github.com/mpyw/memaccess/internal/noinstrument"
)

// FunctionVisitor is applied to every eligible function of a module.
type FunctionVisitor interface {
	// Apply processes fn and reports whether it changed the module.
	Apply(fn *ir.Function) bool
}

// Initializer is implemented by visitors that need to see the module before
// any function is applied.
type Initializer interface {
	Initialize(m *ir.Module) bool
}

// Finalizer is implemented by visitors that need to see the module after all
// functions were applied.
type Finalizer interface {
	Finalize(m *ir.Module) bool
}

// VisitorFunc adapts a function to FunctionVisitor.
type VisitorFunc func(fn *ir.Function) bool

// Apply calls f(fn).
func (f VisitorFunc) Apply(fn *ir.Function) bool { return f(fn) }

// Marker reports whether a function carries the "do not instrument" marker.
type Marker func(fn *ir.Function) bool

// DefaultMarker is the marker used when none is configured.
func DefaultMarker(fn *ir.Function) bool { return noinstrument.Is(fn) }

// Option configures a run.
type Option func(*options)

type options struct {
	marker Marker
	logger *slog.Logger
}

// WithMarker replaces the marker query.
func WithMarker(m Marker) Option {
	return func(o *options) {
		if m != nil {
			o.marker = m
		}
	}
}

// WithLogger sets the logger receiving debug records about skipped functions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// ShouldInstrument reports whether fn is eligible: it has a body and is not
// marked.
func ShouldInstrument(fn *ir.Function, marker Marker) bool {
	if fn.IsDeclaration() {
		return false
	}
	if marker == nil {
		marker = DefaultMarker
	}
	return !marker(fn)
}

// Run applies v to every eligible function of m in declaration order and
// reports whether anything changed.
//
// The function list is taken when the loop starts, so functions a hook adds
// to the module are not visited during the same run.
func Run(m *ir.Module, v FunctionVisitor, opts ...Option) bool {
	o := options{marker: DefaultMarker, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	changed := false
	if in, ok := v.(Initializer); ok {
		changed = in.Initialize(m)
	}

	for _, fn := range m.Functions() {
		if !ShouldInstrument(fn, o.marker) {
			o.logSkip(fn)
			continue
		}
		if v.Apply(fn) {
			changed = true
		}
	}

	if fin, ok := v.(Finalizer); ok {
		if fin.Finalize(m) {
			changed = true
		}
	}
	return changed
}

func (o *options) logSkip(fn *ir.Function) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	reason := "noinstrument"
	if fn.IsDeclaration() {
		reason = "declaration"
	}
	o.logger.Debug("skipping function", "function", fn.Name(), "reason", reason)
}
