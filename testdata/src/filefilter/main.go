// Package filefilter tests file filtering functionality.
// Tests that:
// - Generated files are always skipped (see generated.go)
// - Test files are analyzed by default (see code_test.go)
package filefilter

var last int64

// record should be reported in regular files.
func record(v int64) {
	last = v // want "memory write: 8 bytes, align 8"
}
