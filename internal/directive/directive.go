// Package directive handles memaccess comment directives.
//
// # Supported Directives
//
//	//memaccess:ignore        - Suppress access reports on the same or the next line
//	//memaccess:noinstrument  - Exclude a function from the pass (function doc only)
//
// # Examples
//
// Line-level ignore:
//
//	//memaccess:ignore
//	counter++        // Not reported
//
// Same-line ignore:
//
//	counter++ //memaccess:ignore
//
// File-level ignore (in the package doc comment):
//
//	//memaccess:ignore
//	package generatedish
//
// Function exclusion:
//
//	//memaccess:noinstrument
//	func hotPath(p *int) { *p = 0 }
package directive

import "strings"

const directivePrefix = "memaccess:"

// hasDirective checks if a comment contains the named directive.
// Supports both "//memaccess:name" and "// memaccess:name"; trailing text
// after a space is allowed.
func hasDirective(text, name string) bool {
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, directivePrefix+name)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// IsIgnoreDirective checks if a comment is an ignore directive.
func IsIgnoreDirective(text string) bool { return hasDirective(text, "ignore") }

// IsNoInstrumentDirective checks if a comment is a noinstrument directive.
func IsNoInstrumentDirective(text string) bool { return hasDirective(text, "noinstrument") }
