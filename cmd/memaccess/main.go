// Command memaccess reports the memory reads and writes performed by Go
// functions, with their size and alignment.
//
// Usage:
//
//	memaccess ./...
//
// Or as a vet tool:
//
//	go vet -vettool=$(which memaccess) ./...
//
// Flags:
//
//	-config file.yaml   architecture override, noinstrument patterns, report filters
//	-debug regexp       dump the access table of matching functions to stderr
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/mpyw/memaccess"
)

func main() {
	singlechecker.Main(memaccess.Analyzer)
}
