// Package allocs is analyzed with testdata/allocs.yaml, which reports
// allocation sites only.
package allocs

var total int64 // want "global allocation: 8 bytes"

var table [4]uint16 // want "global allocation: 8 bytes"

type node struct {
	next *node
	val  int32
}

func fresh() *int64 {
	return new(int64) // want "heap allocation: 8 bytes"
}

func link(v int32) *node {
	return &node{val: v} // want "heap allocation: 16 bytes"
}

func buffer(n int) []byte {
	return make([]byte, n) // want "heap allocation: dynamic size"
}

func scratch(i int) int64 {
	var a [4]int64 // want "stack allocation: 32 bytes"
	a[i] = 1
	return a[i]
}

func quiet() *int64 {
	//memaccess:ignore
	return new(int64)
}
