// Package configured is analyzed with testdata/configured.yaml, which
// disables read reports and excludes the skip* functions.
//
// An ignore directive covering only reads is still used.
package configured

var n int64

func skipMe() {
	n = 1
}

func bump() {
	n++ // want "memory write: 8 bytes, align 8"
}

func get() int64 {
	return n
}

func peek() int64 {
	//memaccess:ignore
	return n
}
