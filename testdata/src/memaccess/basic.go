// Package memaccess is the analyzer test fixture.
package memaccess

var counter int64

var table [4]uint16

type point struct {
	x, y int32
}

func readGlobal() int64 {
	return counter // want "memory read: 8 bytes, align 8"
}

func writeGlobal(v int64) {
	counter = v // want "memory write: 8 bytes, align 8"
}

func increment(p *int32) {
	*p++ // want "memory read: 4 bytes, align 4" "memory write: 4 bytes, align 4"
}

func clearByte(b *byte) {
	*b = 0 // want "memory write: 1 bytes, align 1"
}

func setY(p *point, v int32) {
	p.y = v // want "memory write: 4 bytes, align 4"
}

func assign(dst, src *point) {
	*dst = *src // want "memory read: 8 bytes, align 4" "memory write: 8 bytes, align 4"
}

func first(s []int64) int64 {
	return s[0] // want "memory read: 8 bytes, align 8"
}

func lookup(i int) uint16 {
	return table[i] // want "memory read: 2 bytes, align 2"
}

func duplicate(dst, src []byte) int {
	return copy(dst, src) // want "memory read: dynamic size, align 1" "memory write: dynamic size, align 1"
}

func wipe(s []int64) {
	clear(s) // want "memory write: dynamic size, align 8"
}

func forget(m map[string]int) {
	clear(m)
}

func pure(a, b int) int {
	return a + b
}
