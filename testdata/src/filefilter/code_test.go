package filefilter

// recordInTest is reported when -test=true (default).
func recordInTest(v int64) {
	last = v // want "memory write: 8 bytes, align 8"
}
