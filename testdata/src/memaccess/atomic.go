package memaccess

import "sync/atomic"

var hits int32

type stats struct {
	total atomic.Int64
}

func hit() int32 {
	return atomic.AddInt32(&hits, 1) // want "memory read: 4 bytes, align 4" "memory write: 4 bytes, align 4"
}

func hitsSoFar() int32 {
	return atomic.LoadInt32(&hits) // want "memory read: 4 bytes, align 4"
}

func claim(p *uint64) bool {
	return atomic.CompareAndSwapUint64(p, 0, 1) // want "memory read: 8 bytes, align 8" "memory write: 8 bytes, align 8"
}

func total(s *stats) int64 {
	return s.total.Load() // want "memory read: 8 bytes, align 8"
}

func reset(s *stats) {
	s.total.Store(0) // want "memory write: 8 bytes, align 8"
}
