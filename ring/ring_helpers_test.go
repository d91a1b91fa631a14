package ring

import (
	"sync/atomic"

	"github.com/opentracing/opentracing-go"
)

// testMapping is the minimal mapping.Mapping implementation used across
// this package's tests: a bare id, no payload.
type testMapping struct {
	id uint64
}

func (m testMapping) ID() uint64 { return m.id }

func newTestRing(capacity uint32, fragmentCushion uint64) *Ring {
	return New(Config{
		Capacity:        capacity,
		FragmentCushion: fragmentCushion,
	})
}

// newFixedRing builds a ring with an exact fragmentSize/fragmentCushion,
// bypassing Config's 32-message capacity floor, so tests can exercise small
// fragment counts (e.g. F+1=5, fragmentSize=4) directly.
func newFixedRing(fragmentSize, fragmentCushion uint64) *Ring {
	return &Ring{
		fragments:       make([]atomic.Pointer[Fragment], fragmentCushion+1),
		fragmentSize:    fragmentSize,
		fragmentCushion: fragmentCushion,
		tracer:          opentracing.NoopTracer{},
		tracePrefix:     "test",
	}
}
