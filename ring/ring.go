// Package ring implements a bounded, append-only scaleout message store: a
// fixed-capacity in-memory log supporting wait-free lookup, many-producer
// append via compare-and-swap, and cursor-based reads that tolerate
// concurrent overwrite of the region being read.
//
// Multiple producers call Append concurrently; many readers call Read or
// ReadSinceMappingId independently, each holding its own cursor. Under
// sustained load the oldest messages are silently overwritten — the store
// trades durability for bounded memory and lock-free throughput. There is
// no persistence, replication, acknowledgment, or backpressure toward
// producers: overwrite is the policy.
package ring

import (
	"sync/atomic"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/scaleoutstore/scaleoutstore/mapping"
)

// Ring is the outer array of fragment slots plus the small set of
// atomically-updated scalars that coordinate producers and readers. A Ring
// is created by its owner with a requested capacity and discarded by its
// owner; it implements no lifecycle management of its own.
type Ring struct {
	fragments       []atomic.Pointer[Fragment]
	fragmentSize    uint64
	fragmentCushion uint64 // F

	// nextFreeSeq is the next sequence number to be assigned. Readers load
	// it with acquire ordering; the Appender's increment publishes with
	// release ordering.
	nextFreeSeq atomic.Uint64

	// minSeq is the lower bound of sequence numbers still addressable by a
	// cursor. minMappingID tracks the corresponding bound in Mapping.Id
	// space, updated in lockstep.
	minSeq       atomic.Uint64
	minMappingID atomic.Uint64

	// maxMapping is the most recently appended mapping. It is written on
	// every successful Append but is best-effort only: no algorithm depends
	// on its freshness, and under concurrent appends it may briefly trail
	// the true maximum. It is nil until the first Append.
	maxMapping atomic.Pointer[entry]

	tracer      opentracing.Tracer
	tracePrefix string
	logger      *zap.Logger
}

// New allocates a Ring per cfg. Capacity is floored to 32 per the sizing
// rule; there is no construction failure mode, so New never errors.
func New(cfg Config) *Ring {
	cfg.SetDefaults()

	fragmentSize := fragmentSizeFor(cfg.Capacity, cfg.FragmentCushion, cfg.MaxPerFragment)

	r := &Ring{
		fragments:       make([]atomic.Pointer[Fragment], cfg.FragmentCushion+1),
		fragmentSize:    fragmentSize,
		fragmentCushion: cfg.FragmentCushion,
		tracer:          cfg.Tracer,
		tracePrefix:     cfg.TracePrefix,
		logger:          cfg.Logger,
	}
	return r
}

// FragmentSize returns the computed slot count per fragment.
func (r *Ring) FragmentSize() uint64 { return r.fragmentSize }

// FragmentCount returns F+1, including the overflow cushion slot.
func (r *Ring) FragmentCount() uint64 { return r.fragmentCushion + 1 }

// NextFreeSeq returns the next sequence number to be assigned.
func (r *Ring) NextFreeSeq() uint64 { return r.nextFreeSeq.Load() }

// MinSeq returns the lower bound of sequence numbers still addressable by
// a cursor.
func (r *Ring) MinSeq() uint64 { return r.minSeq.Load() }

// MinMappingID returns the lower bound of still-addressable payload ids.
func (r *Ring) MinMappingID() uint64 { return r.minMappingID.Load() }

// MaxMapping returns the most recently appended mapping. Best-effort: see
// the field comment on Ring.maxMapping.
func (r *Ring) MaxMapping() mapping.Mapping {
	e := r.maxMapping.Load()
	if e == nil {
		return nil
	}
	return e.mapping
}

func (r *Ring) storeMaxMapping(m mapping.Mapping) {
	r.maxMapping.Store(&entry{mapping: m})
}

// fragmentCoordinates computes the fragment number, ring index, and
// in-fragment slot index for a sequence number.
func (r *Ring) fragmentCoordinates(seq uint64) (fragmentNum, ringIndex, slotIndex uint64) {
	fragmentNum = seq / r.fragmentSize
	ringIndex = fragmentNum % (r.fragmentCushion + 1)
	slotIndex = seq % r.fragmentSize
	return
}

// seqOf computes the sequence number for a given fragment and in-fragment
// offset.
func (r *Ring) seqOf(fragmentNum, slotIndex uint64) uint64 {
	return fragmentNum*r.fragmentSize + slotIndex
}

// Stats is a point-in-time snapshot of the ring's observable properties,
// cheaper to obtain than scraping a metrics endpoint.
type Stats struct {
	FragmentSize  uint64
	FragmentCount uint64
	NextFreeSeq   uint64
	MinSeq        uint64
	MinMappingID  uint64
	MaxMapping    mapping.Mapping
}

// Stats returns a snapshot of the ring's observable properties.
func (r *Ring) Stats() Stats {
	return Stats{
		FragmentSize:  r.FragmentSize(),
		FragmentCount: r.FragmentCount(),
		NextFreeSeq:   r.NextFreeSeq(),
		MinSeq:        r.MinSeq(),
		MinMappingID:  r.MinMappingID(),
		MaxMapping:    r.MaxMapping(),
	}
}

// GapBetween reports whether any sequence number in [from, to) is known to
// have already been overwritten — i.e. falls below the ring's current
// minSeq watermark. It is additive observability on top of Read's
// documented three cases, modeled on a gap-detection helper from a
// single-writer ring buffer design: a transport-layer caller can use it
// to decide whether to warn a client that messages were dropped, without
// changing what Read itself returns.
func (r *Ring) GapBetween(from, to uint64) bool {
	if to <= from {
		return false
	}
	return from < r.MinSeq()
}
