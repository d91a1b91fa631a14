package ring

import (
	"github.com/opentracing/opentracing-go"
	olog "github.com/opentracing/opentracing-go/log"
	"go.uber.org/zap"

	"github.com/scaleoutstore/scaleoutstore/mapping"
)

// Batch is the result of a read: the messages found, the cursor to resume
// from on the next call, and whether more messages are known to follow
// immediately.
type Batch struct {
	NextCursor uint64
	Messages   []mapping.Mapping
	HasMore    bool
}

// Read resolves cursor against the ring's current state and returns the
// messages from that point forward. There are three cases:
//
//   - Up-to-date: cursor has already seen everything appended so far.
//   - In window: cursor falls inside the fragment that currently occupies
//     its ring slot; the populated remainder of that fragment, up to the
//     tip, is returned. Later fragments are not included; HasMore reports
//     whether the tip lies beyond this fragment.
//   - Overrun: the fragment that used to hold cursor has been overwritten.
//     Read recovers by returning the oldest surviving fragment in full,
//     with a cursor advanced to its start.
//
// Read never fails. It does not block and holds no locks across the call.
func (r *Ring) Read(cursor uint64) Batch {
	tip := r.nextFreeSeq.Load()

	if tip <= cursor {
		return Batch{NextCursor: cursor, HasMore: false}
	}

	fragmentNum, ringIndex, slotIndex := r.fragmentCoordinates(cursor)
	if f := r.fragments[ringIndex].Load(); f != nil && f.fragmentNum == fragmentNum {
		fragmentEnd := r.seqOf(f.fragmentNum+1, 0)
		readEnd := tip
		if fragmentEnd < readEnd {
			readEnd = fragmentEnd
		}
		return Batch{
			NextCursor: cursor,
			Messages:   f.Snapshot(slotIndex, readEnd-cursor),
			HasMore:    tip > fragmentEnd,
		}
	}

	return r.readOverrun(tip)
}

// readOverrun implements Read's Case C: the cursor's fragment has already
// been replaced. It returns the oldest fragment still resident in the
// ring, which is the one about to be overwritten next.
func (r *Ring) readOverrun(tip uint64) Batch {
	span := r.startSpan("read", "")
	defer span.Finish()
	span.SetTag("outcome", "overrun")
	r.resolveLogger(nil).Debug("read overrun: cursor fell behind ring minimum", zap.Uint64("tip", tip))

	for {
		tipFragmentNum, tipRingIndex, _ := r.fragmentCoordinates(tip)
		tailIndex := (tipRingIndex + 1) % (r.fragmentCushion + 1)
		tail := r.fragments[tailIndex].Load()

		if tail != nil && tail.fragmentNum < tipFragmentNum {
			length := tail.Length()
			return Batch{
				NextCursor: r.seqOf(tail.fragmentNum, 0),
				Messages:   tail.Snapshot(0, length),
				HasMore:    true,
			}
		}

		// The ring has not yet wrapped around to produce a valid tail
		// (e.g. it is still being populated). Re-read tip and retry; if
		// tip hasn't moved there is nothing more to recover.
		newTip := r.nextFreeSeq.Load()
		if newTip == tip {
			return Batch{HasMore: false}
		}
		tip = newTip
	}
}

// Outcome classifies how a ReadSinceMappingId call was satisfied, for
// callers that want to observe it (metrics, logging) without re-deriving
// the classification themselves.
type Outcome string

const (
	OutcomeFound          Outcome = "found"
	OutcomeExpired        Outcome = "expired"
	OutcomeBelowWatermark Outcome = "below_watermark"
	OutcomeAheadOfTip     Outcome = "ahead_of_tip"
)

// readOption configures a single ReadSinceMappingId call.
type readOption struct {
	connectionID string
	log          *zap.Logger
	observer     func(Outcome)
}

// ReadOption configures an optional, per-call aspect of ReadSinceMappingId:
// the connection a read is attributed to, a logger override for that
// call's slow-path diagnostics, and an observer for its outcome.
type ReadOption func(*readOption)

// WithConnectionID attributes a ReadSinceMappingId call to a connection,
// tagged onto its trace span.
func WithConnectionID(connectionID string) ReadOption {
	return func(o *readOption) { o.connectionID = connectionID }
}

// WithLog overrides the logger used for this call's slow-path diagnostics.
func WithLog(log *zap.Logger) ReadOption {
	return func(o *readOption) { o.log = log }
}

// WithObserver registers a callback invoked once, synchronously, with the
// Outcome of this call — intended for metrics counters in a wrapping
// layer (see the store package) rather than for control flow.
func WithObserver(fn func(Outcome)) ReadOption {
	return func(o *readOption) { o.observer = fn }
}

func (o readOption) observe(outcome Outcome) {
	if o.observer != nil {
		o.observer(outcome)
	}
}

// ReadSinceMappingId returns everything after the message whose payload Id
// was id — for a consumer whose cursor is expressed in the domain's
// payload id rather than the store's internal sequence number.
//
// It locates the fragment that should contain id via a binary search over
// the ring (valid because producers enqueue in non-decreasing Id order),
// then searches within that fragment. A hit delegates to Read at the
// following sequence number. A miss after a fragment-level hit is
// classified as expired: the id existed in a now-overwritten fragment, and
// the oldest surviving fragment is returned in full, matching the
// documented (if debatable) behavior of the system this store is modeled
// on — see the id-lookup open question. An id at or below MinMappingID is
// likewise satisfied by the oldest fragment; an id ahead of the ring's
// current view returns an empty batch.
func (r *Ring) ReadSinceMappingId(id uint64, opts ...ReadOption) Batch {
	var ro readOption
	for _, opt := range opts {
		opt(&ro)
	}

	found, frag := r.searchRingByMappingID(id)
	if found {
		if idx, ok := frag.TrySearch(id); ok {
			ro.observe(OutcomeFound)
			return r.Read(r.seqOf(frag.fragmentNum, idx) + 1)
		}

		// The outer search landed on a fragment whose [MinValue, MaxValue]
		// range covers id, but the fragment no longer holds it. Classified
		// expired, preserved faithfully per the open id-lookup question.
		span := r.startSpan("read_since_mapping_id", ro.connectionID)
		defer span.Finish()
		span.SetTag("mapping_id", id)
		span.SetTag("outcome", string(OutcomeExpired))
		span.LogFields(olog.Uint64("mapping_id", id))
		r.resolveLogger(ro.log).Debug("mapping id expired from its fragment", zap.Uint64("mapping_id", id))
		ro.observe(OutcomeExpired)
		return r.getAllMessages()
	}

	if id <= r.minMappingID.Load() {
		span := r.startSpan("read_since_mapping_id", ro.connectionID)
		defer span.Finish()
		span.SetTag("mapping_id", id)
		span.SetTag("outcome", string(OutcomeBelowWatermark))
		r.resolveLogger(ro.log).Debug("mapping id below watermark; returning oldest fragment", zap.Uint64("mapping_id", id))
		ro.observe(OutcomeBelowWatermark)
		return r.getAllMessages()
	}

	ro.observe(OutcomeAheadOfTip)
	return Batch{HasMore: false}
}

// getAllMessages returns the oldest fragment's populated prefix, or the
// empty batch if the fragment at the ring's current minSeq has not been
// installed yet (the ring is still warming).
func (r *Ring) getAllMessages() Batch {
	fragmentNum, ringIndex, _ := r.fragmentCoordinates(r.minSeq.Load())
	f := r.fragments[ringIndex].Load()
	if f == nil || f.fragmentNum != fragmentNum {
		return Batch{HasMore: false}
	}

	length := f.Length()
	return Batch{
		NextCursor: r.seqOf(f.fragmentNum, 0),
		Messages:   f.Snapshot(0, length),
		HasMore:    true,
	}
}

// searchRingByMappingID treats the ring as though indexed by Mapping.Id —
// valid because producers enqueue in non-decreasing Id order — and
// binary-searches it for the fragment that should contain id.
func (r *Ring) searchRingByMappingID(id uint64) (bool, *Fragment) {
	low, high := r.minSeq.Load(), r.nextFreeSeq.Load()

	for low <= high {
		mid := low + (high-low)/2
		_, ringIndex, _ := r.fragmentCoordinates(mid)
		f := r.fragments[ringIndex].Load()
		if f == nil {
			return false, nil
		}

		minVal, hasMin := f.MinValue()
		maxVal, hasMax := f.MaxValue()

		switch {
		case hasMin && id < minVal:
			if f.minSeq == 0 {
				return false, nil
			}
			high = f.minSeq - 1
		case hasMax && id > maxVal:
			low = f.maxSeq + 1
		case f.HasValue(id):
			return true, f
		default:
			return false, nil
		}
	}
	return false, nil
}

func (r *Ring) startSpan(op, connectionID string) opentracing.Span {
	span := r.tracer.StartSpan(r.tracePrefix + "." + op)
	if connectionID != "" {
		span.SetTag("connection_id", connectionID)
	}
	return span
}

// resolveLogger picks the logger for a single slow-path call: an explicit
// per-call override wins, then the Ring's own logger, then a silent no-op.
func (r *Ring) resolveLogger(override *zap.Logger) *zap.Logger {
	if override != nil {
		return override
	}
	if r.logger != nil {
		return r.logger
	}
	return zap.NewNop()
}
