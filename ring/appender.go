package ring

import "github.com/scaleoutstore/scaleoutstore/mapping"

// Append places m into the ring and returns the sequence number assigned
// to it. Append never fails: it retries internally on CAS contention and
// is safe under unbounded concurrent callers. It is lock-free but not
// wait-free — a slow producer can be indefinitely forced to retry by
// faster peers — and completes in expected O(1) CAS attempts under
// steady load.
//
// Sequence numbers are assigned uniquely but not necessarily in the order
// producers commit their CAS: a producer that wins an earlier slot may
// publish nextFreeSeq later than one that wins a later slot. Readers are
// designed around nextFreeSeq being a lower bound on committed writes, not
// a pointer to them.
func (r *Ring) Append(m mapping.Mapping) uint64 {
	for {
		seq := r.nextFreeSeq.Load()
		fragmentNum, ringIndex, slotIndex := r.fragmentCoordinates(seq)
		current := r.fragments[ringIndex].Load()
		stale := current == nil || current.fragmentNum < fragmentNum

		switch {
		case stale && slotIndex == 0:
			// This producer is the designated installer of a new fragment
			// at this ring position.
			if assigned, ok := r.installFragment(ringIndex, fragmentNum, current, m); ok {
				return assigned
			}
			// CAS lost the installation race; another thread installed
			// this fragment first. Retry from the top.

		case stale:
			// Slot is absent or stale but we're not positioned at offset 0;
			// another producer that observed offset 0 is expected to
			// install the fragment imminently. A short spin suffices.

		case current.fragmentNum > fragmentNum:
			// seq was loaded before the ring wrapped past this fragment; a
			// newer generation now occupies the slot. Retry from the top.

		default:
			// current.fragmentNum == fragmentNum: publish into this
			// fragment's remaining slots.
			if assigned, ok := r.publishIntoCurrent(current, fragmentNum, slotIndex, m); ok {
				return assigned
			}
			// All slots from slotIndex onward were already taken by faster
			// producers. Retry from the top.
		}
	}
}

// installFragment allocates and installs a new fragment at ringIndex,
// seeded with m at offset 0. It returns (seq, true) on success, or
// (0, false) if a concurrent producer won the installation race first.
func (r *Ring) installFragment(ringIndex, fragmentNum uint64, current *Fragment, m mapping.Mapping) (uint64, bool) {
	next := newFragment(fragmentNum, r.fragmentSize)
	next.data[0].Store(&entry{mapping: m})
	next.length.Store(1)

	if !r.fragments[ringIndex].CompareAndSwap(current, next) {
		return 0, false
	}

	next.minSeq = r.seqOf(fragmentNum, 0)
	next.maxSeq = r.seqOf(fragmentNum, r.fragmentSize-1)

	r.storeMaxMapping(m)

	switch {
	case current != nil:
		// This installation displaced a populated fragment: advance the
		// watermarks past it.
		r.minSeq.Store(current.maxSeq + 1)
		if maxID, ok := current.MaxValue(); ok {
			r.minMappingID.Store(maxID)
		}
	case ringIndex == 0:
		// First-ever population of the ring.
		r.minMappingID.Store(m.ID())
	}

	r.nextFreeSeq.Add(1)
	return r.seqOf(fragmentNum, 0), true
}

// publishIntoCurrent attempts to publish m into f starting at startSlot,
// trying successive offsets until one succeeds. It returns (seq, true) on
// success, or (0, false) if every slot from startSlot onward is already
// occupied.
func (r *Ring) publishIntoCurrent(f *Fragment, fragmentNum, startSlot uint64, m mapping.Mapping) (uint64, bool) {
	for i := startSlot; i < r.fragmentSize; i++ {
		if !f.PublishAt(i, m) {
			continue
		}
		f.length.Add(1)
		r.storeMaxMapping(m)
		r.nextFreeSeq.Add(1)
		return r.seqOf(fragmentNum, i), true
	}
	return 0, false
}
