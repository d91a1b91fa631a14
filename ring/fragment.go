package ring

import (
	"sync/atomic"

	"github.com/scaleoutstore/scaleoutstore/mapping"
)

// entry is the unit installed by a successful PublishAt: a fragment slot is
// absent while its pointer is nil and holds entry.mapping forever after.
// It also backs maxMapping, where it is a best-effort, non-authoritative
// snapshot rather than a slot participating in any invariant.
type entry struct {
	mapping mapping.Mapping
}

// Fragment is a single contiguous segment of the ring: a fixed-size array
// of slots plus the sequence range it covers. Once data[i] transitions
// from absent to present it is never mutated again during this fragment's
// lifetime; length advances only upward; fragmentNum is immutable.
type Fragment struct {
	fragmentNum uint64
	minSeq      uint64
	maxSeq      uint64

	data   []atomic.Pointer[entry]
	length atomic.Uint64
}

func newFragment(fragmentNum, size uint64) *Fragment {
	return &Fragment{
		fragmentNum: fragmentNum,
		data:        make([]atomic.Pointer[entry], size),
	}
}

// FragmentNum returns the immutable segment index within the logical,
// unbounded stream.
func (f *Fragment) FragmentNum() uint64 { return f.fragmentNum }

// Length returns the number of slots this fragment has recorded as
// published so far. It is advanced after, not atomically with, the CAS
// that installs a slot, and producers may publish into non-contiguous
// offsets within a fragment (see PublishAt), so Length can momentarily
// undercount relative to the true set of populated slots. Readers accept
// this: Case C of Read reads Length once and returns [0, Length).
func (f *Fragment) Length() uint64 { return f.length.Load() }

func (f *Fragment) at(offset uint64) mapping.Mapping {
	e := f.data[offset].Load()
	if e == nil {
		return nil
	}
	return e.mapping
}

// PublishAt atomically transitions data[offset] from absent to m.
// It succeeds iff the slot was absent. On success the caller (the
// Appender) is responsible for incrementing Length. A failed attempt is
// contention, not an error: it signals the caller to retry at the next
// offset.
func (f *Fragment) PublishAt(offset uint64, m mapping.Mapping) bool {
	return f.data[offset].CompareAndSwap(nil, &entry{mapping: m})
}

// Snapshot returns a fresh copy of up to count mappings starting at
// offset, stopping early if it encounters a still-absent slot. The
// returned slice is safe to hand to a caller even though the fragment
// itself may be replaced by a concurrent Appender the instant this call
// returns — by the time that happens the caller already holds its own
// copy of the data, not a view into the fragment's backing array.
func (f *Fragment) Snapshot(offset, count uint64) []mapping.Mapping {
	if offset >= uint64(len(f.data)) {
		return nil
	}
	end := offset + count
	if end > uint64(len(f.data)) {
		end = uint64(len(f.data))
	}
	if end <= offset {
		return nil
	}

	out := make([]mapping.Mapping, 0, end-offset)
	for i := offset; i < end; i++ {
		m := f.at(i)
		if m == nil {
			break
		}
		out = append(out, m)
	}
	return out
}

// TrySearch performs a binary search over data[0:Length) by Mapping.Id,
// assuming producers enqueued in non-decreasing Id order. It returns the
// index of the first slot whose Id equals id, or (0, false).
func (f *Fragment) TrySearch(id uint64) (uint64, bool) {
	low, high := uint64(0), f.Length()
	for low < high {
		mid := low + (high-low)/2
		m := f.at(mid)
		if m == nil {
			high = mid
			continue
		}
		if m.ID() < id {
			low = mid + 1
		} else {
			high = mid
		}
	}
	if low >= f.Length() {
		return 0, false
	}
	if m := f.at(low); m != nil && m.ID() == id {
		return low, true
	}
	return 0, false
}

// HasValue reports whether this fragment holds a slot with the given id.
func (f *Fragment) HasValue(id uint64) bool {
	_, ok := f.TrySearch(id)
	return ok
}

// MinValue returns data[0].Id, or (0, false) if the fragment has no
// written slots yet. This bound is advisory: callers must tolerate the
// false return.
func (f *Fragment) MinValue() (uint64, bool) {
	m := f.at(0)
	if m == nil {
		return 0, false
	}
	return m.ID(), true
}

// MaxValue returns data[Length()-1].Id, or data[0].Id when Length() == 0
// (reflecting an in-progress first write), or (0, false) if the fragment
// has no written slots at all.
func (f *Fragment) MaxValue() (uint64, bool) {
	length := f.Length()
	idx := uint64(0)
	if length > 0 {
		idx = length - 1
	}
	m := f.at(idx)
	if m == nil {
		return 0, false
	}
	return m.ID(), true
}
