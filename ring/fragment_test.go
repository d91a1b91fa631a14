package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragment_PublishAt(t *testing.T) {
	f := newFragment(0, 4)

	require.True(t, f.PublishAt(0, testMapping{id: 10}))
	require.False(t, f.PublishAt(0, testMapping{id: 99}), "re-publishing an occupied slot must fail")

	m := f.at(0)
	require.Equal(t, uint64(10), m.ID(), "the original value must survive a failed re-publish")
}

func TestFragment_SnapshotStopsAtFirstAbsentSlot(t *testing.T) {
	f := newFragment(0, 4)
	f.PublishAt(0, testMapping{id: 1})
	f.PublishAt(1, testMapping{id: 2})
	// slot 2 left absent; slot 3 published out of order.
	f.PublishAt(3, testMapping{id: 4})

	got := f.Snapshot(0, 4)
	require.Len(t, got, 2)
	require.Equal(t, uint64(1), got[0].ID())
	require.Equal(t, uint64(2), got[1].ID())
}

func TestFragment_SnapshotClampsToFragmentBounds(t *testing.T) {
	f := newFragment(0, 4)
	for i := uint64(0); i < 4; i++ {
		f.PublishAt(i, testMapping{id: i + 1})
	}

	got := f.Snapshot(2, 100)
	require.Len(t, got, 2)
}

func TestFragment_TrySearch(t *testing.T) {
	f := newFragment(0, 4)
	ids := []uint64{10, 20, 30, 40}
	for i, id := range ids {
		f.PublishAt(uint64(i), testMapping{id: id})
		f.length.Add(1)
	}

	idx, ok := f.TrySearch(30)
	require.True(t, ok)
	require.Equal(t, uint64(2), idx)

	_, ok = f.TrySearch(35)
	require.False(t, ok)
}

func TestFragment_TrySearch_PartiallyPopulated(t *testing.T) {
	f := newFragment(0, 4)
	f.PublishAt(0, testMapping{id: 10})
	f.length.Add(1)
	f.PublishAt(1, testMapping{id: 20})
	f.length.Add(1)
	// slot 3 holds id 40 but lies beyond length.
	f.PublishAt(3, testMapping{id: 40})

	_, ok := f.TrySearch(40)
	require.False(t, ok, "ids beyond length must never be found even if a later slot happens to hold one")
}

func TestFragment_MinMaxValue(t *testing.T) {
	f := newFragment(0, 4)

	_, ok := f.MinValue()
	require.False(t, ok, "an empty fragment has no advisory bounds")
	_, ok = f.MaxValue()
	require.False(t, ok)

	f.PublishAt(0, testMapping{id: 10})
	f.length.Add(1)
	minVal, ok := f.MinValue()
	require.True(t, ok)
	require.Equal(t, uint64(10), minVal)

	maxVal, ok := f.MaxValue()
	require.True(t, ok)
	require.Equal(t, uint64(10), maxVal, "with length==1 MaxValue is data[0]'s id")

	f.PublishAt(1, testMapping{id: 20})
	f.length.Add(1)
	maxVal, ok = f.MaxValue()
	require.True(t, ok)
	require.Equal(t, uint64(20), maxVal)
}

func TestFragment_HasValue(t *testing.T) {
	f := newFragment(0, 2)
	f.PublishAt(0, testMapping{id: 5})
	f.length.Add(1)

	require.True(t, f.HasValue(5))
	require.False(t, f.HasValue(6))
}
