package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRead_UpToDate(t *testing.T) {
	r := newFixedRing(4, 4)
	r.Append(testMapping{id: 10})

	batch := r.Read(1)
	require.Equal(t, uint64(1), batch.NextCursor)
	require.Empty(t, batch.Messages)
	require.False(t, batch.HasMore)
}

func TestRead_InWindow(t *testing.T) {
	r := newFixedRing(4, 4)
	r.Append(testMapping{id: 10})
	r.Append(testMapping{id: 20})

	batch := r.Read(0)
	require.Equal(t, uint64(0), batch.NextCursor)
	require.Len(t, batch.Messages, 2)
	require.Equal(t, uint64(10), batch.Messages[0].ID())
	require.Equal(t, uint64(20), batch.Messages[1].ID())
	require.False(t, batch.HasMore, "fragment not yet full and ring tip reached")
}

func TestRead_InWindowReportsHasMoreWhenFragmentFull(t *testing.T) {
	r := newFixedRing(4, 4)
	for _, id := range []uint64{10, 20, 30, 40} {
		r.Append(testMapping{id: id})
	}
	r.Append(testMapping{id: 50}) // first slot of the next fragment

	batch := r.Read(0)
	require.Len(t, batch.Messages, 4)
	require.True(t, batch.HasMore)
}

func TestRead_Overrun(t *testing.T) {
	r := newFixedRing(4, 4)

	// Fill all 5 fragments (20 messages), then push one more to displace
	// the oldest fragment (fragmentNum 0, which held cursor 0).
	for i := uint64(0); i < 20; i++ {
		r.Append(testMapping{id: (i + 1) * 10})
	}
	r.Append(testMapping{id: 9999})

	batch := r.Read(0)
	require.Equal(t, uint64(4), batch.NextCursor, "resumes from the oldest surviving fragment")
	require.Len(t, batch.Messages, 4)
	require.Equal(t, uint64(50), batch.Messages[0].ID())
	require.True(t, batch.HasMore)
}

func TestReadSinceMappingId_Found(t *testing.T) {
	r := newFixedRing(4, 4)
	for _, id := range []uint64{10, 20, 30, 40} {
		r.Append(testMapping{id: id})
	}

	var observed Outcome
	batch := r.ReadSinceMappingId(20, WithObserver(func(o Outcome) { observed = o }))

	require.Equal(t, OutcomeFound, observed)
	require.Len(t, batch.Messages, 2)
	require.Equal(t, uint64(30), batch.Messages[0].ID())
	require.Equal(t, uint64(40), batch.Messages[1].ID())
}

func TestReadSinceMappingId_BelowWatermark(t *testing.T) {
	r := newFixedRing(4, 1) // fragmentCushion=1 -> 2 fragments resident at once

	for _, id := range []uint64{10, 20, 30, 40, 50, 60, 70, 80} {
		r.Append(testMapping{id: id})
	}
	// Displace fragment 0 (ids 10-40).
	r.Append(testMapping{id: 90})

	var observed Outcome
	batch := r.ReadSinceMappingId(25, WithObserver(func(o Outcome) { observed = o }))

	require.Equal(t, OutcomeBelowWatermark, observed)
	require.Equal(t, uint64(50), batch.Messages[0].ID(), "falls back to the oldest surviving fragment")
}

func TestReadSinceMappingId_AheadOfTip(t *testing.T) {
	r := newFixedRing(4, 4)
	r.Append(testMapping{id: 10})

	var observed Outcome
	batch := r.ReadSinceMappingId(999999, WithObserver(func(o Outcome) { observed = o }))

	require.Equal(t, OutcomeAheadOfTip, observed)
	require.False(t, batch.HasMore)
	require.Empty(t, batch.Messages)
}

func TestSearchRingByMappingID_EmptyRing(t *testing.T) {
	r := newFixedRing(4, 4)

	found, frag := r.searchRingByMappingID(1)
	require.False(t, found)
	require.Nil(t, frag)
}
