package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGapBetween_EmptyOrInvertedRangeIsNeverAGap(t *testing.T) {
	r := newFixedRing(4, 4)

	require.False(t, r.GapBetween(5, 5))
	require.False(t, r.GapBetween(5, 3))
}

func TestGapBetween_FlipsTrueOnceMinSeqAdvancesPastFrom(t *testing.T) {
	r := newFixedRing(4, 4)

	for i := uint64(0); i < 20; i++ {
		r.Append(testMapping{id: (i + 1) * 10})
	}
	require.False(t, r.GapBetween(0, 4), "minSeq is still 0; nothing in [0,4) has been overwritten yet")

	r.Append(testMapping{id: 9999}) // displaces fragmentNum 0, advancing minSeq to 4

	require.True(t, r.GapBetween(0, 4), "fragmentNum 0, covering seq [0,4), is now gone")
	require.False(t, r.GapBetween(4, 8), "seq [4,8) is still resident")
}
