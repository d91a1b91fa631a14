package ring

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults_FloorsCapacityAndFillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	require.Equal(t, uint32(minCapacity), cfg.Capacity)
	require.Equal(t, uint64(defaultFragmentCushion), cfg.FragmentCushion)
	require.Equal(t, maxPerFragmentDefault(), cfg.MaxPerFragment)
	require.Equal(t, opentracing.NoopTracer{}, cfg.Tracer)
	require.Equal(t, "scaleoutstore", cfg.TracePrefix)
}

func TestSetDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Capacity:        100,
		FragmentCushion: 10,
		MaxPerFragment:  50,
		TracePrefix:     "custom",
	}
	cfg.SetDefaults()

	require.Equal(t, uint32(100), cfg.Capacity)
	require.Equal(t, uint64(10), cfg.FragmentCushion)
	require.Equal(t, uint64(50), cfg.MaxPerFragment)
	require.Equal(t, "custom", cfg.TracePrefix)
}

func TestFragmentSizeFor(t *testing.T) {
	cases := []struct {
		name                            string
		capacity                        uint32
		fragmentCushion, maxPerFragment uint64
		want                            uint64
	}{
		{"exact division", 100, 4, 1000, 25},
		{"rounds up", 101, 4, 1000, 26},
		{"capped at maxPerFragment", 10000, 2, 100, 100},
		{"floor of one slot when cushion exceeds capacity", 1, 10, 1000, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fragmentSizeFor(tc.capacity, tc.fragmentCushion, tc.maxPerFragment)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNewTestRing_AppliesCapacityFloorAndDefaults(t *testing.T) {
	r := newTestRing(1, 0)

	require.Equal(t, fragmentSizeFor(minCapacity, defaultFragmentCushion, maxPerFragmentDefault()), r.FragmentSize())
	require.Equal(t, uint64(defaultFragmentCushion+1), r.FragmentCount())
}
