package ring

import (
	"math/bits"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

// minCapacity is the floor applied to a requested logical capacity: a
// request below this is silently raised, never rejected.
const minCapacity = 32

// defaultFragmentCushion is F, the number of fragments the ring keeps
// beyond a single wraparound's worth of segments. The ring allocates
// F+1 fragment slots; the extra slot smooths contention during rotation.
const defaultFragmentCushion = 4

// maxPerFragmentDefault returns the platform ceiling on slots per fragment,
// chosen so a fragment stays below the runtime's large-allocation region:
// 16384 on 32-bit platforms, 8192 on 64-bit.
func maxPerFragmentDefault() uint64 {
	if bits.UintSize == 32 {
		return 16384
	}
	return 8192
}

// Config holds the construction inputs for a Ring. All fields are
// optional; SetDefaults fills in the zero values.
type Config struct {
	// Capacity is the requested logical capacity in messages. Floored to
	// 32; actual capacity may exceed the request once rounded up to whole
	// fragments.
	Capacity uint32

	// FragmentCushion is F: the ring allocates F+1 fragment slots. Default 4.
	FragmentCushion uint64

	// MaxPerFragment caps slots per fragment, keeping a fragment's backing
	// array below the platform's large-object threshold. Default per
	// platform word size.
	MaxPerFragment uint64

	// Tracer is invoked only on the reader's slow paths (overrun, expired
	// mapping id, oldest-fragment fallback) for diagnostics; it never
	// affects correctness. Defaults to opentracing.NoopTracer{}.
	Tracer opentracing.Tracer

	// TracePrefix names the spans this Ring starts, e.g. "<prefix>.read".
	TracePrefix string

	// Logger, if set, receives Debug-level diagnostics from the reader's
	// slow paths. The hot append path never logs. Nil means silent.
	Logger *zap.Logger
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Capacity < minCapacity {
		c.Capacity = minCapacity
	}
	if c.FragmentCushion == 0 {
		c.FragmentCushion = defaultFragmentCushion
	}
	if c.MaxPerFragment == 0 {
		c.MaxPerFragment = maxPerFragmentDefault()
	}
	if c.Tracer == nil {
		c.Tracer = opentracing.NoopTracer{}
	}
	if c.TracePrefix == "" {
		c.TracePrefix = "scaleoutstore"
	}
}

// fragmentSizeFor computes fragmentSize = min(ceil(C/F), maxPerFragment),
// with a floor of 1 slot so a pathological F larger than capacity still
// yields a usable ring.
func fragmentSizeFor(capacity uint32, fragmentCushion, maxPerFragment uint64) uint64 {
	c := uint64(capacity)
	size := (c + fragmentCushion - 1) / fragmentCushion
	if size > maxPerFragment {
		size = maxPerFragment
	}
	if size == 0 {
		size = 1
	}
	return size
}
