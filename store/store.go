package store

import (
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/scaleoutstore/scaleoutstore/mapping"
	"github.com/scaleoutstore/scaleoutstore/ring"
)

// Event is the Mapping adapter used by the demo binary and by tests: any
// byte payload tagged with a caller-assigned id.
type Event struct {
	EventID uint64
	Payload []byte
}

// ID implements mapping.Mapping.
func (e Event) ID() uint64 { return e.EventID }

// Store wraps a ring.Ring with the logging, tracing, and metrics an
// operated instance needs. The ring itself stays free of these concerns;
// Store is the seam where they're wired in, in the style of yanet2's
// coordinator package wrapping its lower-level primitives.
type Store struct {
	ring *ring.Ring
	log  *zap.Logger

	appendsTotal             prometheus.Counter
	overrunReadsTotal        prometheus.Counter
	expiredMappingReadsTotal prometheus.Counter
}

// Option configures optional aspects of a Store at construction time.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	tracer     opentracing.Tracer
	registerer prometheus.Registerer
}

// WithLogger sets the logger the store (and the ring beneath it) uses for
// slow-path diagnostics and construction-time logging.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithTracer sets the tracing sink invoked on the reader's slow paths.
func WithTracer(tracer opentracing.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithRegisterer overrides the Prometheus registerer metrics are
// registered against. Defaults to a fresh, instance-scoped registry rather
// than the global default registerer, so that multiple Store instances
// (e.g. in tests) never collide on metric names.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New constructs a Store from cfg (DefaultConfig() if nil) and opts.
func New(cfg *Config, opts ...Option) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	r := ring.New(ring.Config{
		Capacity:        cfg.Capacity,
		FragmentCushion: cfg.FragmentCushion,
		MaxPerFragment:  cfg.MaxPerFragment,
		Tracer:          o.tracer,
		TracePrefix:     cfg.TracePrefix,
		Logger:          o.logger,
	})

	o.logger.Info("scaleout message store ring constructed",
		zap.Uint64("fragment_size", r.FragmentSize()),
		zap.Uint64("fragment_count", r.FragmentCount()),
	)

	s := &Store{ring: r, log: o.logger}
	s.registerMetrics(o.registerer, cfg.TracePrefix)
	return s
}

func (s *Store) registerMetrics(reg prometheus.Registerer, namespace string) {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ring_next_free_seq",
		Help:      "Next sequence number to be assigned by the ring.",
	}, func() float64 { return float64(s.ring.NextFreeSeq()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ring_min_seq",
		Help:      "Lower bound of sequence numbers still addressable by a cursor.",
	}, func() float64 { return float64(s.ring.MinSeq()) })

	s.appendsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appends_total",
		Help:      "Total number of messages appended to the ring.",
	})

	s.overrunReadsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overrun_reads_total",
		Help:      "Total number of Read calls whose cursor had fallen behind the ring minimum.",
	})

	s.expiredMappingReadsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expired_mapping_reads_total",
		Help:      "Total number of ReadSinceMappingId calls classified as expired.",
	})
}

// Append appends m to the ring and returns its assigned sequence number.
func (s *Store) Append(m mapping.Mapping) uint64 {
	seq := s.ring.Append(m)
	s.appendsTotal.Inc()
	return seq
}

// Read resolves cursor against the ring, recording an overrun observation
// when the returned cursor differs from the one requested (Read's Case C).
func (s *Store) Read(cursor uint64) ring.Batch {
	batch := s.ring.Read(cursor)
	if batch.NextCursor != cursor {
		s.overrunReadsTotal.Inc()
	}
	return batch
}

// ReadSinceMappingId resolves id against the ring by payload id,
// recording an expired-mapping observation via ring.WithObserver.
func (s *Store) ReadSinceMappingId(id uint64, connectionID string) ring.Batch {
	return s.ring.ReadSinceMappingId(id,
		ring.WithConnectionID(connectionID),
		ring.WithLog(s.log),
		ring.WithObserver(func(outcome ring.Outcome) {
			if outcome == ring.OutcomeExpired {
				s.expiredMappingReadsTotal.Inc()
			}
		}),
	)
}

// Stats returns a snapshot of the underlying ring's observable properties.
func (s *Store) Stats() ring.Stats {
	return s.ring.Stats()
}

// GapBetween reports whether any sequence number in [from, to) has already
// been overwritten. A transport-layer caller holding a stale cursor can use
// it to decide whether to warn a consumer that messages were dropped,
// without waiting for its own Read call to observe the overrun.
func (s *Store) GapBetween(from, to uint64) bool {
	return s.ring.GapBetween(from, to)
}
