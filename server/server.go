package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/helpers"
)

// ============================================================================
// SERVER — HTTP presentation boundary around the engine
// ============================================================================
// The current dataset sits behind an atomic pointer; replacing it swaps the
// whole store and bumps the generation. Each session owns its filters and a
// cached report that is recomputed when the filters change or the
// generation moves.
// ============================================================================

// Sink persists a replaced dataset (storage.Postgres satisfies it).
type Sink interface {
	ReplaceAll(ctx context.Context, view engine.RecordView) error
}

// dataset is an immutable store plus the generation it was installed at.
type dataset struct {
	store      *engine.Store
	generation uint64
	loadedAt   time.Time
}

// Server holds the dataset, the sessions and the HTTP wiring.
type Server struct {
	current atomic.Pointer[dataset]

	mu       sync.RWMutex
	sessions map[string]*session

	cfg     *config
	log     logrus.FieldLogger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Server.
type Option func(*config)

type config struct {
	Logger         logrus.FieldLogger
	Registry       *prometheus.Registry
	Sink           Sink
	CachePath      string
	MaxUploadBytes int64
	Currency       string
	Defaults       query
	EngineOptions  []engine.Option
	MaxSessions    int
	SessionTTL     time.Duration
}

// WithLogger routes server logs to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) {
		c.Logger = logger
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.Registry = reg
	}
}

// WithSink persists every uploaded dataset before it is installed.
func WithSink(sink Sink) Option {
	return func(c *config) {
		c.Sink = sink
	}
}

// WithCache writes every uploaded dataset to path as flat CSV.
func WithCache(path string) Option {
	return func(c *config) {
		c.CachePath = path
	}
}

// WithMaxUploadBytes bounds PUT /v1/dataset bodies (default 32 MiB).
func WithMaxUploadBytes(n int64) Option {
	return func(c *config) {
		c.MaxUploadBytes = n
	}
}

// WithCurrency sets the prefix used by the text and table renderings.
func WithCurrency(currency string) Option {
	return func(c *config) {
		c.Currency = currency
	}
}

// WithDefaults sets the period, top-N and top metric used when a request
// does not name its own.
func WithDefaults(period engine.Period, topN int, metric engine.Metric) Option {
	return func(c *config) {
		c.Defaults = query{Period: period, TopN: topN, TopMetric: metric}
	}
}

// WithEngineOptions passes options (detector thresholds, extra signals) to
// every Analyze call.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *config) {
		c.EngineOptions = append(c.EngineOptions, opts...)
	}
}

// WithSessionLimits bounds the session table. Creating a session beyond max
// evicts the one idle the longest; sessions idle longer than ttl expire.
// A ttl of zero disables expiry.
func WithSessionLimits(max int, ttl time.Duration) Option {
	return func(c *config) {
		if max > 0 {
			c.MaxSessions = max
		}
		c.SessionTTL = ttl
	}
}

// New creates a server around an initial store. A nil store starts empty.
func New(store *engine.Store, opts ...Option) *Server {
	cfg := &config{
		Logger:         logrus.StandardLogger(),
		MaxUploadBytes: 32 << 20,
		Currency:       "$",
		Defaults:       query{Period: engine.PeriodDay, TopN: engine.DefaultTopSpenders, TopMetric: engine.MetricQuantity},
		MaxSessions:    DefaultMaxSessions,
		SessionTTL:     DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		sessions: make(map[string]*session),
		cfg:      cfg,
		log:      cfg.Logger.WithField("component", "server"),
		metrics:  NewMetrics(cfg.Registry),
		now:      time.Now,
	}
	if store == nil {
		store, _ = engine.NewStore(nil)
	}
	s.install(store, 0)
	return s
}

// Dataset returns the current store and its generation.
func (s *Server) Dataset() (*engine.Store, uint64) {
	ds := s.current.Load()
	return ds.store, ds.generation
}

// ReplaceDataset persists store (when a sink or cache is configured) and
// makes it current. Sessions recompute on their next report request.
func (s *Server) ReplaceDataset(ctx context.Context, store *engine.Store) (uint64, error) {
	if s.cfg.Sink != nil {
		if err := s.cfg.Sink.ReplaceAll(ctx, store); err != nil {
			return 0, err
		}
	}
	if s.cfg.CachePath != "" {
		if err := helpers.SaveCache(s.cfg.CachePath, store); err != nil {
			s.log.WithError(err).Warn("⚠️ dataset cache not written")
		}
	}

	for {
		old := s.current.Load()
		next := old.generation + 1
		ds := &dataset{store: store, generation: next, loadedAt: time.Now()}
		if s.current.CompareAndSwap(old, ds) {
			s.metrics.DatasetRecords.Set(float64(store.Len()))
			s.metrics.DatasetGeneration.Set(float64(next))
			s.log.WithFields(logrus.Fields{"records": store.Len(), "generation": next}).Info("📦 dataset replaced")
			return next, nil
		}
	}
}

func (s *Server) install(store *engine.Store, generation uint64) {
	s.current.Store(&dataset{store: store, generation: generation, loadedAt: time.Now()})
	s.metrics.DatasetRecords.Set(float64(store.Len()))
	s.metrics.DatasetGeneration.Set(float64(generation))
}

// analyze runs the engine against ds and records metrics.
func (s *Server) analyze(ds *dataset, q query) (*engine.Report, error) {
	opts := append([]engine.Option{
		engine.WithLogger(s.log),
		engine.WithPeriod(q.Period),
		engine.WithTopN(q.TopN),
		engine.WithTopMetric(q.TopMetric),
	}, s.cfg.EngineOptions...)
	if q.RequireData {
		opts = append(opts, engine.WithRequireData())
	}

	start := time.Now()
	report, err := engine.Analyze(ds.store, q.Spec, opts...)
	s.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.metrics.AnalysesTotal.Inc()
	s.metrics.FlaggedOrders.Add(float64(len(report.Flagged)))
	return report, nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("🚀 starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.cfg.SessionTTL > 0 {
		go s.sweepLoop(ctx, s.cfg.SessionTTL/2)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server shutdown complete")
	return nil
}

func (s *Server) sweepLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions()
		}
	}
}
