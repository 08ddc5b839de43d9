package engine

import (
	"github.com/sirupsen/logrus"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Analyze()
// ============================================================================

// Option configures Analyze via the functional options pattern.
type Option func(*config)

type config struct {
	Period      Period
	TopN        int
	TopMetric   Metric
	Detector    DetectorConfig
	Signals     []Signal
	RequireData bool
	Logger      logrus.FieldLogger
}

// WithPeriod sets the time-bucket granularity (default: day).
func WithPeriod(p Period) Option {
	return func(c *config) {
		c.Period = p
	}
}

// WithTopN sets how many products and customers are kept (default: 10).
func WithTopN(n int) Option {
	return func(c *config) {
		c.TopN = n
	}
}

// WithTopMetric sets the metric products are ranked by (default: quantity).
func WithTopMetric(m Metric) Option {
	return func(c *config) {
		c.TopMetric = m
	}
}

// WithDetector replaces the anomaly thresholds.
func WithDetector(cfg DetectorConfig) Option {
	return func(c *config) {
		c.Detector = cfg
	}
}

// WithSignals appends extra anomaly signals after the four defaults.
func WithSignals(signals ...Signal) Option {
	return func(c *config) {
		c.Signals = append(c.Signals, signals...)
	}
}

// WithRequireData makes Analyze fail with ErrEmptyInput when nothing matches.
func WithRequireData() Option {
	return func(c *config) {
		c.RequireData = true
	}
}

// WithLogger routes engine logs to logger instead of the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) {
		c.Logger = logger
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Period:    PeriodDay,
		TopN:      DefaultTopSpenders,
		TopMetric: MetricQuantity,
		Detector:  DefaultDetectorConfig(),
		Logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
