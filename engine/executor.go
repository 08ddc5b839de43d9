package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// EXECUTOR — one pass of every stage for a FilterSpec
// ============================================================================
// Entry point: Analyze(store, spec, opts...)
//
// Pipeline:
//   1. Apply filters → SubView
//   2. Summary metrics against the unfiltered store
//   3. Period buckets, product / category / payment / shipping groups
//   4. Customer insights
//   5. Anomaly detection (thresholds computed on the filtered view)
//   6. Return Report
//
// The store is never modified; the report holds fresh slices only.
// ============================================================================

// Analyze runs the full pipeline for spec against store.
func Analyze(store *Store, spec FilterSpec, opts ...Option) (*Report, error) {
	cfg := applyOptions(opts)
	log := cfg.Logger.WithFields(logrus.Fields{
		"component": "engine",
		"period":    cfg.Period,
	})
	started := time.Now()

	detector, err := NewDetector(cfg.Detector, cfg.Signals...)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}

	// 1. Filter
	filtered, err := ApplyFilters(store, spec)
	if err != nil {
		return nil, err
	}
	log.Debugf("🔧 %d records after filtering (from %d)", filtered.Len(), store.Len())

	if filtered.Len() == 0 && cfg.RequireData {
		return nil, fmt.Errorf("no records match filters: %w", ErrEmptyInput)
	}

	report := &Report{
		Filters:               spec,
		Period:                cfg.Period,
		TopMetric:             cfg.TopMetric,
		MatchedRecords:        filtered.Len(),
		StoreRecords:          store.Len(),
		DetectorConfiguration: detector.Config(),
	}

	// 2. Summary
	report.Summary = Summarize(filtered, store)

	// 3. Aggregations
	if report.Buckets, err = AggregateByPeriod(filtered, cfg.Period); err != nil {
		return nil, err
	}
	report.Growth = BuildGrowth(report.Buckets)

	products, err := AggregateByField(filtered, FieldProductName)
	if err != nil {
		return nil, err
	}
	if report.TopProducts, err = TopN(products, cfg.TopMetric, cfg.TopN); err != nil {
		return nil, err
	}

	if report.CategoryDistribution, err = AggregateByField(filtered, FieldCategory); err != nil {
		return nil, err
	}
	if report.PaymentBreakdown, err = AggregateByField(filtered, FieldPaymentMethod); err != nil {
		return nil, err
	}
	if report.ShippingBreakdown, err = AggregateByField(filtered, FieldShippingMethod); err != nil {
		return nil, err
	}

	// 4. Customers
	report.Customers = CustomerInsights(filtered, cfg.TopN)

	// 5. Anomalies
	report.Flagged = detector.Detect(filtered)
	if len(report.Flagged) > 0 {
		log.Debugf("🚩 %d potentially suspicious orders", len(report.Flagged))
	}

	log.WithFields(logrus.Fields{
		"matched":  report.MatchedRecords,
		"flagged":  len(report.Flagged),
		"duration": time.Since(started),
	}).Debug("📊 analysis complete")

	return report, nil
}
