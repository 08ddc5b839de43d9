package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ============================================================================
// ANOMALY DETECTION — explainable, rule-based fraud heuristics
// ============================================================================
// A Detector is a list of independent signals. Each signal evaluates a view
// and returns the order ids it flags; the detector unions them. Thresholds
// are recomputed against the view passed in (the filtered view, not the
// whole store) on every call.
// ============================================================================

// Signal names used by the default detector.
const (
	SignalHighValue    = "high_value"
	SignalOffHours     = "off_hours"
	SignalHighQuantity = "high_quantity"
	SignalIPFrequency  = "ip_frequency"
)

// OrderSet is a set of order ids.
type OrderSet map[string]struct{}

// Add inserts an order id.
func (s OrderSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s OrderSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Signal is one independent anomaly predicate.
type Signal struct {
	Name     string
	Evaluate func(view RecordView) OrderSet
}

// DetectorConfig holds the tunable thresholds.
// Percentiles are fractions in [0,1]. The suspicious-hour window is inclusive
// on both ends and wraps past midnight when HourFrom > HourTo.
type DetectorConfig struct {
	ValuePercentile    float64 `json:"value_percentile" yaml:"value_percentile"`
	QuantityPercentile float64 `json:"quantity_percentile" yaml:"quantity_percentile"`
	IPPercentile       float64 `json:"ip_percentile" yaml:"ip_percentile"`
	HourFrom           int     `json:"hour_from" yaml:"hour_from"`
	HourTo             int     `json:"hour_to" yaml:"hour_to"`
}

// DefaultDetectorConfig returns the 95th-percentile / 01:00–04:00 defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ValuePercentile:    0.95,
		QuantityPercentile: 0.95,
		IPPercentile:       0.95,
		HourFrom:           1,
		HourTo:             4,
	}
}

// Validate returns a *RangeError for percentiles outside [0,1] or hours outside 0–23.
func (c DetectorConfig) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"value_percentile", c.ValuePercentile},
		{"quantity_percentile", c.QuantityPercentile},
		{"ip_percentile", c.IPPercentile},
	}
	for _, p := range checks {
		v := strconv.FormatFloat(p.v, 'f', -1, 64)
		if math.IsNaN(p.v) || p.v > 1 {
			return &RangeError{Field: p.name, Lower: v, Upper: "1"}
		}
		if p.v < 0 {
			return &RangeError{Field: p.name, Lower: "0", Upper: v}
		}
	}
	for _, h := range []struct {
		name string
		v    int
	}{{"hour_from", c.HourFrom}, {"hour_to", c.HourTo}} {
		if h.v > 23 {
			return &RangeError{Field: h.name, Lower: strconv.Itoa(h.v), Upper: "23"}
		}
		if h.v < 0 {
			return &RangeError{Field: h.name, Lower: "0", Upper: strconv.Itoa(h.v)}
		}
	}
	return nil
}

// inWindow reports whether hour falls in the configured suspicious window.
func (c DetectorConfig) inWindow(hour int) bool {
	if c.HourFrom <= c.HourTo {
		return hour >= c.HourFrom && hour <= c.HourTo
	}
	return hour >= c.HourFrom || hour <= c.HourTo
}

// ============================================================================
// QUANTILE
// ============================================================================

// Quantile returns the q-quantile of values using linear interpolation
// between order statistics (position q·(n−1) in the sorted data).
// ok is false for an empty input. values is not modified.
func Quantile(values []float64, q float64) (value float64, ok bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	q = math.Min(math.Max(q, 0), 1)
	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower], true
	}
	weight := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight, true
}

// ============================================================================
// SIGNALS
// ============================================================================

// HighValueSignal flags total_price strictly above the view's p-quantile.
func HighValueSignal(p float64) Signal {
	return measureOutlierSignal(SignalHighValue, FieldTotalPrice, p)
}

// HighQuantitySignal flags quantity strictly above the view's p-quantile.
func HighQuantitySignal(p float64) Signal {
	return measureOutlierSignal(SignalHighQuantity, FieldQuantity, p)
}

func measureOutlierSignal(name string, field Field, p float64) Signal {
	return Signal{
		Name: name,
		Evaluate: func(view RecordView) OrderSet {
			flagged := OrderSet{}
			threshold, ok := Quantile(MeasureValues(view, field), p)
			if !ok {
				return flagged
			}
			for i := 0; i < view.Len(); i++ {
				if view.Measure(i, field) > threshold {
					flagged.Add(view.Dimension(i, FieldOrderID))
				}
			}
			return flagged
		},
	}
}

// OffHoursSignal flags orders whose hour of day lies in [from, to].
func OffHoursSignal(from, to int) Signal {
	window := DetectorConfig{HourFrom: from, HourTo: to}
	return Signal{
		Name: SignalOffHours,
		Evaluate: func(view RecordView) OrderSet {
			flagged := OrderSet{}
			for i := 0; i < view.Len(); i++ {
				if window.inWindow(view.Timestamp(i).Hour()) {
					flagged.Add(view.Dimension(i, FieldOrderID))
				}
			}
			return flagged
		},
	}
}

// IPFrequencySignal counts orders per ip_address and flags every order from
// an IP whose count is strictly above the p-quantile of per-IP counts.
// Orders without an IP are neither counted nor flagged.
func IPFrequencySignal(p float64) Signal {
	return Signal{
		Name: SignalIPFrequency,
		Evaluate: func(view RecordView) OrderSet {
			flagged := OrderSet{}
			counts := make(map[string]int)
			order := make([]string, 0)
			for i := 0; i < view.Len(); i++ {
				ip := view.Dimension(i, FieldIPAddress)
				if ip == "" {
					continue
				}
				if _, ok := counts[ip]; !ok {
					order = append(order, ip)
				}
				counts[ip]++
			}

			perIP := make([]float64, len(order))
			for i, ip := range order {
				perIP[i] = float64(counts[ip])
			}
			threshold, ok := Quantile(perIP, p)
			if !ok {
				return flagged
			}
			for i := 0; i < view.Len(); i++ {
				ip := view.Dimension(i, FieldIPAddress)
				if ip != "" && float64(counts[ip]) > threshold {
					flagged.Add(view.Dimension(i, FieldOrderID))
				}
			}
			return flagged
		},
	}
}

// ============================================================================
// DETECTOR
// ============================================================================

// Detector unions the order sets of its signals.
type Detector struct {
	cfg     DetectorConfig
	signals []Signal
}

// NewDetector builds the default four-signal detector from cfg and appends
// any extra signals after them.
func NewDetector(cfg DetectorConfig, extra ...Signal) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	signals := []Signal{
		HighValueSignal(cfg.ValuePercentile),
		OffHoursSignal(cfg.HourFrom, cfg.HourTo),
		HighQuantitySignal(cfg.QuantityPercentile),
		IPFrequencySignal(cfg.IPPercentile),
	}
	for _, s := range extra {
		if s.Name == "" || s.Evaluate == nil {
			return nil, fmt.Errorf("signal %q: name and evaluate are required", s.Name)
		}
		signals = append(signals, s)
	}
	return &Detector{cfg: cfg, signals: signals}, nil
}

// Config returns the thresholds the detector was built with.
func (d *Detector) Config() DetectorConfig { return d.cfg }

// SignalNames lists the signals in evaluation order.
func (d *Detector) SignalNames() []string {
	names := make([]string, len(d.signals))
	for i, s := range d.signals {
		names[i] = s.Name
	}
	return names
}

// Detect evaluates every signal against view and returns the flagged records,
// deduplicated by order id and sorted descending by total_price (stable on
// view order). An empty view yields an empty, non-nil slice.
func (d *Detector) Detect(view RecordView) []FlaggedOrder {
	flagged := make([]FlaggedOrder, 0)
	if view.Len() == 0 {
		return flagged
	}

	sets := make([]OrderSet, len(d.signals))
	for i, s := range d.signals {
		sets[i] = s.Evaluate(view)
	}

	emitted := make(OrderSet)
	for i := 0; i < view.Len(); i++ {
		id := view.Dimension(i, FieldOrderID)
		if emitted.Has(id) {
			continue
		}
		var fired []string
		for j, set := range sets {
			if set.Has(id) {
				fired = append(fired, d.signals[j].Name)
			}
		}
		if len(fired) == 0 {
			continue
		}
		emitted.Add(id)
		flagged = append(flagged, FlaggedOrder{Transaction: view.Record(i), Signals: fired})
	}

	sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].TotalPrice > flagged[j].TotalPrice })
	return flagged
}

// DetectAnomalies is a shorthand for NewDetector(cfg).Detect(view).
func DetectAnomalies(view RecordView, cfg DetectorConfig) ([]FlaggedOrder, error) {
	d, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return d.Detect(view), nil
}
