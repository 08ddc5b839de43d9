package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spektr-org/shoplens/schema"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// All functions operate on an already-filtered RecordView and never re-filter.
// Grouping keeps first-seen group order; sorting is stable.
// ============================================================================

// Period is a time-bucket granularity.
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

var periods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear}

// ParsePeriod resolves a period name ("day", "W", "month", ...).
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "d", "daily", "":
		return PeriodDay, nil
	case "week", "w", "weekly":
		return PeriodWeek, nil
	case "month", "m", "monthly":
		return PeriodMonth, nil
	case "quarter", "q", "quarterly":
		return PeriodQuarter, nil
	case "year", "y", "yearly", "annual":
		return PeriodYear, nil
	}
	return "", &FieldError{Field: s, Allowed: periodNames()}
}

// Metric is a sort key for categorical rows.
type Metric string

const (
	MetricQuantity Metric = "quantity"
	MetricProfit   Metric = "profit"
	MetricRevenue  Metric = "total_price"
	MetricOrders   Metric = "orders"
)

// columns describes every transaction column: labels, grouping and filtering.
var columns = schema.Transactions()

// categoricalFields are the columns AggregateByField accepts.
var categoricalFields = fieldsOf(columns.GroupableKeys())

// ============================================================================
// TIME-BUCKETED AGGREGATION
// ============================================================================

// AggregateByPeriod sums profit, total_price and cost per time bucket.
// Buckets are ascending by start time; empty buckets are omitted.
func AggregateByPeriod(view RecordView, period Period) ([]BucketRow, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	byLabel := make(map[string]int)
	rows := make([]BucketRow, 0)
	for i := 0; i < view.Len(); i++ {
		label, start := bucketOf(view.Timestamp(i), period)
		idx, ok := byLabel[label]
		if !ok {
			idx = len(rows)
			byLabel[label] = idx
			rows = append(rows, BucketRow{Label: label, Start: start})
		}
		rows[idx].Orders++
		rows[idx].Profit += view.Measure(i, FieldProfit)
		rows[idx].Revenue += view.Measure(i, FieldTotalPrice)
		rows[idx].Cost += view.Measure(i, FieldCost)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })
	return rows, nil
}

// ComparePeriods sums a single measure per period, ascending by period.
func ComparePeriods(view RecordView, measure Field, period Period) ([]PeriodValue, error) {
	if !IsMeasure(measure) {
		return nil, &FieldError{Field: string(measure), Allowed: fieldNames(MeasureFields())}
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	byLabel := make(map[string]int)
	out := make([]PeriodValue, 0)
	for i := 0; i < view.Len(); i++ {
		label, start := bucketOf(view.Timestamp(i), period)
		idx, ok := byLabel[label]
		if !ok {
			idx = len(out)
			byLabel[label] = idx
			out = append(out, PeriodValue{Period: label, Start: start})
		}
		out[idx].Value += view.Measure(i, measure)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// bucketOf truncates a timestamp to its bucket boundary and labels it.
func bucketOf(ts time.Time, period Period) (string, time.Time) {
	y, m, d := ts.Date()
	switch period {
	case PeriodWeek:
		wy, wk := ts.ISOWeek()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return fmt.Sprintf("%04d-W%02d", wy, wk), day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return fmt.Sprintf("%04d-%02d", y, int(m)), time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case PeriodQuarter:
		q := (int(m)-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", y, q), time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		return fmt.Sprintf("%04d", y), time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return day.Format(DateLayout), day
	}
}

func checkPeriod(p Period) error {
	for _, known := range periods {
		if p == known {
			return nil
		}
	}
	return &FieldError{Field: string(p), Allowed: periodNames()}
}

// ============================================================================
// CATEGORICAL AGGREGATION
// ============================================================================

// AggregateByField groups by a categorical column and sums quantity, profit,
// total_price and order count per group. Groups keep first-seen order.
func AggregateByField(view RecordView, field Field) ([]CategoryRow, error) {
	if !isCategorical(field) {
		return nil, &FieldError{Field: string(field), Allowed: fieldNames(categoricalFields)}
	}

	byKey := make(map[string]int)
	rows := make([]CategoryRow, 0)
	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, field)
		idx, ok := byKey[key]
		if !ok {
			idx = len(rows)
			byKey[key] = idx
			rows = append(rows, CategoryRow{Field: field, Key: key})
		}
		rows[idx].Quantity += int(view.Measure(i, FieldQuantity))
		rows[idx].Profit += view.Measure(i, FieldProfit)
		rows[idx].Revenue += view.Measure(i, FieldTotalPrice)
		rows[idx].Orders++
	}
	return rows, nil
}

// TopN returns the first n rows sorted descending by metric.
// Ties keep their input order. n <= 0 returns every row, sorted.
// The input slice is not modified.
func TopN(rows []CategoryRow, metric Metric, n int) ([]CategoryRow, error) {
	value, err := metricValue(metric)
	if err != nil {
		return nil, err
	}

	sorted := make([]CategoryRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return value(sorted[i]) > value(sorted[j]) })

	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// ParseMetric resolves a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if m == "revenue" {
		m = MetricRevenue
	}
	if m == "count" || m == "order_count" {
		m = MetricOrders
	}
	if _, err := metricValue(m); err != nil {
		return "", err
	}
	return m, nil
}

func metricValue(metric Metric) (func(CategoryRow) float64, error) {
	switch metric {
	case MetricQuantity:
		return func(r CategoryRow) float64 { return float64(r.Quantity) }, nil
	case MetricProfit:
		return func(r CategoryRow) float64 { return r.Profit }, nil
	case MetricRevenue:
		return func(r CategoryRow) float64 { return r.Revenue }, nil
	case MetricOrders:
		return func(r CategoryRow) float64 { return float64(r.Orders) }, nil
	}
	return nil, &FieldError{
		Field:   string(metric),
		Allowed: []string{string(MetricQuantity), string(MetricProfit), string(MetricRevenue), string(MetricOrders)},
	}
}

// ParseCategoricalField resolves a grouping column name.
func ParseCategoricalField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "product":
		f = FieldProductName
	case "payment":
		f = FieldPaymentMethod
	case "shipping":
		f = FieldShippingMethod
	case "coupon":
		f = FieldCouponCode
	}
	if !isCategorical(f) {
		return "", &FieldError{Field: s, Allowed: fieldNames(categoricalFields)}
	}
	return f, nil
}

func isCategorical(f Field) bool {
	for _, c := range categoricalFields {
		if c == f {
			return true
		}
	}
	return false
}

// ============================================================================
// MEASURE HELPERS
// ============================================================================

// SumMeasure sums a measure across a view.
func SumMeasure(view RecordView, field Field) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, field)
	}
	return total
}

// SumMoney sums a money measure in decimal arithmetic and returns it rounded to cents.
func SumMoney(view RecordView, field Field) float64 {
	total := decimal.Zero
	for i := 0; i < view.Len(); i++ {
		total = total.Add(decimal.NewFromFloat(view.Measure(i, field)))
	}
	return total.Round(2).InexactFloat64()
}

// MeasureValues extracts a measure column in view order.
func MeasureValues(view RecordView, field Field) []float64 {
	out := make([]float64, view.Len())
	for i := range out {
		out[i] = view.Measure(i, field)
	}
	return out
}

// UniqueValues returns distinct non-empty values of a column, first-seen order.
func UniqueValues(view RecordView, field Field) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := view.Dimension(i, field)
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatCurrency formats an amount with currency prefix and comma separators.
func FormatCurrency(amount float64, currency string) string {
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()
	if negative {
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	intStr, decStr, _ := strings.Cut(fixed, ".")
	if len(intStr) > 3 {
		var parts []string
		for len(intStr) > 3 {
			parts = append([]string{intStr[len(intStr)-3:]}, parts...)
			intStr = intStr[:len(intStr)-3]
		}
		parts = append([]string{intStr}, parts...)
		intStr = strings.Join(parts, ",")
	}

	result := fmt.Sprintf("%s%s.%s", currency, intStr, decStr)
	if negative {
		result = "-" + result
	}
	return result
}

// FormatPercent formats a ratio (0.25) as "25.0%".
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// LabelForField returns a display label for a column ("product_name" → "Product Name").
// Schema columns use their display name; other names are title-cased.
func LabelForField(f Field) string {
	if name, ok := columns.DisplayName(string(f)); ok && name != "" {
		return name
	}
	words := strings.Split(string(f), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func fieldNames(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

func fieldsOf(keys []string) []Field {
	out := make([]Field, len(keys))
	for i, k := range keys {
		out[i] = Field(k)
	}
	return out
}

// columnType is the table column type of a field: currency, number or text.
func columnType(f Field) string {
	if m, ok := columns.Measure(string(f)); ok {
		if m.IsCurrency {
			return "currency"
		}
		return "number"
	}
	return "text"
}

func periodNames() []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = string(p)
	}
	return out
}
