package engine

import (
	"strconv"
	"time"
)

// ============================================================================
// FILTERS — Predicate Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL constraints per record in one loop.
// Returns a SubView (index list into parent) with zero data copy.
// ============================================================================

// DateLayout is the calendar-date format used for filter bounds and day buckets.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD filter bound.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DefaultFilterSpec returns a spec covering the whole store:
// the observed date range and the observed total_price range.
func DefaultFilterSpec(store *Store) FilterSpec {
	from, to := store.DateRange()
	lo, hi := store.PriceRange()
	return FilterSpec{
		DateFrom: dateOf(from),
		DateTo:   dateOf(to),
		PriceMin: &lo,
		PriceMax: &hi,
	}
}

// Validate returns a *RangeError when a lower bound exceeds its upper bound.
func (f FilterSpec) Validate() error {
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && dayNumber(f.DateFrom) > dayNumber(f.DateTo) {
		return &RangeError{
			Field: "date",
			Lower: f.DateFrom.Format(DateLayout),
			Upper: f.DateTo.Format(DateLayout),
		}
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return &RangeError{
			Field: "total_price",
			Lower: strconv.FormatFloat(*f.PriceMin, 'f', -1, 64),
			Upper: strconv.FormatFloat(*f.PriceMax, 'f', -1, 64),
		}
	}
	return nil
}

// Matches reports whether a single record satisfies every predicate of the filter.
func (f FilterSpec) Matches(t Transaction) bool {
	day := dayNumber(t.Timestamp)
	if !f.DateFrom.IsZero() && day < dayNumber(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && day > dayNumber(f.DateTo) {
		return false
	}
	if f.PriceMin != nil && t.TotalPrice < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && t.TotalPrice > *f.PriceMax {
		return false
	}
	return matchValue(f.Category, t.Category) &&
		matchValue(f.Product, t.ProductName) &&
		matchValue(f.PaymentMethod, t.PaymentMethod) &&
		matchValue(f.ShippingMethod, t.ShippingMethod)
}

// IsEmpty returns true if the filter constrains nothing.
func (f FilterSpec) IsEmpty() bool {
	return f.DateFrom.IsZero() && f.DateTo.IsZero() &&
		f.PriceMin == nil && f.PriceMax == nil &&
		isUnconstrained(f.Category) && isUnconstrained(f.Product) &&
		isUnconstrained(f.PaymentMethod) && isUnconstrained(f.ShippingMethod)
}

// ApplyFilters returns a view of records matching all predicates of spec.
// Predicates are AND-combined. An empty filter returns the input view.
// Zero matching records is a valid result.
func ApplyFilters(view RecordView, spec FilterSpec) (RecordView, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.IsEmpty() {
		return view, nil
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if spec.Matches(view.Record(i)) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices), nil
}

func matchValue(want, got string) bool {
	return isUnconstrained(want) || want == got
}

func isUnconstrained(v string) bool {
	return v == "" || v == AllValues
}

// dayNumber turns a timestamp's calendar date into a sortable int (20230102).
// Timestamps are compared on their wall-clock date; no zone conversion happens.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// FILTER OPTIONS
// ============================================================================

// FilterOption lists the values a categorical filter can take.
type FilterOption struct {
	Field  Field    `json:"field"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// FilterOptions returns, for every filterable column, AllValues followed by
// the distinct non-empty values found in view in first-seen order.
func FilterOptions(view RecordView) []FilterOption {
	keys := columns.FilterableKeys()
	out := make([]FilterOption, 0, len(keys))
	for _, f := range fieldsOf(keys) {
		out = append(out, FilterOption{
			Field:  f,
			Label:  LabelForField(f),
			Values: append([]string{AllValues}, UniqueValues(view, f)...),
		})
	}
	return out
}
