package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// SCHEMA — Describes the shape of a transaction table
// ============================================================================
// The CSV helper and the PostgreSQL store resolve their columns through it.
// Keys are the canonical snake_case column names; aliases map legacy
// headers (transaction_date) onto them.
// ============================================================================

// Canonical column keys.
const (
	ColOrderID        = "order_id"
	ColTimestamp      = "transaction_timestamp"
	ColCustomerID     = "customer_id"
	ColCategory       = "category"
	ColProductName    = "product_name"
	ColPaymentMethod  = "payment_method"
	ColShippingMethod = "shipping_method"
	ColCouponCode     = "coupon_code"
	ColIPAddress      = "ip_address"
	ColQuantity       = "quantity"
	ColBasePrice      = "base_price"
	ColDiscount       = "discount"
	ColTotalPrice     = "total_price"
	ColCost           = "cost"
	ColProfit         = "profit"
)

// Config describes the complete shape of a dataset. It is served as JSON so
// a presentation layer can label columns and build filter widgets.
type Config struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions"`
	Measures   []MeasureMeta   `json:"measures"`
}

// DimensionMeta describes a string (or temporal) column.
type DimensionMeta struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Required    bool     `json:"required"`
	Groupable   bool     `json:"groupable"`
	Filterable  bool     `json:"filterable"`
	IsTemporal  bool     `json:"isTemporal,omitempty"`
}

// MeasureMeta describes a numeric column.
type MeasureMeta struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Required    bool     `json:"required"`
	IsCurrency  bool     `json:"isCurrency,omitempty"`
	IsInteger   bool     `json:"isInteger,omitempty"`
}

// DefaultDimension creates a required, groupable and filterable DimensionMeta.
func DefaultDimension(key, displayName string) DimensionMeta {
	return DimensionMeta{
		Key:         key,
		DisplayName: displayName,
		Required:    true,
		Groupable:   true,
		Filterable:  true,
	}
}

// DefaultMeasure creates a required currency MeasureMeta.
func DefaultMeasure(key, displayName string) MeasureMeta {
	return MeasureMeta{
		Key:         key,
		DisplayName: displayName,
		Required:    true,
		IsCurrency:  true,
	}
}

// Transactions returns the canonical e-commerce transaction schema.
func Transactions() Config {
	orderID := DefaultDimension(ColOrderID, "Order")
	orderID.Groupable = false
	orderID.Filterable = false

	ts := DefaultDimension(ColTimestamp, "Transaction Timestamp")
	ts.Aliases = []string{"transaction_date"}
	ts.IsTemporal = true
	ts.Groupable = false

	customer := DefaultDimension(ColCustomerID, "Customer")
	customer.Groupable = false
	customer.Filterable = false

	category := DefaultDimension(ColCategory, "Category")
	product := DefaultDimension(ColProductName, "Product Name")
	payment := DefaultDimension(ColPaymentMethod, "Payment Method")
	shipping := DefaultDimension(ColShippingMethod, "Shipping Method")

	coupon := DefaultDimension(ColCouponCode, "Coupon Code")
	coupon.Required = false
	coupon.Filterable = false
	coupon.Description = "NONE when no coupon was applied"

	ip := DefaultDimension(ColIPAddress, "IP Address")
	ip.Required = false
	ip.Groupable = false
	ip.Filterable = false

	quantity := DefaultMeasure(ColQuantity, "Quantity")
	quantity.IsCurrency = false
	quantity.IsInteger = true

	base := DefaultMeasure(ColBasePrice, "Base Price")
	base.Required = false
	discount := DefaultMeasure(ColDiscount, "Discount")
	discount.Required = false

	return Config{
		Name:        "transactions",
		Version:     "1",
		Description: "E-commerce order rows",
		Dimensions:  []DimensionMeta{orderID, ts, customer, category, product, payment, shipping, coupon, ip},
		Measures: []MeasureMeta{
			quantity,
			base,
			discount,
			DefaultMeasure(ColTotalPrice, "Total Price"),
			DefaultMeasure(ColCost, "Cost"),
			DefaultMeasure(ColProfit, "Profit"),
		},
	}
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// Columns returns every canonical key, dimensions first.
func (c Config) Columns() []string {
	return append(c.DimensionKeys(), c.MeasureKeys()...)
}

// GroupableKeys returns the dimensions a report may group by.
func (c Config) GroupableKeys() []string {
	var keys []string
	for _, d := range c.Dimensions {
		if d.Groupable {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// FilterableKeys returns the categorical dimensions a filter may constrain.
// Temporal columns are filtered by range and are left out.
func (c Config) FilterableKeys() []string {
	var keys []string
	for _, d := range c.Dimensions {
		if d.Filterable && !d.IsTemporal {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// DisplayName returns the label of a dimension or measure.
func (c Config) DisplayName(key string) (string, bool) {
	if d, ok := c.Dimension(key); ok {
		return d.DisplayName, true
	}
	if m, ok := c.Measure(key); ok {
		return m.DisplayName, true
	}
	return "", false
}

// Dimension looks up a dimension by key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Measure looks up a measure by key.
func (c Config) Measure(key string) (MeasureMeta, bool) {
	for _, m := range c.Measures {
		if m.Key == key {
			return m, true
		}
	}
	return MeasureMeta{}, false
}

// RequiredKeys returns the keys that must be present in an input table.
func (c Config) RequiredKeys() []string {
	var keys []string
	for _, d := range c.Dimensions {
		if d.Required {
			keys = append(keys, d.Key)
		}
	}
	for _, m := range c.Measures {
		if m.Required {
			keys = append(keys, m.Key)
		}
	}
	return keys
}

// ============================================================================
// HEADER RESOLUTION
// ============================================================================

// MissingColumnsError lists required columns absent from a header row.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ColumnIndex maps canonical keys to their position in a header row.
type ColumnIndex map[string]int

// Has reports whether the column was found.
func (ci ColumnIndex) Has(key string) bool {
	_, ok := ci[key]
	return ok
}

// Value returns the cell for key in row, or "" when the column is absent.
func (ci ColumnIndex) Value(row []string, key string) string {
	i, ok := ci[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Resolve matches a header row against the schema. Headers are normalised
// ("Total Price" → "total_price") and aliases are folded onto their
// canonical key; the canonical name wins when both are present. Unknown
// headers are ignored. A *MissingColumnsError is returned when a required
// column cannot be found.
func (c Config) Resolve(headers []string) (ColumnIndex, error) {
	lookup := make(map[string]string)
	for _, d := range c.Dimensions {
		lookup[d.Key] = d.Key
		for _, a := range d.Aliases {
			lookup[a] = d.Key
		}
	}
	for _, m := range c.Measures {
		lookup[m.Key] = m.Key
		for _, a := range m.Aliases {
			lookup[a] = m.Key
		}
	}

	index := make(ColumnIndex)
	for i, h := range headers {
		name := NormalizeHeader(h)
		key, ok := lookup[name]
		if !ok {
			continue
		}
		if _, seen := index[key]; seen && name != key {
			continue
		}
		index[key] = i
	}

	var missing []string
	for _, key := range c.RequiredKeys() {
		if !index.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingColumnsError{Missing: missing}
	}
	return index, nil
}

// NormalizeHeader converts "Column Name" → "column_name".
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
