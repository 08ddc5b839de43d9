package engine

import (
	"time"
)

// ============================================================================
// SHOPLENS ENGINE TYPES — Transaction Analytics
// ============================================================================
// Records are typed e-commerce transactions. Every stage consumes a
// RecordView and returns fresh value slices; nothing here points back into
// the Store.
// ============================================================================

// NoCoupon is the coupon_code value meaning "no coupon applied".
const NoCoupon = "NONE"

// ============================================================================
// TRANSACTION — the atomic record
// ============================================================================

// Transaction is a single order row.
type Transaction struct {
	OrderID        string    `json:"order_id"`
	Timestamp      time.Time `json:"transaction_timestamp"`
	CustomerID     string    `json:"customer_id"`
	Category       string    `json:"category"`
	ProductName    string    `json:"product_name"`
	PaymentMethod  string    `json:"payment_method"`
	ShippingMethod string    `json:"shipping_method"`
	Quantity       int       `json:"quantity"`
	BasePrice      float64   `json:"base_price"`
	Discount       float64   `json:"discount"`
	TotalPrice     float64   `json:"total_price"`
	Cost           float64   `json:"cost"`
	Profit         float64   `json:"profit"`
	CouponCode     string    `json:"coupon_code"`
	IPAddress      string    `json:"ip_address"`
}

// HasCoupon reports whether a coupon was applied to the order.
func (t Transaction) HasCoupon() bool {
	return t.CouponCode != "" && t.CouponCode != NoCoupon
}

// ============================================================================
// FILTER SPECIFICATION — externally owned, passed into every stage call
// ============================================================================

// AllValues is accepted on categorical filters as "no constraint",
// matching the dashboard's "All" select option.
const AllValues = "All"

// FilterSpec selects the records a session is looking at.
// Zero dates and nil prices mean "no constraint" (the full observed range).
// Empty or "All" categorical values mean "no constraint".
type FilterSpec struct {
	DateFrom       time.Time `json:"date_from"`
	DateTo         time.Time `json:"date_to"`
	Category       string    `json:"category,omitempty"`
	Product        string    `json:"product,omitempty"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	ShippingMethod string    `json:"shipping_method,omitempty"`
	PriceMin       *float64  `json:"price_min,omitempty"`
	PriceMax       *float64  `json:"price_max,omitempty"`
}

// ============================================================================
// AGGREGATION OUTPUT
// ============================================================================

// BucketRow is one time bucket of the period aggregation.
type BucketRow struct {
	Label   string    `json:"label"`
	Start   time.Time `json:"start"`
	Orders  int       `json:"orders"`
	Profit  float64   `json:"profit"`
	Revenue float64   `json:"revenue"` // sum(total_price)
	Cost    float64   `json:"cost"`
}

// PeriodValue is a single measure summed over one period.
type PeriodValue struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	Value  float64   `json:"value"`
}

// CategoryRow is one group of a categorical aggregation.
type CategoryRow struct {
	Field    Field   `json:"field"`
	Key      string  `json:"key"`
	Quantity int     `json:"quantity"`
	Profit   float64 `json:"profit"`
	Revenue  float64 `json:"revenue"` // sum(total_price)
	Orders   int     `json:"orders"`  // count(order_id)
}

// ============================================================================
// CUSTOMER INSIGHT OUTPUT
// ============================================================================

// CustomerStat is the rollup of one customer's orders.
type CustomerStat struct {
	CustomerID  string  `json:"customer_id"`
	Orders      int     `json:"order_count"`
	TotalSpend  float64 `json:"total_spend"`
	TotalProfit float64 `json:"total_profit"`
}

// CustomerReport summarises customers in a view.
// AvgOrderValue is the mean of per-customer spend, not a per-order mean.
// HasData is false for an empty view, in which case AvgOrderValue is 0.
type CustomerReport struct {
	TotalCustomers  int            `json:"total_customers"`
	AvgOrderValue   float64        `json:"avg_order_value"`
	RepeatCustomers int            `json:"repeat_customers"`
	TopSpenders     []CustomerStat `json:"top_spenders"`
	HasData         bool           `json:"has_data"`
}

// ============================================================================
// ANOMALY OUTPUT
// ============================================================================

// FlaggedOrder is a record flagged by at least one signal.
// Signals lists the names of every signal that fired, in detector order.
type FlaggedOrder struct {
	Transaction
	Signals []string `json:"signals"`
}

// ============================================================================
// SUMMARY OUTPUT
// ============================================================================

// Summary holds headline metrics of a filtered view and its share of the store.
// Shares are ratios in [0,1]; they are 0 when the store-wide total is 0.
type Summary struct {
	Revenue       float64 `json:"revenue"`
	Profit        float64 `json:"profit"`
	Orders        int     `json:"orders"`
	AvgOrderValue float64 `json:"avg_order_value"`
	RevenueShare  float64 `json:"revenue_share"`
	ProfitShare   float64 `json:"profit_share"`
	OrderShare    float64 `json:"order_share"`
}

// ============================================================================
// REPORT — everything a dashboard page needs for one FilterSpec
// ============================================================================

// Report is the output of Analyze.
type Report struct {
	Filters               FilterSpec     `json:"filters"`
	Period                Period         `json:"period"`
	TopMetric             Metric         `json:"top_metric"`
	MatchedRecords        int            `json:"matched_records"`
	StoreRecords          int            `json:"store_records"`
	Summary               Summary        `json:"summary"`
	Buckets               []BucketRow    `json:"buckets"`
	TopProducts           []CategoryRow  `json:"top_products"`
	CategoryDistribution  []CategoryRow  `json:"category_distribution"`
	PaymentBreakdown      []CategoryRow  `json:"payment_breakdown"`
	ShippingBreakdown     []CategoryRow  `json:"shipping_breakdown"`
	Customers             CustomerReport `json:"customers"`
	Flagged               []FlaggedOrder `json:"flagged"`
	Growth                *GrowthData    `json:"growth,omitempty"`
	DetectorConfiguration DetectorConfig `json:"detector"`
}

// GrowthData contains change-over-time of revenue between the first and last bucket.
type GrowthData struct {
	EarliestValue  float64 `json:"earliest_value"`
	LatestValue    float64 `json:"latest_value"`
	EarliestPeriod string  `json:"earliest_period"`
	LatestPeriod   string  `json:"latest_period"`
	ChangeAmount   float64 `json:"change_amount"`
	ChangePercent  float64 `json:"change_percent"`
	Direction      string  `json:"direction"` // "increased", "decreased", "unchanged", "insufficient data"
}

// ============================================================================
// CHART TYPES — series data only, drawing is left to the presentation layer
// ============================================================================

// ChartConfig describes one chart's data.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // "line", "bar", "pie", "scatter"
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES — render-ready tables for a presentation layer
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string        `json:"title"`
	Columns []Column      `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Summary *TableSummary `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "currency"
	Align string `json:"align"` // "left", "center", "right"
}

// TableSummary provides totals for a table.
type TableSummary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}
