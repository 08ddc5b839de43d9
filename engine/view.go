package engine

import (
	"math"
	"time"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// Stages never own data. They read through this interface.
//
// Implementations:
//   Store    : the immutable record store (owns a private copy of the rows)
//   SubView  : filtered subset (indices into parent, zero-copy)
//
// Column access goes through a field registry so grouping and sorting can be
// driven by a Field name coming from a caller.
// ============================================================================

// RecordView provides indexed, read-only access to transactions.
type RecordView interface {
	Len() int
	Record(index int) Transaction
	Dimension(index int, field Field) string
	Measure(index int, field Field) float64
	Timestamp(index int) time.Time
}

// ============================================================================
// FIELDS
// ============================================================================

// Field names a transaction column.
type Field string

const (
	FieldOrderID        Field = "order_id"
	FieldCustomerID     Field = "customer_id"
	FieldCategory       Field = "category"
	FieldProductName    Field = "product_name"
	FieldPaymentMethod  Field = "payment_method"
	FieldShippingMethod Field = "shipping_method"
	FieldCouponCode     Field = "coupon_code"
	FieldIPAddress      Field = "ip_address"

	FieldQuantity   Field = "quantity"
	FieldBasePrice  Field = "base_price"
	FieldDiscount   Field = "discount"
	FieldTotalPrice Field = "total_price"
	FieldCost       Field = "cost"
	FieldProfit     Field = "profit"
)

// fieldRegistry maps field names to accessors on *Transaction.
// Declared once; views read through it in tight loops.
type fieldRegistry struct {
	dimOrder []Field
	mesOrder []Field
	dims     map[Field]func(*Transaction) string
	meas     map[Field]func(*Transaction) float64
}

func newFieldRegistry() *fieldRegistry {
	return &fieldRegistry{
		dims: make(map[Field]func(*Transaction) string),
		meas: make(map[Field]func(*Transaction) float64),
	}
}

func (r *fieldRegistry) dimension(f Field, fn func(*Transaction) string) *fieldRegistry {
	if _, exists := r.dims[f]; !exists {
		r.dimOrder = append(r.dimOrder, f)
	}
	r.dims[f] = fn
	return r
}

func (r *fieldRegistry) measure(f Field, fn func(*Transaction) float64) *fieldRegistry {
	if _, exists := r.meas[f]; !exists {
		r.mesOrder = append(r.mesOrder, f)
	}
	r.meas[f] = fn
	return r
}

var fields = newFieldRegistry().
	dimension(FieldOrderID, func(t *Transaction) string { return t.OrderID }).
	dimension(FieldCustomerID, func(t *Transaction) string { return t.CustomerID }).
	dimension(FieldCategory, func(t *Transaction) string { return t.Category }).
	dimension(FieldProductName, func(t *Transaction) string { return t.ProductName }).
	dimension(FieldPaymentMethod, func(t *Transaction) string { return t.PaymentMethod }).
	dimension(FieldShippingMethod, func(t *Transaction) string { return t.ShippingMethod }).
	dimension(FieldCouponCode, func(t *Transaction) string { return t.CouponCode }).
	dimension(FieldIPAddress, func(t *Transaction) string { return t.IPAddress }).
	measure(FieldQuantity, func(t *Transaction) float64 { return float64(t.Quantity) }).
	measure(FieldBasePrice, func(t *Transaction) float64 { return t.BasePrice }).
	measure(FieldDiscount, func(t *Transaction) float64 { return t.Discount }).
	measure(FieldTotalPrice, func(t *Transaction) float64 { return t.TotalPrice }).
	measure(FieldCost, func(t *Transaction) float64 { return t.Cost }).
	measure(FieldProfit, func(t *Transaction) float64 { return t.Profit })

// DimensionFields lists every string column in declaration order.
func DimensionFields() []Field { return append([]Field(nil), fields.dimOrder...) }

// MeasureFields lists every numeric column in declaration order.
func MeasureFields() []Field { return append([]Field(nil), fields.mesOrder...) }

// IsMeasure reports whether f is a numeric column.
func IsMeasure(f Field) bool {
	_, ok := fields.meas[f]
	return ok
}

// ============================================================================
// STORE — immutable record store
// ============================================================================

// Store is the in-memory record store for one analysis session.
// It is never patched: new data means a new Store.
type Store struct {
	records []Transaction
}

// NewStore copies records into a new Store after checking its invariants:
// unique order ids, a customer on every record, quantity >= 1, total_price >= 0.
func NewStore(records []Transaction) (*Store, error) {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		r := &records[i]
		switch {
		case r.OrderID == "":
			return nil, &RecordError{Index: i, Reason: "missing order_id"}
		case r.CustomerID == "":
			return nil, &RecordError{Index: i, OrderID: r.OrderID, Reason: "missing customer_id"}
		case r.Quantity < 1:
			return nil, &RecordError{Index: i, OrderID: r.OrderID, Reason: "quantity must be >= 1"}
		case r.TotalPrice < 0:
			return nil, &RecordError{Index: i, OrderID: r.OrderID, Reason: "total_price must be >= 0"}
		}
		if _, dup := seen[r.OrderID]; dup {
			return nil, &RecordError{Index: i, OrderID: r.OrderID, Reason: "duplicate order_id"}
		}
		seen[r.OrderID] = struct{}{}
	}

	owned := make([]Transaction, len(records))
	copy(owned, records)
	for i := range owned {
		if owned[i].CouponCode == "" {
			owned[i].CouponCode = NoCoupon
		}
	}
	return &Store{records: owned}, nil
}

func (s *Store) Len() int { return len(s.records) }

func (s *Store) Record(i int) Transaction {
	if i < 0 || i >= len(s.records) {
		return Transaction{}
	}
	return s.records[i]
}

func (s *Store) Dimension(i int, f Field) string {
	if i < 0 || i >= len(s.records) {
		return ""
	}
	if fn, ok := fields.dims[f]; ok {
		return fn(&s.records[i])
	}
	return ""
}

func (s *Store) Measure(i int, f Field) float64 {
	if i < 0 || i >= len(s.records) {
		return 0
	}
	if fn, ok := fields.meas[f]; ok {
		return fn(&s.records[i])
	}
	return 0
}

func (s *Store) Timestamp(i int) time.Time {
	if i < 0 || i >= len(s.records) {
		return time.Time{}
	}
	return s.records[i].Timestamp
}

// Records returns a copy of every record, in store order.
func (s *Store) Records() []Transaction {
	out := make([]Transaction, len(s.records))
	copy(out, s.records)
	return out
}

// DateRange returns the earliest and latest transaction timestamps.
// Both are zero for an empty store.
func (s *Store) DateRange() (time.Time, time.Time) {
	var lo, hi time.Time
	for i, r := range s.records {
		if i == 0 || r.Timestamp.Before(lo) {
			lo = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(hi) {
			hi = r.Timestamp
		}
	}
	return lo, hi
}

// PriceRange returns the smallest and largest total_price. Both are 0 for an empty store.
func (s *Store) PriceRange() (float64, float64) {
	if len(s.records) == 0 {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range s.records {
		lo = math.Min(lo, r.TotalPrice)
		hi = math.Max(hi, r.TotalPrice)
	}
	return lo, hi
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent, no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Record(i int) Transaction {
	if i < 0 || i >= len(v.indices) {
		return Transaction{}
	}
	return v.parent.Record(v.indices[i])
}

func (v *SubView) Dimension(i int, f Field) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], f)
}

func (v *SubView) Measure(i int, f Field) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], f)
}

func (v *SubView) Timestamp(i int) time.Time {
	if i < 0 || i >= len(v.indices) {
		return time.Time{}
	}
	return v.parent.Timestamp(v.indices[i])
}

// Records materialises every record in the view, in view order.
func Records(view RecordView) []Transaction {
	out := make([]Transaction, view.Len())
	for i := range out {
		out[i] = view.Record(i)
	}
	return out
}
