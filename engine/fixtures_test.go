package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ── Test Data ─────────────────────────────────────────────────────────────────

// sampleTransactions mirrors the ten-row dashboard fixture: one order per
// customer per day starting 2023-01-01, all at noon, unique IPs.
func sampleTransactions() []Transaction {
	categories := []string{"Electronics", "Clothing", "Home", "Electronics", "Clothing", "Home", "Electronics", "Clothing", "Home", "Electronics"}
	products := []string{"Laptop", "T-shirt", "Coffee Maker", "Smartphone", "Jeans", "Blender", "Headphones", "Sneakers", "Vacuum Cleaner", "Tablet"}
	quantity := []int{1, 2, 1, 1, 2, 1, 1, 2, 1, 1}
	base := []float64{1000, 20, 50, 800, 40, 100, 200, 60, 150, 300}
	total := []float64{1000, 40, 50, 800, 80, 100, 200, 120, 150, 300}
	cost := []float64{700, 6, 27.5, 600, 16, 50, 120, 30, 90, 195}
	profit := []float64{300, 34, 22.5, 200, 64, 50, 80, 90, 60, 105}
	payment := []string{"Credit Card", "PayPal", "Debit Card", "Credit Card", "PayPal", "Debit Card", "Credit Card", "PayPal", "Debit Card", "Credit Card"}
	shipping := []string{"Standard", "Express", "Next Day", "Standard", "Express", "Next Day", "Standard", "Express", "Next Day", "Standard"}

	start := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]Transaction, 10)
	for i := range out {
		out[i] = Transaction{
			OrderID:        fmt.Sprintf("%d", i+1),
			Timestamp:      start.AddDate(0, 0, i),
			CustomerID:     fmt.Sprintf("%d", i+1),
			Category:       categories[i],
			ProductName:    products[i],
			PaymentMethod:  payment[i],
			ShippingMethod: shipping[i],
			Quantity:       quantity[i],
			BasePrice:      base[i],
			TotalPrice:     total[i],
			Cost:           cost[i],
			Profit:         profit[i],
			CouponCode:     NoCoupon,
			IPAddress:      fmt.Sprintf("192.168.0.%d", i+1),
		}
	}
	return out
}

func sampleStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(sampleTransactions())
	require.NoError(t, err)
	return store
}

func mustStore(t *testing.T, records []Transaction) *Store {
	t.Helper()
	store, err := NewStore(records)
	require.NoError(t, err)
	return store
}

// txn builds a minimal valid transaction for targeted tests.
func txn(id, customer string, ts time.Time, total float64, qty int) Transaction {
	return Transaction{
		OrderID:        id,
		Timestamp:      ts,
		CustomerID:     customer,
		Category:       "Home",
		ProductName:    "Blender",
		PaymentMethod:  "PayPal",
		ShippingMethod: "Standard",
		Quantity:       qty,
		BasePrice:      total,
		TotalPrice:     total,
		Cost:           total / 2,
		Profit:         total / 2,
		CouponCode:     NoCoupon,
		IPAddress:      "10.0.0." + id,
	}
}

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func orderIDs(view RecordView) []string {
	ids := make([]string, view.Len())
	for i := range ids {
		ids[i] = view.Dimension(i, FieldOrderID)
	}
	return ids
}

func flaggedIDs(flagged []FlaggedOrder) []string {
	ids := make([]string, len(flagged))
	for i, f := range flagged {
		ids[i] = f.OrderID
	}
	return ids
}

func price(v float64) *float64 { return &v }

func mustFilter(t *testing.T, view RecordView, spec FilterSpec) RecordView {
	t.Helper()
	out, err := ApplyFilters(view, spec)
	require.NoError(t, err)
	return out
}

func mustQuantile(t *testing.T, values []float64, q float64) float64 {
	t.Helper()
	v, ok := Quantile(values, q)
	require.True(t, ok)
	return v
}
