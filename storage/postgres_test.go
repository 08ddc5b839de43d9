package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/schema"
)

func sampleRecords() []engine.Transaction {
	return []engine.Transaction{
		{
			OrderID: "ORD-1", Timestamp: time.Date(2023, 1, 1, 2, 30, 0, 0, time.UTC), CustomerID: "CUST-1",
			Category: "Electronics", ProductName: "Laptop", PaymentMethod: "Credit Card", ShippingMethod: "Standard",
			Quantity: 1, BasePrice: 1000, TotalPrice: 1000, Cost: 700, Profit: 300, CouponCode: "SAVE10", IPAddress: "10.0.0.1",
		},
		{
			OrderID: "ORD-2", Timestamp: time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC), CustomerID: "CUST-2",
			Category: "Home", ProductName: "Blender", PaymentMethod: "PayPal", ShippingMethod: "Express",
			Quantity: 2, BasePrice: 45.5, Discount: 5.5, TotalPrice: 85.5, Cost: 40, Profit: 45.5, IPAddress: "10.0.0.2",
		},
	}
}

func TestNewValidatesTableName(t *testing.T) {
	p, err := New(nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, p.table)

	_, err = New(nil, "orders; DROP TABLE users", nil)
	assert.Error(t, err)
	_, err = New(nil, "Orders", nil)
	assert.Error(t, err)
}

func TestCreateTableSQLCoversSchema(t *testing.T) {
	ddl := createTableSQL("sales")
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "sales"`)
	for _, col := range schema.Transactions().Columns() {
		assert.Contains(t, ddl, `"`+col+`" `, col)
		assert.NotEmpty(t, columnTypes[col], col)
	}
}

func TestSelectSQL(t *testing.T) {
	q := selectSQL("sales")
	assert.Contains(t, q, `FROM "sales"`)
	assert.Contains(t, q, `ORDER BY "transaction_timestamp", "order_id"`)
}

func TestRowValuesFollowColumnOrder(t *testing.T) {
	rec := sampleRecords()[1]
	values := rowValues(rec)
	cols := schema.Transactions().Columns()
	require.Len(t, values, len(cols))

	byCol := make(map[string]any, len(cols))
	for i, c := range cols {
		byCol[c] = values[i]
	}
	assert.Equal(t, "ORD-2", byCol[schema.ColOrderID])
	assert.Equal(t, engine.NoCoupon, byCol[schema.ColCouponCode])
	assert.Equal(t, 2, byCol[schema.ColQuantity])
	assert.Equal(t, "85.5", byCol[schema.ColTotalPrice])
	assert.Equal(t, "5.5", byCol[schema.ColDiscount])
}

// TestPostgresRoundTrip runs against a real server when SHOPLENS_TEST_PG_DSN is set.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("SHOPLENS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SHOPLENS_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	p, err := Open(ctx, dsn, "shoplens_test_transactions", nil)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.EnsureSchema(ctx))

	store, err := engine.NewStore(sampleRecords())
	require.NoError(t, err)
	require.NoError(t, p.ReplaceAll(ctx, store))
	require.NoError(t, p.ReplaceAll(ctx, store), "replacement is idempotent")

	loaded, err := p.LoadStore(ctx)
	require.NoError(t, err)
	require.Equal(t, store.Len(), loaded.Len())
	for i := 0; i < store.Len(); i++ {
		want, got := store.Record(i), loaded.Record(i)
		assert.Equal(t, want.OrderID, got.OrderID)
		assert.True(t, want.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, want.TotalPrice, got.TotalPrice)
		assert.Equal(t, want.CouponCode, got.CouponCode)
	}
}
