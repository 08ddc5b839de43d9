package helpers

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/schema"
)

// ── Test Data ─────────────────────────────────────────────────────────────────

const datasetCSV = `order_id,transaction_date,customer_id,customer_name,email,category,product_name,quantity,base_price,discount,total_price,cost,profit,coupon_code,payment_method,shipping_method,shipping_address,ip_address
ORD-000001,2023-01-01 00:00:00,CUST-00001,Customer 1,c1@example.com,Electronics,Laptop,1,1000,0,1000,700,300,NONE,Credit Card,Standard,"Address 1, Springfield",192.168.0.1
ORD-000002,2023-01-02 03:15:42.123456,CUST-00002,Customer 2,c2@example.com,Clothing,T-shirt,2,20,0,40,6,34,SAVE10,PayPal,Express,Address 2,192.168.0.2
ORD-000003,2023-01-03,CUST-00001,Customer 1,c1@example.com,Home,Coffee Maker,1,50,0,50,27.5,22.5,,Debit Card,Next Day,Address 3,192.168.0.3
`

func TestParseCSVDataset(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(datasetCSV))
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "ORD-000001", first.OrderID)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, "Electronics", first.Category)
	assert.Equal(t, 1000.0, first.TotalPrice)
	assert.Equal(t, "192.168.0.1", first.IPAddress)

	assert.Equal(t, time.Date(2023, 1, 2, 3, 15, 42, 123456000, time.UTC), records[1].Timestamp)
	assert.Equal(t, "SAVE10", records[1].CouponCode)
	assert.Equal(t, 27.5, records[2].Cost)

	store, err := ParseCSVStore(strings.NewReader(datasetCSV))
	require.NoError(t, err)
	assert.Equal(t, engine.NoCoupon, store.Record(2).CouponCode)
}

func TestParseCSVMissingColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("order_id,customer_id\n1,2\n"))
	var missing *schema.MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Missing, schema.ColTimestamp)
}

func TestParseCSVRowErrors(t *testing.T) {
	header := "order_id,transaction_timestamp,customer_id,category,product_name,quantity,total_price,cost,profit,payment_method,shipping_method\n"
	tests := []struct {
		name   string
		row    string
		column string
	}{
		{"bad timestamp", "1,01/02/2023,c,Home,Blender,1,10,5,5,PayPal,Standard", schema.ColTimestamp},
		{"fractional quantity", "1,2023-01-02,c,Home,Blender,1.5,10,5,5,PayPal,Standard", schema.ColQuantity},
		{"bad amount", "1,2023-01-02,c,Home,Blender,1,ten,5,5,PayPal,Standard", schema.ColTotalPrice},
		{"short row", "1,2023-01-02,c,Home,Blender,1,10", schema.ColCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := header + "1,2023-01-01,c,Home,Blender,1,10,5,5,PayPal,Standard\n" + strings.Replace(tt.row, "1,", "2,", 1) + "\n"
			_, err := ParseCSV(strings.NewReader(input))
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, 3, rowErr.Line)
			assert.Equal(t, tt.column, rowErr.Column)
		})
	}
}

func TestParseRowFollowsColumnMetadata(t *testing.T) {
	headers := []string{"order_id", "transaction_timestamp", "customer_id", "category", "product_name",
		"quantity", "base_price", "total_price", "cost", "profit", "payment_method", "shipping_method"}
	row := []string{"1", "2023-01-02 10:00:00", "c", "Home", "Blender", "3", "", "$1,050.50", "500", "550.50", "PayPal", "Standard"}

	cfg := schema.Transactions()
	index, err := cfg.Resolve(headers)
	require.NoError(t, err)

	rec, err := parseRow(cfg, index, row, 2)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, 3, rec.Quantity)
	assert.Equal(t, 0.0, rec.BasePrice)
	assert.Equal(t, 1050.5, rec.TotalPrice)
	assert.Equal(t, "Standard", rec.ShippingMethod)

	// a required measure may not be blank
	strict := schema.Transactions()
	for i := range strict.Measures {
		if strict.Measures[i].Key == schema.ColBasePrice {
			strict.Measures[i].Required = true
		}
	}
	_, err = parseRow(strict, index, row, 2)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, schema.ColBasePrice, rowErr.Column)
	assert.Equal(t, 2, rowErr.Line)

	// integer measures reject fractions
	fractional := append([]string(nil), row...)
	fractional[5] = "1.5"
	_, err = parseRow(cfg, index, fractional, 2)
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, schema.ColQuantity, rowErr.Column)

	// an optional temporal column left blank keeps the zero time
	undated := schema.Transactions()
	for i := range undated.Dimensions {
		if undated.Dimensions[i].IsTemporal {
			undated.Dimensions[i].Required = false
		}
	}
	blank := append([]string(nil), row...)
	blank[1] = ""
	rec, err = parseRow(undated, index, blank, 2)
	require.NoError(t, err)
	assert.True(t, rec.Timestamp.IsZero())

	_, err = parseRow(cfg, index, blank, 2)
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, schema.ColTimestamp, rowErr.Column)
}

func TestParseCSVSkipsBlankLinesAndEmptyInput(t *testing.T) {
	input := "order_id,transaction_timestamp,customer_id,category,product_name,quantity,total_price,cost,profit,payment_method,shipping_method\n" +
		"1,2023-01-01T09:30:00Z,c,Home,Blender,1,\"1,299.00\",5,5,PayPal,Standard\n" +
		",,,,,,,,,,\n"
	records, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1299.0, records[0].TotalPrice)

	_, err = ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	for _, in := range []string{
		"2023-05-06T07:08:09Z",
		"2023-05-06 07:08:09",
		"2023-05-06T07:08:09",
		"2023-05-06 07:08",
	} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, 7, ts.Hour(), in)
		assert.Equal(t, time.May, ts.Month(), in)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("$1,234.56")
	require.NoError(t, err)
	assert.Equal(t, 1234.56, v)

	_, err = ParseAmount("")
	assert.Error(t, err)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	store, err := ParseCSVStore(strings.NewReader(datasetCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, store))
	assert.True(t, strings.HasPrefix(buf.String(), "order_id,transaction_timestamp,customer_id,"))

	again, err := ParseCSVStore(&buf)
	require.NoError(t, err)
	assert.Equal(t, store.Records(), again.Records())
}

func TestCacheSaveAndLoad(t *testing.T) {
	store, err := ParseCSVStore(strings.NewReader(datasetCSV))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "ecommerce_data.csv")
	require.NoError(t, SaveCache(path, store))

	loaded, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, store.Records(), loaded.Records())

	_, err = LoadCache(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary cache files are cleaned up")
}
