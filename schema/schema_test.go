package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var datasetHeader = []string{
	"order_id", "transaction_date", "customer_id", "customer_name", "email",
	"category", "product_name", "quantity", "base_price", "discount",
	"total_price", "cost", "profit", "coupon_code", "payment_method",
	"shipping_method", "shipping_address", "ip_address",
}

func TestTransactionsSchema(t *testing.T) {
	sch := Transactions()

	assert.Len(t, sch.Columns(), 15)
	assert.Equal(t, ColOrderID, sch.DimensionKeys()[0])
	assert.Contains(t, sch.MeasureKeys(), ColProfit)
	assert.NotContains(t, sch.RequiredKeys(), ColCouponCode)
	assert.NotContains(t, sch.RequiredKeys(), ColDiscount)
	assert.Contains(t, sch.RequiredKeys(), ColTimestamp)
}

func TestColumnCapabilities(t *testing.T) {
	sch := Transactions()

	assert.Equal(t, []string{ColCategory, ColProductName, ColPaymentMethod, ColShippingMethod, ColCouponCode}, sch.GroupableKeys())
	assert.Equal(t, []string{ColCategory, ColProductName, ColPaymentMethod, ColShippingMethod}, sch.FilterableKeys())

	name, ok := sch.DisplayName(ColIPAddress)
	require.True(t, ok)
	assert.Equal(t, "IP Address", name)
	name, ok = sch.DisplayName(ColTotalPrice)
	require.True(t, ok)
	assert.Equal(t, "Total Price", name)
	_, ok = sch.DisplayName("email")
	assert.False(t, ok)

	ts, ok := sch.Dimension(ColTimestamp)
	require.True(t, ok)
	assert.True(t, ts.IsTemporal)

	quantity, ok := sch.Measure(ColQuantity)
	require.True(t, ok)
	assert.True(t, quantity.IsInteger)
	assert.False(t, quantity.IsCurrency)

	profit, ok := sch.Measure(ColProfit)
	require.True(t, ok)
	assert.True(t, profit.IsCurrency)

	_, ok = sch.Measure(ColCategory)
	assert.False(t, ok)
	_, ok = sch.Dimension(ColProfit)
	assert.False(t, ok)
}

func TestResolveDatasetHeader(t *testing.T) {
	index, err := Transactions().Resolve(datasetHeader)
	require.NoError(t, err)

	assert.Equal(t, 0, index[ColOrderID])
	assert.Equal(t, 1, index[ColTimestamp], "transaction_date folds onto the timestamp column")
	assert.Equal(t, 17, index[ColIPAddress])
	assert.False(t, index.Has("email"))
	assert.False(t, index.Has("shipping_address"))
}

func TestResolveNormalisesHeaders(t *testing.T) {
	header := []string{"\ufeffOrder ID", "Transaction Timestamp", "Customer-ID", "Category", "Product Name",
		"Quantity", "Total Price", "Cost", "Profit", "Payment Method", "Shipping Method"}
	index, err := Transactions().Resolve(header)
	require.NoError(t, err)
	assert.Equal(t, 0, index[ColOrderID])
	assert.Equal(t, 2, index[ColCustomerID])
	assert.False(t, index.Has(ColCouponCode))
}

func TestResolvePrefersCanonicalOverAlias(t *testing.T) {
	header := append([]string{"transaction_timestamp"}, datasetHeader...)
	index, err := Transactions().Resolve(header)
	require.NoError(t, err)
	assert.Equal(t, 0, index[ColTimestamp])

	header = append(append([]string{}, datasetHeader...), "transaction_timestamp")
	index, err = Transactions().Resolve(header)
	require.NoError(t, err)
	assert.Equal(t, len(header)-1, index[ColTimestamp])
}

func TestResolveMissingColumns(t *testing.T) {
	_, err := Transactions().Resolve([]string{"order_id", "customer_id", "quantity", "category"})
	require.Error(t, err)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{
		ColCost, ColPaymentMethod, ColProductName, ColProfit,
		ColShippingMethod, ColTotalPrice, ColTimestamp,
	}, missing.Missing)
	assert.Contains(t, err.Error(), "missing required columns: cost")
}

func TestColumnIndexValue(t *testing.T) {
	index := ColumnIndex{ColOrderID: 0, ColCategory: 5}
	row := []string{" ORD-1 ", "x"}
	assert.Equal(t, "ORD-1", index.Value(row, ColOrderID))
	assert.Equal(t, "", index.Value(row, ColCategory))
	assert.Equal(t, "", index.Value(row, ColCost))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "total_price", NormalizeHeader(" Total Price "))
	assert.Equal(t, "ip_address", NormalizeHeader("IP-Address"))
}
