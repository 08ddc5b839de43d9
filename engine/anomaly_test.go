package engine

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"median of four", []float64{4, 1, 3, 2}, 0.5, 2.5},
		{"p95 of one to ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.95, 9.55},
		{"min", []float64{5, 3, 9}, 0, 3},
		{"max", []float64{5, 3, 9}, 1, 9},
		{"single value", []float64{42}, 0.95, 42},
		{"q above one clamps", []float64{1, 2}, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Quantile(tt.values, tt.q)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, ok := Quantile(nil, 0.5)
	assert.False(t, ok)

	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestDetectSampleFlagsTheLaptop(t *testing.T) {
	flagged, err := DetectAnomalies(sampleStore(t), DefaultDetectorConfig())
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "1", flagged[0].OrderID)
	assert.Equal(t, []string{SignalHighValue}, flagged[0].Signals)
}

func TestDetectHighValueAndOffHours(t *testing.T) {
	var records []Transaction
	for i := 1; i <= 18; i++ {
		records = append(records, txn(fmt.Sprintf("n%d", i), "c", at(2023, 1, 1, 12), 50, 1))
	}
	records = append(records,
		txn("late", "c", at(2023, 1, 1, 3), 50, 1),
		txn("big", "c", at(2023, 1, 1, 12), 1000, 1),
	)

	flagged, err := DetectAnomalies(mustStore(t, records), DefaultDetectorConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"big", "late"}, flaggedIDs(flagged))
	assert.Equal(t, []string{SignalHighValue}, flagged[0].Signals)
	assert.Equal(t, []string{SignalOffHours}, flagged[1].Signals)
}

func TestDetectReportsEverySignalOnce(t *testing.T) {
	var records []Transaction
	for i := 1; i <= 19; i++ {
		records = append(records, txn(fmt.Sprintf("n%d", i), "c", at(2023, 1, 1, 12), 50, 1))
	}
	records = append(records, txn("big", "c", at(2023, 1, 1, 2), 1000, 9))

	flagged, err := DetectAnomalies(mustStore(t, records), DefaultDetectorConfig())
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, []string{SignalHighValue, SignalOffHours, SignalHighQuantity}, flagged[0].Signals)
}

func TestOffHoursWindow(t *testing.T) {
	store := mustStore(t, []Transaction{
		txn("h0", "c", at(2023, 1, 1, 0), 10, 1),
		txn("h1", "c", at(2023, 1, 1, 1), 10, 1),
		txn("h4", "c", at(2023, 1, 1, 4), 10, 1),
		txn("h5", "c", at(2023, 1, 1, 5), 10, 1),
		txn("h23", "c", at(2023, 1, 1, 23), 10, 1),
	})

	set := OffHoursSignal(1, 4).Evaluate(store)
	assert.True(t, set.Has("h1"))
	assert.True(t, set.Has("h4"))
	assert.False(t, set.Has("h0"))
	assert.False(t, set.Has("h5"))

	wrapped := OffHoursSignal(22, 1).Evaluate(store)
	assert.True(t, wrapped.Has("h23"))
	assert.True(t, wrapped.Has("h0"))
	assert.True(t, wrapped.Has("h1"))
	assert.False(t, wrapped.Has("h4"))
}

func TestIPFrequencyFlagsEveryOrderFromBusyAddress(t *testing.T) {
	var records []Transaction
	for i := 1; i <= 17; i++ {
		records = append(records, txn(fmt.Sprintf("u%d", i), "c", at(2023, 1, 1, 12), 10, 1))
	}
	for i := 1; i <= 3; i++ {
		r := txn(fmt.Sprintf("s%d", i), "c", at(2023, 1, 1, 12), 10, 1)
		r.IPAddress = "9.9.9.9"
		records = append(records, r)
	}

	flagged, err := DetectAnomalies(mustStore(t, records), DefaultDetectorConfig())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, flaggedIDs(flagged))
	for _, f := range flagged {
		assert.Equal(t, []string{SignalIPFrequency}, f.Signals)
	}
}

func TestIPFrequencyIgnoresOrdersWithoutAddress(t *testing.T) {
	var records []Transaction
	for i := 1; i <= 17; i++ {
		records = append(records, txn(fmt.Sprintf("u%d", i), "c", at(2023, 1, 1, 12), 10, 1))
	}
	for i := 1; i <= 5; i++ {
		r := txn(fmt.Sprintf("b%d", i), "c", at(2023, 1, 1, 12), 10, 1)
		r.IPAddress = ""
		records = append(records, r)
	}
	for i := 1; i <= 3; i++ {
		r := txn(fmt.Sprintf("s%d", i), "c", at(2023, 1, 1, 12), 10, 1)
		r.IPAddress = "9.9.9.9"
		records = append(records, r)
	}

	flagged := IPFrequencySignal(0.95).Evaluate(mustStore(t, records))
	assert.Len(t, flagged, 3)
	for i := 1; i <= 3; i++ {
		assert.True(t, flagged.Has(fmt.Sprintf("s%d", i)))
	}
	for i := 1; i <= 5; i++ {
		assert.False(t, flagged.Has(fmt.Sprintf("b%d", i)))
	}
}

func TestDetectLowerPercentileFlagsSuperset(t *testing.T) {
	store := sampleStore(t)

	strict, err := DetectAnomalies(store, DefaultDetectorConfig())
	require.NoError(t, err)

	loose := DefaultDetectorConfig()
	loose.ValuePercentile = 0.5
	loose.QuantityPercentile = 0.5
	relaxed, err := DetectAnomalies(store, loose)
	require.NoError(t, err)

	assert.Subset(t, flaggedIDs(relaxed), flaggedIDs(strict))
	assert.Greater(t, len(relaxed), len(strict))
}

func TestDetectOutputInvariants(t *testing.T) {
	store := sampleStore(t)
	cfg := DefaultDetectorConfig()
	cfg.ValuePercentile = 0.3
	flagged, err := DetectAnomalies(store, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, flagged)

	seen := map[string]bool{}
	for i, f := range flagged {
		assert.NotEmpty(t, f.Signals)
		assert.False(t, seen[f.OrderID], "duplicate %s", f.OrderID)
		seen[f.OrderID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, flagged[i-1].TotalPrice, f.TotalPrice)
		}
	}
}

func TestDetectEmptyView(t *testing.T) {
	flagged, err := DetectAnomalies(mustStore(t, nil), DefaultDetectorConfig())
	require.NoError(t, err)
	assert.NotNil(t, flagged)
	assert.Empty(t, flagged)
}

func TestDetectorConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*DetectorConfig)
		field string
	}{
		{"percentile above one", func(c *DetectorConfig) { c.ValuePercentile = 1.5 }, "value_percentile"},
		{"negative percentile", func(c *DetectorConfig) { c.IPPercentile = -0.1 }, "ip_percentile"},
		{"nan percentile", func(c *DetectorConfig) { c.QuantityPercentile = math.NaN() }, "quantity_percentile"},
		{"hour out of day", func(c *DetectorConfig) { c.HourTo = 24 }, "hour_to"},
		{"negative hour", func(c *DetectorConfig) { c.HourFrom = -1 }, "hour_from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDetectorConfig()
			tt.tweak(&cfg)
			_, err := NewDetector(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRange))
			var rangeErr *RangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, tt.field, rangeErr.Field)
		})
	}

	assert.NoError(t, DefaultDetectorConfig().Validate())
}

func TestDetectorExtraSignals(t *testing.T) {
	coupon := Signal{
		Name: "coupon_abuse",
		Evaluate: func(view RecordView) OrderSet {
			set := OrderSet{}
			for i := 0; i < view.Len(); i++ {
				if view.Dimension(i, FieldCouponCode) != NoCoupon {
					set.Add(view.Dimension(i, FieldOrderID))
				}
			}
			return set
		},
	}

	d, err := NewDetector(DefaultDetectorConfig(), coupon)
	require.NoError(t, err)
	assert.Equal(t, []string{SignalHighValue, SignalOffHours, SignalHighQuantity, SignalIPFrequency, "coupon_abuse"}, d.SignalNames())

	records := sampleTransactions()
	records[4].CouponCode = "SAVE10"
	flagged := d.Detect(mustStore(t, records))
	assert.Equal(t, []string{"1", "5"}, flaggedIDs(flagged))
	assert.Equal(t, []string{"coupon_abuse"}, flagged[1].Signals)

	_, err = NewDetector(DefaultDetectorConfig(), Signal{Name: "broken"})
	assert.Error(t, err)
}
