package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeWholeStore(t *testing.T) {
	store := sampleStore(t)
	s := Summarize(store, store)

	assert.Equal(t, 2840.0, s.Revenue)
	assert.Equal(t, 1005.5, s.Profit)
	assert.Equal(t, 10, s.Orders)
	assert.InDelta(t, 284.0, s.AvgOrderValue, 1e-9)
	assert.Equal(t, 1.0, s.RevenueShare)
	assert.Equal(t, 1.0, s.ProfitShare)
	assert.Equal(t, 1.0, s.OrderShare)
}

func TestSummarizeFilteredShares(t *testing.T) {
	store := sampleStore(t)
	filtered, err := ApplyFilters(store, FilterSpec{Category: "Electronics"})
	require.NoError(t, err)

	s := Summarize(filtered, store)
	assert.Equal(t, 2300.0, s.Revenue)
	assert.Equal(t, 685.0, s.Profit)
	assert.Equal(t, 4, s.Orders)
	assert.InDelta(t, 2300.0/2840.0, s.RevenueShare, 1e-9)
	assert.InDelta(t, 0.4, s.OrderShare, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	store := sampleStore(t)
	empty, err := ApplyFilters(store, FilterSpec{Category: "Garden"})
	require.NoError(t, err)

	assert.Equal(t, Summary{}, Summarize(empty, store))

	none := mustStore(t, nil)
	assert.Equal(t, Summary{}, Summarize(none, none))
}
