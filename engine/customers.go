package engine

import (
	"sort"
)

// DefaultTopSpenders is the number of customers returned when no limit is given.
const DefaultTopSpenders = 10

// CustomerStats groups a view by customer_id and returns one rollup per
// customer, in first-seen order.
func CustomerStats(view RecordView) []CustomerStat {
	byID := make(map[string]int)
	stats := make([]CustomerStat, 0)
	for i := 0; i < view.Len(); i++ {
		id := view.Dimension(i, FieldCustomerID)
		idx, ok := byID[id]
		if !ok {
			idx = len(stats)
			byID[id] = idx
			stats = append(stats, CustomerStat{CustomerID: id})
		}
		stats[idx].Orders++
		stats[idx].TotalSpend += view.Measure(i, FieldTotalPrice)
		stats[idx].TotalProfit += view.Measure(i, FieldProfit)
	}
	return stats
}

// CustomerInsights computes the customer-level rollup of a view.
// topN <= 0 means DefaultTopSpenders. Ties on spend are broken by
// customer_id ascending. An empty view returns HasData=false and zero values.
func CustomerInsights(view RecordView, topN int) CustomerReport {
	if topN <= 0 {
		topN = DefaultTopSpenders
	}

	stats := CustomerStats(view)
	if len(stats) == 0 {
		return CustomerReport{TopSpenders: []CustomerStat{}}
	}

	report := CustomerReport{
		TotalCustomers: len(stats),
		HasData:        true,
	}

	var spend float64
	for _, s := range stats {
		spend += s.TotalSpend
		if s.Orders > 1 {
			report.RepeatCustomers++
		}
	}
	report.AvgOrderValue = spend / float64(len(stats))

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalSpend != stats[j].TotalSpend {
			return stats[i].TotalSpend > stats[j].TotalSpend
		}
		return stats[i].CustomerID < stats[j].CustomerID
	})
	if len(stats) > topN {
		stats = stats[:topN]
	}
	report.TopSpenders = stats
	return report
}
