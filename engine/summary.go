package engine

// Summarize computes headline metrics of filtered and each metric's share of
// the matching store-wide total. Money totals are summed in decimal.
func Summarize(filtered, store RecordView) Summary {
	s := Summary{
		Revenue: SumMoney(filtered, FieldTotalPrice),
		Profit:  SumMoney(filtered, FieldProfit),
		Orders:  filtered.Len(),
	}
	if s.Orders > 0 {
		s.AvgOrderValue = s.Revenue / float64(s.Orders)
	}

	s.RevenueShare = ratio(s.Revenue, SumMoney(store, FieldTotalPrice))
	s.ProfitShare = ratio(s.Profit, SumMoney(store, FieldProfit))
	s.OrderShare = ratio(float64(s.Orders), float64(store.Len()))
	return s
}

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
