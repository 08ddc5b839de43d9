package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// TEXT BUILDER — Human-readable summary lines for a Report
// ============================================================================

// BuildGrowth compares revenue of the first and last bucket.
// Returns nil when there are no buckets.
func BuildGrowth(buckets []BucketRow) *GrowthData {
	if len(buckets) == 0 {
		return nil
	}

	earliest := buckets[0]
	latest := buckets[len(buckets)-1]
	if len(buckets) < 2 {
		return &GrowthData{
			EarliestValue:  earliest.Revenue,
			LatestValue:    earliest.Revenue,
			EarliestPeriod: earliest.Label,
			LatestPeriod:   earliest.Label,
			Direction:      "insufficient data",
		}
	}

	changeAmount := latest.Revenue - earliest.Revenue
	var changePercent float64
	if earliest.Revenue != 0 {
		changePercent = (changeAmount / earliest.Revenue) * 100
	}

	direction := "unchanged"
	if changePercent > 0.5 {
		direction = "increased"
	} else if changePercent < -0.5 {
		direction = "decreased"
	}

	return &GrowthData{
		EarliestValue:  earliest.Revenue,
		LatestValue:    latest.Revenue,
		EarliestPeriod: earliest.Label,
		LatestPeriod:   latest.Label,
		ChangeAmount:   changeAmount,
		ChangePercent:  changePercent,
		Direction:      direction,
	}
}

// BuildText renders a report as short summary lines, amounts prefixed by currency.
func BuildText(r *Report, currency string) []string {
	if r == nil || r.MatchedRecords == 0 {
		return []string{"No records match your filters. Try broadening your search."}
	}

	s := r.Summary
	lines := []string{
		fmt.Sprintf("Total Revenue: %s (%s of all revenue)", FormatCurrency(s.Revenue, currency), FormatPercent(s.RevenueShare)),
		fmt.Sprintf("Total Profit: %s (%s of all profit)", FormatCurrency(s.Profit, currency), FormatPercent(s.ProfitShare)),
		fmt.Sprintf("Total Orders: %s (%s of all orders)", FormatInt(s.Orders), FormatPercent(s.OrderShare)),
		fmt.Sprintf("Average Order Value: %s", FormatCurrency(s.AvgOrderValue, currency)),
	}

	if g := r.Growth; g != nil {
		switch g.Direction {
		case "increased":
			lines = append(lines, fmt.Sprintf("Revenue ↑ %.1f%% from %s to %s", g.ChangePercent, g.EarliestPeriod, g.LatestPeriod))
		case "decreased":
			lines = append(lines, fmt.Sprintf("Revenue ↓ %.1f%% from %s to %s", -g.ChangePercent, g.EarliestPeriod, g.LatestPeriod))
		case "unchanged":
			lines = append(lines, fmt.Sprintf("Revenue → no change from %s to %s", g.EarliestPeriod, g.LatestPeriod))
		}
	}

	if len(r.TopProducts) > 0 {
		top := r.TopProducts[0]
		lines = append(lines, fmt.Sprintf("Top product: %s (%s sold, %s revenue)",
			top.Key, FormatInt(top.Quantity), FormatCurrency(top.Revenue, currency)))
	}

	c := r.Customers
	lines = append(lines, fmt.Sprintf("Customers: %s (%s repeat), average spend %s",
		FormatInt(c.TotalCustomers), FormatInt(c.RepeatCustomers), FormatCurrency(c.AvgOrderValue, currency)))

	if n := len(r.Flagged); n > 0 {
		lines = append(lines, fmt.Sprintf("⚠️ Found %s potentially suspicious orders (%s)", FormatInt(n), signalBreakdown(r.Flagged)))
	} else {
		lines = append(lines, "No suspicious orders.")
	}
	return lines
}

func signalBreakdown(flagged []FlaggedOrder) string {
	counts := make(map[string]int)
	var order []string
	for _, f := range flagged {
		for _, s := range f.Signals {
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
	}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", s, counts[s]))
	}
	return strings.Join(parts, ", ")
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}
