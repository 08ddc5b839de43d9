package engine

import (
	"math"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig series from a Report
// ============================================================================
// One chart per dashboard section: profit/revenue/cost over time, top
// products, category distribution, suspicious orders. Only the data is
// produced; drawing is the presentation layer's job.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildCharts returns the chart data for every non-empty report section.
func BuildCharts(r *Report) []ChartConfig {
	if r == nil {
		return nil
	}
	var charts []ChartConfig
	if c := buildTrendChart(r); c != nil {
		charts = append(charts, *c)
	}
	if c := buildRowChart("bar", "Top Products by "+LabelForField(Field(topMetricOf(r))), FieldProductName, r.TopProducts, topMetricOf(r)); c != nil {
		charts = append(charts, *c)
	}
	if c := buildRowChart("pie", "Revenue by Category", FieldCategory, r.CategoryDistribution, MetricRevenue); c != nil {
		charts = append(charts, *c)
	}
	if c := buildSuspiciousChart(r.Flagged); c != nil {
		charts = append(charts, *c)
	}
	return charts
}

// buildTrendChart is the profit / revenue / cost line chart over buckets.
func buildTrendChart(r *Report) *ChartConfig {
	if len(r.Buckets) == 0 {
		return nil
	}
	profit := make([]ChartPoint, 0, len(r.Buckets))
	revenue := make([]ChartPoint, 0, len(r.Buckets))
	cost := make([]ChartPoint, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		profit = append(profit, ChartPoint{Label: b.Label, Value: RoundTo2(b.Profit)})
		revenue = append(revenue, ChartPoint{Label: b.Label, Value: RoundTo2(b.Revenue)})
		cost = append(cost, ChartPoint{Label: b.Label, Value: RoundTo2(b.Cost)})
	}

	series := []ChartSeries{
		{Name: string(FieldProfit), Data: profit},
		{Name: string(FieldTotalPrice), Data: revenue},
		{Name: string(FieldCost), Data: cost},
	}
	colors := assignColors(len(series))
	for i := range series {
		series[i].Color = colors[i]
	}

	return &ChartConfig{
		ChartType:  "line",
		Title:      "Profit/Loss Trends",
		XAxis:      LabelForField(Field(r.Period)),
		YAxis:      "Amount",
		Series:     series,
		Colors:     colors,
		ShowLegend: true,
		ShowGrid:   true,
	}
}

func buildRowChart(chartType, title string, field Field, rows []CategoryRow, metric Metric) *ChartConfig {
	if len(rows) == 0 {
		return nil
	}
	value, err := metricValue(metric)
	if err != nil {
		return nil
	}

	points := make([]ChartPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, ChartPoint{Label: row.Key, Value: RoundTo2(value(row))})
	}

	return &ChartConfig{
		ChartType:  chartType,
		Title:      title,
		XAxis:      LabelForField(field),
		YAxis:      LabelForField(Field(metric)),
		Series:     []ChartSeries{{Name: string(metric), Data: points}},
		Colors:     assignColors(len(points)),
		ShowLegend: chartType == "pie",
		ShowGrid:   chartType != "pie",
	}
}

// buildSuspiciousChart plots flagged orders by time and total_price, one series per category.
func buildSuspiciousChart(flagged []FlaggedOrder) *ChartConfig {
	if len(flagged) == 0 {
		return nil
	}

	byCategory := make(map[string]int)
	var series []ChartSeries
	for _, f := range flagged {
		idx, ok := byCategory[f.Category]
		if !ok {
			idx = len(series)
			byCategory[f.Category] = idx
			series = append(series, ChartSeries{
				Name:  f.Category,
				Color: defaultColors[idx%len(defaultColors)],
			})
		}
		series[idx].Data = append(series[idx].Data, ChartPoint{
			Label: f.Timestamp.Format("2006-01-02 15:04:05"),
			Value: RoundTo2(f.TotalPrice),
		})
	}

	return &ChartConfig{
		ChartType:  "scatter",
		Title:      "Suspicious Transactions Distribution",
		XAxis:      "Transaction Timestamp",
		YAxis:      LabelForField(FieldTotalPrice),
		Series:     series,
		Colors:     assignColors(len(series)),
		ShowLegend: true,
		ShowGrid:   true,
	}
}

func topMetricOf(r *Report) Metric {
	if r.TopMetric == "" {
		return MetricQuantity
	}
	return r.TopMetric
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
