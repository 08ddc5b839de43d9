package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a Report
// ============================================================================
// One table per report section, in dashboard order. Values are formatted
// strings; the presentation layer only lays them out.
// ============================================================================

// BuildTables converts a report into render-ready tables.
func BuildTables(r *Report, currency string) []TableData {
	if r == nil {
		return nil
	}
	return []TableData{
		buildSummaryTable(r, currency),
		buildBucketTable(r, currency),
		buildCategoryTable("Top Products", FieldProductName, r.TopProducts, currency),
		buildCategoryTable("Category Distribution", FieldCategory, r.CategoryDistribution, currency),
		buildCategoryTable("Payment Methods", FieldPaymentMethod, r.PaymentBreakdown, currency),
		buildCategoryTable("Shipping Methods", FieldShippingMethod, r.ShippingBreakdown, currency),
		buildCustomerTable(r.Customers, currency),
		buildFlaggedTable(r.Flagged, currency),
	}
}

func buildSummaryTable(r *Report, currency string) TableData {
	s := r.Summary
	return TableData{
		Title: "Summary",
		Columns: []Column{
			{Key: "metric", Label: "Metric", Type: "text", Align: "left"},
			{Key: "value", Label: "Value", Type: "number", Align: "right"},
			{Key: "share", Label: "Share", Type: "number", Align: "right"},
		},
		Rows: [][]string{
			{"Total Revenue", FormatCurrency(s.Revenue, currency), FormatPercent(s.RevenueShare)},
			{"Total Profit", FormatCurrency(s.Profit, currency), FormatPercent(s.ProfitShare)},
			{"Total Orders", FormatInt(s.Orders), FormatPercent(s.OrderShare)},
			{"Average Order Value", FormatCurrency(s.AvgOrderValue, currency), ""},
		},
	}
}

func buildBucketTable(r *Report, currency string) TableData {
	rows := make([][]string, 0, len(r.Buckets))
	var profit, revenue, cost float64
	var orders int
	for _, b := range r.Buckets {
		rows = append(rows, []string{
			b.Label,
			fmt.Sprintf("%d", b.Orders),
			fmt.Sprintf("%.2f", b.Profit),
			fmt.Sprintf("%.2f", b.Revenue),
			fmt.Sprintf("%.2f", b.Cost),
		})
		profit += b.Profit
		revenue += b.Revenue
		cost += b.Cost
		orders += b.Orders
	}

	return TableData{
		Title: "Profit/Loss by " + LabelForField(Field(r.Period)),
		Columns: []Column{
			{Key: "period", Label: LabelForField(Field(r.Period)), Type: "text", Align: "left"},
			{Key: "orders", Label: "Orders", Type: "number", Align: "center"},
			{Key: "profit", Label: "Profit", Type: columnType(FieldProfit), Align: "right"},
			{Key: "total_price", Label: "Revenue", Type: columnType(FieldTotalPrice), Align: "right"},
			{Key: "cost", Label: "Cost", Type: columnType(FieldCost), Align: "right"},
		},
		Rows: rows,
		Summary: &TableSummary{
			Label: "Total",
			Values: map[string]string{
				"orders":      FormatInt(orders),
				"profit":      FormatCurrency(profit, currency),
				"total_price": FormatCurrency(revenue, currency),
				"cost":        FormatCurrency(cost, currency),
			},
		},
	}
}

func buildCategoryTable(title string, field Field, groups []CategoryRow, currency string) TableData {
	rows := make([][]string, 0, len(groups))
	var revenue float64
	var orders int
	for _, g := range groups {
		rows = append(rows, []string{
			g.Key,
			fmt.Sprintf("%d", g.Quantity),
			fmt.Sprintf("%.2f", g.Profit),
			fmt.Sprintf("%.2f", g.Revenue),
			fmt.Sprintf("%d", g.Orders),
		})
		revenue += g.Revenue
		orders += g.Orders
	}

	return TableData{
		Title: title,
		Columns: []Column{
			{Key: string(field), Label: LabelForField(field), Type: columnType(field), Align: "left"},
			{Key: "quantity", Label: "Quantity", Type: columnType(FieldQuantity), Align: "right"},
			{Key: "profit", Label: "Profit", Type: columnType(FieldProfit), Align: "right"},
			{Key: "total_price", Label: "Revenue", Type: columnType(FieldTotalPrice), Align: "right"},
			{Key: "orders", Label: "Orders", Type: "number", Align: "center"},
		},
		Rows: rows,
		Summary: &TableSummary{
			Label: fmt.Sprintf("Total (%d groups)", len(groups)),
			Values: map[string]string{
				"total_price": FormatCurrency(revenue, currency),
				"orders":      FormatInt(orders),
			},
		},
	}
}

func buildCustomerTable(c CustomerReport, currency string) TableData {
	rows := make([][]string, 0, len(c.TopSpenders))
	for _, s := range c.TopSpenders {
		rows = append(rows, []string{
			s.CustomerID,
			fmt.Sprintf("%d", s.Orders),
			fmt.Sprintf("%.2f", s.TotalSpend),
			fmt.Sprintf("%.2f", s.TotalProfit),
		})
	}

	return TableData{
		Title: "Top Spenders",
		Columns: []Column{
			{Key: "customer_id", Label: "Customer", Type: "text", Align: "left"},
			{Key: "order_count", Label: "Orders", Type: "number", Align: "center"},
			{Key: "total_spend", Label: "Total Spend", Type: "currency", Align: "right"},
			{Key: "total_profit", Label: "Total Profit", Type: "currency", Align: "right"},
		},
		Rows: rows,
		Summary: &TableSummary{
			Label: fmt.Sprintf("Average of %s customers (%s repeat)", FormatInt(c.TotalCustomers), FormatInt(c.RepeatCustomers)),
			Values: map[string]string{
				"total_spend": FormatCurrency(c.AvgOrderValue, currency),
			},
		},
	}
}

func buildFlaggedTable(flagged []FlaggedOrder, currency string) TableData {
	rows := make([][]string, 0, len(flagged))
	var total float64
	for _, f := range flagged {
		rows = append(rows, []string{
			f.OrderID,
			f.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2f", f.TotalPrice),
			fmt.Sprintf("%d", f.Quantity),
			f.IPAddress,
			strings.Join(f.Signals, ";"),
		})
		total += f.TotalPrice
	}

	return TableData{
		Title: "Potential Fraud",
		Columns: []Column{
			{Key: "order_id", Label: "Order", Type: "text", Align: "left"},
			{Key: "transaction_timestamp", Label: "Timestamp", Type: "text", Align: "left"},
			{Key: "total_price", Label: "Total Price", Type: columnType(FieldTotalPrice), Align: "right"},
			{Key: "quantity", Label: "Quantity", Type: columnType(FieldQuantity), Align: "right"},
			{Key: "ip_address", Label: "IP Address", Type: "text", Align: "left"},
			{Key: "signals", Label: "Signals", Type: "text", Align: "left"},
		},
		Rows: rows,
		Summary: &TableSummary{
			Label: fmt.Sprintf("Total (%d orders)", len(flagged)),
			Values: map[string]string{
				"total_price": FormatCurrency(total, currency),
			},
		},
	}
}
