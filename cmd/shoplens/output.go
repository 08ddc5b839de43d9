package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spektr-org/shoplens/engine"
)

// render writes report in the requested format.
func render(w io.Writer, report *engine.Report, format, currency string) error {
	switch format {
	case "json", "pretty":
		return writeJSON(w, report, format)
	case "text":
		_, err := fmt.Fprintln(w, strings.Join(engine.BuildText(report, currency), "\n"))
		return err
	case "csv":
		return writeTablesCSV(w, engine.BuildTables(report, currency))
	case "series":
		return writeChartsCSV(w, engine.BuildCharts(report))
	}
	return fmt.Errorf("unknown format %q (json, pretty, text, csv, series, records)", format)
}

// ============================================================================
// CSV OUTPUT — report tables as Sheets-ready CSV
// ============================================================================

// writeTablesCSV writes each table as a title row, a header row, the data
// rows and an optional summary row, separated by blank lines.
func writeTablesCSV(w io.Writer, tables []engine.TableData) error {
	cw := csv.NewWriter(w)
	for i, table := range tables {
		if i > 0 {
			cw.Write([]string{})
		}
		cw.Write([]string{table.Title})

		headers := make([]string, len(table.Columns))
		for j, col := range table.Columns {
			headers[j] = col.Label
		}
		cw.Write(headers)
		for _, row := range table.Rows {
			cw.Write(row)
		}

		if table.Summary != nil {
			row := make([]string, len(table.Columns))
			for j, col := range table.Columns {
				row[j] = table.Summary.Values[col.Key]
			}
			if len(row) > 0 && row[0] == "" {
				row[0] = table.Summary.Label
			}
			cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeChartsCSV writes every chart's series. A single series becomes two
// columns; several series share the label column of the first.
func writeChartsCSV(w io.Writer, charts []engine.ChartConfig) error {
	cw := csv.NewWriter(w)
	for i, chart := range charts {
		if len(chart.Series) == 0 {
			continue
		}
		if i > 0 {
			cw.Write([]string{})
		}
		cw.Write([]string{chart.Title})

		xLabel := chart.XAxis
		if xLabel == "" {
			xLabel = "Label"
		}
		headers := []string{xLabel}
		if len(chart.Series) == 1 && chart.YAxis != "" {
			headers = append(headers, chart.YAxis)
		} else {
			for _, s := range chart.Series {
				headers = append(headers, s.Name)
			}
		}
		cw.Write(headers)

		for j, d := range chart.Series[0].Data {
			row := []string{d.Label}
			for _, s := range chart.Series {
				if j < len(s.Data) {
					row = append(row, fmtNum(s.Data[j].Value))
				} else {
					row = append(row, "")
				}
			}
			cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
