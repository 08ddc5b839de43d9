package helpers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/schema"
)

// ============================================================================
// CSV HELPER — Parses transaction CSV into engine records
// ============================================================================
// Consumer reads the CSV from wherever it lives (file, request body, cache).
// Columns are resolved through schema.Transactions(); unknown columns are
// skipped. Amounts are parsed as decimals so "19.99" stays 19.99.
// ============================================================================

// TimestampLayout is the layout WriteCSV uses for transaction_timestamp.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// RowError locates a malformed cell. Line is the 1-based line in the input.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseCSV parses a header row plus data rows into transactions.
// Missing required columns yield a *schema.MissingColumnsError; the first
// malformed row yields a *RowError.
func ParseCSV(r io.Reader) ([]engine.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("failed to read CSV headers: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	cfg := schema.Transactions()
	index, err := cfg.Resolve(headers)
	if err != nil {
		return nil, err
	}

	records := make([]engine.Transaction, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &RowError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(cfg, index, row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseCSVStore parses CSV and builds a validated Store from it.
func ParseCSVStore(r io.Reader) (*engine.Store, error) {
	records, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return engine.NewStore(records)
}

// parseRow fills a transaction from row. Temporal dimensions are parsed as
// timestamps, integer measures as whole numbers and other measures as
// amounts; empty optional cells keep their zero value.
func parseRow(cfg schema.Config, index schema.ColumnIndex, row []string, line int) (engine.Transaction, error) {
	cell := func(key string) string { return index.Value(row, key) }
	fail := func(key string, err error) error {
		return &RowError{Line: line, Column: key, Value: cell(key), Err: err}
	}

	var rec engine.Transaction
	text := map[string]*string{
		schema.ColOrderID:        &rec.OrderID,
		schema.ColCustomerID:     &rec.CustomerID,
		schema.ColCategory:       &rec.Category,
		schema.ColProductName:    &rec.ProductName,
		schema.ColPaymentMethod:  &rec.PaymentMethod,
		schema.ColShippingMethod: &rec.ShippingMethod,
		schema.ColCouponCode:     &rec.CouponCode,
		schema.ColIPAddress:      &rec.IPAddress,
	}
	times := map[string]*time.Time{
		schema.ColTimestamp: &rec.Timestamp,
	}
	integers := map[string]*int{
		schema.ColQuantity: &rec.Quantity,
	}
	amounts := map[string]*float64{
		schema.ColBasePrice:  &rec.BasePrice,
		schema.ColDiscount:   &rec.Discount,
		schema.ColTotalPrice: &rec.TotalPrice,
		schema.ColCost:       &rec.Cost,
		schema.ColProfit:     &rec.Profit,
	}

	var err error
	for _, d := range cfg.Dimensions {
		raw := cell(d.Key)
		if !d.IsTemporal {
			if dst, ok := text[d.Key]; ok {
				*dst = raw
			}
			continue
		}
		dst, ok := times[d.Key]
		if !ok || (raw == "" && !d.Required) {
			continue
		}
		if *dst, err = ParseTimestamp(raw); err != nil {
			return rec, fail(d.Key, err)
		}
	}

	for _, m := range cfg.Measures {
		raw := cell(m.Key)
		if raw == "" && !m.Required {
			continue
		}
		if m.IsInteger {
			if dst, ok := integers[m.Key]; ok {
				if *dst, err = parseQuantity(raw); err != nil {
					return rec, fail(m.Key, err)
				}
			}
			continue
		}
		if dst, ok := amounts[m.Key]; ok {
			if *dst, err = ParseAmount(raw); err != nil {
				return rec, fail(m.Key, err)
			}
		}
	}
	return rec, nil
}

// ParseTimestamp accepts ISO-8601 / RFC 3339, "YYYY-MM-DD HH:MM:SS[.ffffff]"
// (space or T separated) and bare dates. Zone-less input is read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp format")
}

// ParseAmount parses a money or measure cell ("1,299.00" and "$5" included).
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return d.InexactFloat64(), nil
}

func parseQuantity(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, errors.New("empty quantity")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not a whole number")
	}
	return int(d.IntPart()), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ============================================================================
// WRITING
// ============================================================================

// WriteCSV writes every record of view as CSV with the canonical header.
func WriteCSV(w io.Writer, view engine.RecordView) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(schema.Transactions().Columns()); err != nil {
		return err
	}
	for i := 0; i < view.Len(); i++ {
		if err := writer.Write(formatRow(view.Record(i))); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// formatRow follows schema.Transactions().Columns() order.
func formatRow(t engine.Transaction) []string {
	return []string{
		t.OrderID,
		t.Timestamp.Format(TimestampLayout),
		t.CustomerID,
		t.Category,
		t.ProductName,
		t.PaymentMethod,
		t.ShippingMethod,
		t.CouponCode,
		t.IPAddress,
		strconv.Itoa(t.Quantity),
		formatAmount(t.BasePrice),
		formatAmount(t.Discount),
		formatAmount(t.TotalPrice),
		formatAmount(t.Cost),
		formatAmount(t.Profit),
	}
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
