package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/schema"
)

// ============================================================================
// POSTGRES STORE — flat transaction table as a dataset source and sink
// ============================================================================
// The table mirrors schema.Transactions(). Writes replace the whole table
// inside one transaction, matching the engine's whole-store replacement.
// ============================================================================

// DefaultTable is the table used when none is configured.
const DefaultTable = "transactions"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// columnTypes are the SQL types of each canonical column.
var columnTypes = map[string]string{
	schema.ColOrderID:        "TEXT PRIMARY KEY",
	schema.ColTimestamp:      "TIMESTAMP NOT NULL",
	schema.ColCustomerID:     "TEXT NOT NULL",
	schema.ColCategory:       "TEXT NOT NULL",
	schema.ColProductName:    "TEXT NOT NULL",
	schema.ColPaymentMethod:  "TEXT NOT NULL",
	schema.ColShippingMethod: "TEXT NOT NULL",
	schema.ColCouponCode:     "TEXT NOT NULL DEFAULT 'NONE'",
	schema.ColIPAddress:      "TEXT NOT NULL DEFAULT ''",
	schema.ColQuantity:       "INTEGER NOT NULL CHECK (quantity >= 1)",
	schema.ColBasePrice:      "NUMERIC NOT NULL DEFAULT 0",
	schema.ColDiscount:       "NUMERIC NOT NULL DEFAULT 0",
	schema.ColTotalPrice:     "NUMERIC NOT NULL CHECK (total_price >= 0)",
	schema.ColCost:           "NUMERIC NOT NULL",
	schema.ColProfit:         "NUMERIC NOT NULL",
}

// Postgres reads and writes the transaction table.
type Postgres struct {
	db    *sql.DB
	table string
	log   logrus.FieldLogger
}

// Open connects to dsn, configures the pool and pings the server.
func Open(ctx context.Context, dsn, table string, logger logrus.FieldLogger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p, err := New(db, table, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"table": p.table, "max_open_conns": 10}).Info("database connection established")
	return p, nil
}

// New wraps an existing handle. An empty table means DefaultTable.
func New(db *sql.DB, table string, logger logrus.FieldLogger) (*Postgres, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Postgres{db: db, table: table, log: logger.WithField("component", "storage")}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// EnsureSchema creates the table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTableSQL(p.table)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// ReplaceAll truncates the table and bulk-loads every record of view in a
// single transaction. Readers see either the old or the new dataset.
func (p *Postgres) ReplaceAll(ctx context.Context, view engine.RecordView) error {
	started := time.Now()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE "+pq.QuoteIdentifier(p.table)); err != nil {
		return fmt.Errorf("failed to truncate: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(p.table, schema.Transactions().Columns()...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for i := 0; i < view.Len(); i++ {
		if _, err := stmt.ExecContext(ctx, rowValues(view.Record(i))...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"rows":     view.Len(),
		"duration": time.Since(started),
	}).Info("💾 dataset replaced")
	return nil
}

// LoadStore reads the whole table into a validated Store.
func (p *Postgres) LoadStore(ctx context.Context) (*engine.Store, error) {
	rows, err := p.db.QueryContext(ctx, selectSQL(p.table))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	records := make([]engine.Transaction, 0)
	for rows.Next() {
		var t engine.Transaction
		var amounts [5]string
		if err := rows.Scan(
			&t.OrderID, &t.Timestamp, &t.CustomerID, &t.Category, &t.ProductName,
			&t.PaymentMethod, &t.ShippingMethod, &t.CouponCode, &t.IPAddress,
			&t.Quantity, &amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		targets := []*float64{&t.BasePrice, &t.Discount, &t.TotalPrice, &t.Cost, &t.Profit}
		for i, raw := range amounts {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("order %s: invalid numeric %q: %w", t.OrderID, raw, err)
			}
			*targets[i] = v.InexactFloat64()
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	p.log.WithField("rows", len(records)).Debug("dataset loaded")
	return engine.NewStore(records)
}

// ============================================================================
// SQL
// ============================================================================

func createTableSQL(table string) string {
	cols := schema.Transactions().Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(c), columnTypes[c])
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", pq.QuoteIdentifier(table), strings.Join(defs, ",\n\t"))
}

func selectSQL(table string) string {
	cols := schema.Transactions().Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s, %s",
		strings.Join(quoted, ", "), pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(schema.ColTimestamp), pq.QuoteIdentifier(schema.ColOrderID))
}

// rowValues follows schema.Transactions().Columns() order.
func rowValues(t engine.Transaction) []any {
	coupon := t.CouponCode
	if coupon == "" {
		coupon = engine.NoCoupon
	}
	return []any{
		t.OrderID, t.Timestamp, t.CustomerID, t.Category, t.ProductName,
		t.PaymentMethod, t.ShippingMethod, coupon, t.IPAddress,
		t.Quantity,
		decimal.NewFromFloat(t.BasePrice).String(),
		decimal.NewFromFloat(t.Discount).String(),
		decimal.NewFromFloat(t.TotalPrice).String(),
		decimal.NewFromFloat(t.Cost).String(),
		decimal.NewFromFloat(t.Profit).String(),
	}
}
