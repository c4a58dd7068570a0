package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	apperrors "salud-dashboard/internal/errors"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
}

const schema = `
CREATE TABLE orders (
	order_code      TEXT,
	sent_date_raw   TEXT,
	sent_date       TEXT,
	supplier        TEXT,
	supplier_lc     TEXT,
	supplier_tax_id TEXT,
	supplier_region TEXT,
	purchase_region TEXT,
	category        TEXT,
	commodity       TEXT,
	commodity_lc    TEXT,
	amount_raw      TEXT,
	amount          REAL
);
CREATE INDEX idx_orders_sent_date ON orders(sent_date);
CREATE INDEX idx_orders_category ON orders(category);
`

// requiredColumns maps source CSV headers to their role. All of them must be
// present in the header row; extra columns are ignored.
var requiredColumns = []string{
	"codigoOC",
	"FechaEnvioOC",
	"Proveedor",
	"ProveedorRUT",
	"RegionProveedor",
	"RegionUnidadCompra",
	"ONUProducto",
	"RubroN1",
	"MontoTotalOC_CLP",
}

// Store is the immutable in-memory dataset backing every aggregation. Built
// once per cache window, never mutated after Load returns.
type Store struct {
	db          *sql.DB
	categories  []string
	recordCount int64
	skippedRows int64
	loadedAt    time.Time
	logger      *slog.Logger
}

// row holds one parsed CSV record ready for insertion. Nil pointers become
// SQL NULLs: blank categorical values and failed date/amount casts. The _lc
// fields are lowered in Go, since SQLite's lower() only folds ASCII.
type row struct {
	code           string
	sentDateRaw    string
	sentDate       *string
	supplier       string
	supplierLC     string
	supplierTaxID  string
	supplierRegion *string
	purchaseRegion *string
	category       *string
	commodity      *string
	commodityLC    *string
	amountRaw      string
	amount         *float64
}

// Load streams the CSV source into a fresh in-memory store. Individual
// malformed rows never fail the load; a broken header or an unreadable
// source does.
func Load(ctx context.Context, r io.Reader, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, apperrors.DataLoad(err, "open analytical store")
	}

	// A :memory: database exists per connection; the pool must stay at one.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperrors.DataLoad(err, "create orders table")
	}

	s := &Store{db: db, logger: logger}

	start := time.Now()
	if err := s.ingest(ctx, r); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.computeCategories(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.loadedAt = time.Now()

	// A retired store may still be serving an in-flight render pass when the
	// cache swaps it out, so nothing closes it explicitly; the in-memory
	// database is reclaimed once the last reader drops its reference.
	runtime.AddCleanup(s, func(db *sql.DB) { db.Close() }, s.db)

	duration := time.Since(start)
	logger.Info("store load complete",
		"records", s.recordCount,
		"skipped_rows", s.skippedRows,
		"categories", len(s.categories),
		"duration", duration,
	)

	return s, nil
}

func (s *Store) ingest(ctx context.Context, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return apperrors.DataLoad(err, "read source header")
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return apperrors.DataLoad(err, "resolve source columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.DataLoad(err, "begin load transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO orders (
		order_code, sent_date_raw, sent_date, supplier, supplier_lc,
		supplier_tax_id, supplier_region, purchase_region, category,
		commodity, commodity_lc, amount_raw, amount
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.DataLoad(err, "prepare insert")
	}
	defer stmt.Close()

	batch := make([][]string, 0, batchSize)

	for {
		select {
		case <-ctx.Done():
			return apperrors.DataLoad(ctx.Err(), "load cancelled")
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return apperrors.DataLoad(err, "read source rows")
		}

		if len(record) < len(header) {
			s.skippedRows++
			continue
		}

		batch = append(batch, record)

		if len(batch) >= batchSize {
			if err := s.insertBatch(ctx, stmt, cols, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.insertBatch(ctx, stmt, cols, batch); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DataLoad(err, "commit load transaction")
	}

	return nil
}

// insertBatch parses a batch of records across a worker pool, then inserts
// sequentially: SQLite has a single writer, parsing is the parallel part.
func (s *Store) insertBatch(ctx context.Context, stmt *sql.Stmt, cols map[string]int, batch [][]string) error {
	rows := make([]row, len(batch))

	var wg errgroup.Group
	wg.SetLimit(maxWorkers)

	for i, record := range batch {
		wg.Go(func() error {
			rows[i] = parseRecord(record, cols)
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return apperrors.DataLoad(err, "parse batch")
	}

	for i := range rows {
		r := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			r.code, r.sentDateRaw, r.sentDate, r.supplier, r.supplierLC,
			r.supplierTaxID, r.supplierRegion, r.purchaseRegion, r.category,
			r.commodity, r.commodityLC, r.amountRaw, r.amount,
		); err != nil {
			return apperrors.DataLoad(err, "insert row")
		}
		s.recordCount++
	}

	return nil
}

func resolveColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	return cols, nil
}

func parseRecord(record []string, cols map[string]int) row {
	field := func(name string) string {
		return strings.TrimSpace(record[cols[name]])
	}

	r := row{
		code:           field("codigoOC"),
		sentDateRaw:    field("FechaEnvioOC"),
		supplier:       field("Proveedor"),
		supplierTaxID:  field("ProveedorRUT"),
		supplierRegion: nullable(field("RegionProveedor")),
		purchaseRegion: nullable(field("RegionUnidadCompra")),
		category:       nullable(field("ONUProducto")),
		commodity:      nullable(field("RubroN1")),
		amountRaw:      field("MontoTotalOC_CLP"),
	}

	r.supplierLC = strings.ToLower(r.supplier)
	if r.commodity != nil {
		lc := strings.ToLower(*r.commodity)
		r.commodityLC = &lc
	}

	if d, ok := parseDate(r.sentDateRaw); ok {
		r.sentDate = &d
	}
	if f, ok := parseAmount(r.amountRaw); ok {
		r.amount = &f
	}

	return r
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseDate is the null-on-failure date cast: any value not matching a known
// layout becomes NULL, never an error.
func parseDate(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func parseAmount(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (s *Store) computeCategories(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM orders WHERE category IS NOT NULL ORDER BY category`)
	if err != nil {
		return apperrors.DataLoad(err, "compute categories")
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return apperrors.DataLoad(err, "scan category")
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return apperrors.DataLoad(err, "iterate categories")
	}

	s.categories = categories
	return nil
}

// Categories returns the distinct non-null categories present in the loaded
// data, sorted ascending. The slice is shared; callers must not mutate it.
func (s *Store) Categories() []string {
	return s.categories
}

func (s *Store) RecordCount() int64 {
	return s.recordCount
}

func (s *Store) SkippedRows() int64 {
	return s.skippedRows
}

func (s *Store) LoadedAt() time.Time {
	return s.loadedAt
}

func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *Store) Close() error {
	return s.db.Close()
}
