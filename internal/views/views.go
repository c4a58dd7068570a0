// Package views holds the fixed set of named aggregations behind the
// dashboard. Every function takes the predicate compiled once for the current
// render pass, so no two views in the same pass can disagree on the filtered
// row set. An empty store or a zero-match predicate yields empty results,
// never an error.
package views

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"salud-dashboard/internal/models"
	"salud-dashboard/internal/query"
	"salud-dashboard/internal/store"
)

const (
	topCategoriesLimit = 10
	regionAmountsLimit = 10

	// Record listing bounds, matching the dashboard's row slider.
	ListingMinLimit     = 100
	ListingMaxLimit     = 5000
	ListingDefaultLimit = 1000
)

// KPISummary counts distinct suppliers, total orders and the summed amount.
// Rows with an unparseable amount count as orders but contribute nothing to
// the sum.
func KPISummary(ctx context.Context, s *store.Store, p query.Predicate) (models.KPISummary, error) {
	var (
		kpi models.KPISummary
		sum sql.NullFloat64
	)

	q := `SELECT COUNT(DISTINCT supplier_tax_id), COUNT(*), SUM(amount) FROM orders` + p.Clause()
	if err := s.QueryRowContext(ctx, q, p.Args()...).Scan(&kpi.Suppliers, &kpi.Orders, &sum); err != nil {
		return models.KPISummary{}, fmt.Errorf("kpi summary: %w", err)
	}

	kpi.TotalAmount = sum.Float64
	return kpi, nil
}

// ActiveRegions counts the distinct supplier regions with at least one
// matching order.
func ActiveRegions(ctx context.Context, s *store.Store, p query.Predicate) (int, error) {
	var regions int

	q := `SELECT COUNT(DISTINCT supplier_region) FROM orders` + p.Clause()
	if err := s.QueryRowContext(ctx, q, p.Args()...).Scan(&regions); err != nil {
		return 0, fmt.Errorf("active regions: %w", err)
	}

	return regions, nil
}

// TopCategories lists the ten most contracted categories by order count.
func TopCategories(ctx context.Context, s *store.Store, p query.Predicate) ([]models.CategoryCount, error) {
	p = p.And("category IS NOT NULL")

	q := `SELECT category, COUNT(*) AS orders FROM orders` + p.Clause() +
		` GROUP BY category ORDER BY orders DESC LIMIT ?`
	rows, err := s.QueryContext(ctx, q, append(p.Args(), topCategoriesLimit)...)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	var result []models.CategoryCount
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Orders); err != nil {
			return nil, fmt.Errorf("scan top categories: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// RegionAmounts ranks supplier regions by summed amount, top ten.
func RegionAmounts(ctx context.Context, s *store.Store, p query.Predicate) ([]models.RegionAmount, error) {
	p = p.And("supplier_region IS NOT NULL")

	q := `SELECT supplier_region, COALESCE(SUM(amount), 0) AS total FROM orders` + p.Clause() +
		` GROUP BY supplier_region ORDER BY total DESC LIMIT ?`
	rows, err := s.QueryContext(ctx, q, append(p.Args(), regionAmountsLimit)...)
	if err != nil {
		return nil, fmt.Errorf("region amounts: %w", err)
	}
	defer rows.Close()

	var result []models.RegionAmount
	for rows.Next() {
		var r models.RegionAmount
		if err := rows.Scan(&r.Region, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan region amounts: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// MonthlyTrend rolls orders and distinct suppliers up by month of the parsed
// send date, ascending.
func MonthlyTrend(ctx context.Context, s *store.Store, p query.Predicate) ([]models.MonthlyTrend, error) {
	p = p.And("sent_date IS NOT NULL")

	q := `SELECT strftime('%Y-%m', sent_date) AS month, COUNT(*), COUNT(DISTINCT supplier_tax_id)
		FROM orders` + p.Clause() + ` GROUP BY month ORDER BY month ASC`
	rows, err := s.QueryContext(ctx, q, p.Args()...)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	defer rows.Close()

	var result []models.MonthlyTrend
	for rows.Next() {
		var m models.MonthlyTrend
		if err := rows.Scan(&m.Month, &m.Orders, &m.Suppliers); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SupplierRegionBreakdown lists every supplier region with its distinct
// supplier and order counts, most suppliers first.
func SupplierRegionBreakdown(ctx context.Context, s *store.Store, p query.Predicate) ([]models.SupplierRegionRow, error) {
	p = p.And("supplier_region IS NOT NULL")

	q := `SELECT supplier_region, COUNT(DISTINCT supplier_tax_id) AS suppliers, COUNT(*)
		FROM orders` + p.Clause() + ` GROUP BY supplier_region ORDER BY suppliers DESC`
	rows, err := s.QueryContext(ctx, q, p.Args()...)
	if err != nil {
		return nil, fmt.Errorf("supplier region breakdown: %w", err)
	}
	defer rows.Close()

	var result []models.SupplierRegionRow
	for rows.Next() {
		var r models.SupplierRegionRow
		if err := rows.Scan(&r.Region, &r.Suppliers, &r.Orders); err != nil {
			return nil, fmt.Errorf("scan supplier region breakdown: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PurchaseRegionBreakdown lists every purchasing-unit region with order count
// and summed amount, most orders first.
func PurchaseRegionBreakdown(ctx context.Context, s *store.Store, p query.Predicate) ([]models.PurchaseRegionRow, error) {
	p = p.And("purchase_region IS NOT NULL")

	q := `SELECT purchase_region, COUNT(*) AS orders, COALESCE(SUM(amount), 0)
		FROM orders` + p.Clause() + ` GROUP BY purchase_region ORDER BY orders DESC`
	rows, err := s.QueryContext(ctx, q, p.Args()...)
	if err != nil {
		return nil, fmt.Errorf("purchase region breakdown: %w", err)
	}
	defer rows.Close()

	var result []models.PurchaseRegionRow
	for rows.Next() {
		var r models.PurchaseRegionRow
		if err := rows.Scan(&r.Region, &r.Orders, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan purchase region breakdown: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CategoryDetail aggregates per category: counts, distinct suppliers, sum and
// average amount, and each category's share of the returned order total,
// rounded to one decimal.
func CategoryDetail(ctx context.Context, s *store.Store, p query.Predicate) ([]models.CategoryDetailRow, error) {
	p = p.And("category IS NOT NULL")

	q := `SELECT category, COUNT(*) AS orders, COUNT(DISTINCT supplier_tax_id),
		COALESCE(SUM(amount), 0), COALESCE(AVG(amount), 0)
		FROM orders` + p.Clause() + ` GROUP BY category ORDER BY orders DESC`
	rows, err := s.QueryContext(ctx, q, p.Args()...)
	if err != nil {
		return nil, fmt.Errorf("category detail: %w", err)
	}
	defer rows.Close()

	var (
		result      []models.CategoryDetailRow
		totalOrders int
	)
	for rows.Next() {
		var r models.CategoryDetailRow
		if err := rows.Scan(&r.Category, &r.Orders, &r.Suppliers, &r.TotalAmount, &r.AvgAmount); err != nil {
			return nil, fmt.Errorf("scan category detail: %w", err)
		}
		result = append(result, r)
		totalOrders += r.Orders
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		result[i].Share = share(result[i].Orders, totalOrders)
	}

	return result, nil
}

func share(orders, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(orders)/float64(total)*1000) / 10
}

// Listing returns individual matching orders, newest first, capped by the
// user-chosen limit. ListingTotal under the same predicate equals the KPI
// order count.
func Listing(ctx context.Context, s *store.Store, p query.Predicate, limit int) ([]models.Order, error) {
	limit = ClampListingLimit(limit)

	q := `SELECT order_code, sent_date_raw, sent_date, supplier, supplier_tax_id,
		supplier_region, purchase_region, category, commodity, amount_raw, amount
		FROM orders` + p.Clause() + ` ORDER BY sent_date DESC LIMIT ?`
	rows, err := s.QueryContext(ctx, q, append(p.Args(), limit)...)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	defer rows.Close()

	var result []models.Order
	for rows.Next() {
		var (
			o        models.Order
			sentDate sql.NullString
			supReg   sql.NullString
			purReg   sql.NullString
			category sql.NullString
			commod   sql.NullString
			amount   sql.NullFloat64
		)
		if err := rows.Scan(&o.Code, &o.SentDateRaw, &sentDate, &o.Supplier, &o.SupplierTaxID,
			&supReg, &purReg, &category, &commod, &o.AmountRaw, &amount); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}

		if sentDate.Valid {
			if t, ok := parseISODate(sentDate.String); ok {
				o.SentDate = &t
			}
		}
		o.SupplierRegion = supReg.String
		o.PurchaseRegion = purReg.String
		o.Category = category.String
		o.Commodity = commod.String
		if amount.Valid {
			v := amount.Float64
			o.Amount = &v
		}

		result = append(result, o)
	}
	return result, rows.Err()
}

// ListingTotal counts every row matching the predicate, ignoring the display
// limit.
func ListingTotal(ctx context.Context, s *store.Store, p query.Predicate) (int, error) {
	var total int
	q := `SELECT COUNT(*) FROM orders` + p.Clause()
	if err := s.QueryRowContext(ctx, q, p.Args()...).Scan(&total); err != nil {
		return 0, fmt.Errorf("listing total: %w", err)
	}
	return total, nil
}

func parseISODate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ClampListingLimit applies the slider bounds; zero or negative values fall
// back to the default.
func ClampListingLimit(limit int) int {
	switch {
	case limit <= 0:
		return ListingDefaultLimit
	case limit < ListingMinLimit:
		return ListingMinLimit
	case limit > ListingMaxLimit:
		return ListingMaxLimit
	default:
		return limit
	}
}
