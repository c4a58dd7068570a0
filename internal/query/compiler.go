// Package query compiles dashboard filter state into a parameterized SQL
// predicate. Every aggregation executed in one render pass shares a single
// compiled predicate, and user-supplied values only ever travel as bound
// arguments, never as query text.
package query

import (
	"fmt"
	"strings"

	apperrors "salud-dashboard/internal/errors"
	"salud-dashboard/internal/models"
)

// Predicate is a conjunction of WHERE clauses with their bound arguments.
// The zero value matches every row.
type Predicate struct {
	exprs []string
	args  []any
}

// And appends one clause to the conjunction.
func (p Predicate) And(expr string, args ...any) Predicate {
	p.exprs = append(p.exprs[:len(p.exprs):len(p.exprs)], expr)
	p.args = append(p.args[:len(p.args):len(p.args)], args...)
	return p
}

// Clause renders the predicate as a WHERE fragment with a leading space, or
// an empty string when no clause is active.
func (p Predicate) Clause() string {
	if len(p.exprs) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.exprs, " AND ")
}

// Args returns the bound arguments in clause order.
func (p Predicate) Args() []any {
	return p.args
}

// Compile validates the filter state and builds its predicate. Region and
// category values are checked against their enumerated/available domains
// before any SQL is produced; a violation is an InvalidFilter error. Pure:
// identical inputs always yield an identical predicate.
func Compile(f models.FilterState, availableCategories []string) (Predicate, error) {
	if err := validate(f, availableCategories); err != nil {
		return Predicate{}, err
	}

	var p Predicate

	if f.HealthOnly {
		// Fixed literals against the Go-lowered shadow column: SQLite's
		// lower() only folds ASCII and would miss "MÉDICO".
		p = p.And("(instr(commodity_lc, 'salud') > 0 OR instr(commodity_lc, 'médico') > 0)")
	}

	// Date bounds are always active, applied to the parsed date. ISO text
	// compares in date order.
	p = p.And("sent_date >= ?", f.DateFrom.Format("2006-01-02"))
	p = p.And("sent_date <= ?", f.DateTo.Format("2006-01-02"))

	if f.SupplierRegion != "" {
		p = p.And("supplier_region = ?", f.SupplierRegion)
	}

	if f.PurchaseRegion != "" {
		p = p.And("purchase_region = ?", f.PurchaseRegion)
	}

	if f.Category != "" {
		p = p.And("category = ?", f.Category)
	}

	if term := strings.TrimSpace(f.SearchTerm); term != "" {
		// instr does plain substring matching, so SQL and LIKE
		// metacharacters in the term carry no meaning. Supplier name is
		// matched case-insensitively against its Go-lowered shadow column,
		// the tax id as-is.
		p = p.And("(instr(supplier_lc, ?) > 0 OR instr(supplier_tax_id, ?) > 0)",
			strings.ToLower(term), term)
	}

	return p, nil
}

func validate(f models.FilterState, availableCategories []string) error {
	if f.DateFrom.IsZero() || f.DateTo.IsZero() {
		return apperrors.InvalidFilter("date bounds must be set")
	}

	if f.DateTo.Before(f.DateFrom) {
		return apperrors.InvalidFilter(fmt.Sprintf("date range is inverted: %s after %s",
			f.DateFrom.Format("2006-01-02"), f.DateTo.Format("2006-01-02")))
	}

	if f.SupplierRegion != "" && !models.IsRegion(f.SupplierRegion) {
		return apperrors.InvalidFilter(fmt.Sprintf("unknown supplier region %q", f.SupplierRegion))
	}

	if f.PurchaseRegion != "" && !models.IsRegion(f.PurchaseRegion) {
		return apperrors.InvalidFilter(fmt.Sprintf("unknown purchase region %q", f.PurchaseRegion))
	}

	if f.Category != "" && !containsString(availableCategories, f.Category) {
		return apperrors.InvalidFilter(fmt.Sprintf("category %q is not present in the loaded data", f.Category))
	}

	return nil
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
