// Package export serializes view results as downloadable CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"salud-dashboard/internal/models"
)

// CategoryDetailFilename names the category-detail export after its
// generation date, matching the dashboard's historical convention.
func CategoryDetailFilename(t time.Time) string {
	return fmt.Sprintf("especialidades_%s.csv", t.Format("20060102"))
}

// OrdersFilename names the filtered-records export with a full timestamp.
func OrdersFilename(t time.Time) string {
	return fmt.Sprintf("datos_filtrados_%s.csv", t.Format("20060102_150405"))
}

// WriteCategoryDetail writes the category-detail table as CSV.
func WriteCategoryDetail(w io.Writer, rows []models.CategoryDetailRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"category", "orders", "suppliers", "total_amount", "avg_amount", "share_pct"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Category,
			strconv.Itoa(r.Orders),
			strconv.Itoa(r.Suppliers),
			formatAmount(r.TotalAmount),
			formatAmount(r.AvgAmount),
			strconv.FormatFloat(r.Share, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteOrders writes the record listing as CSV. Unparsed dates and amounts
// serialize as empty fields.
func WriteOrders(w io.Writer, orders []models.Order) error {
	cw := csv.NewWriter(w)

	header := []string{
		"order_code", "sent_date", "supplier", "supplier_tax_id",
		"supplier_region", "purchase_region", "category", "commodity", "amount_clp",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, o := range orders {
		var date, amount string
		if o.SentDate != nil {
			date = o.SentDate.Format("2006-01-02")
		}
		if o.Amount != nil {
			amount = formatAmount(*o.Amount)
		}

		record := []string{
			o.Code, date, o.Supplier, o.SupplierTaxID,
			o.SupplierRegion, o.PurchaseRegion, o.Category, o.Commodity, amount,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
