package backup

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

// Column selects one field of the purchases CSV export.
type Column string

// Selectable columns.
const (
	ColDate     Column = "Date"
	ColVendor   Column = "Vendor"
	ColAmount   Column = "Amount"
	ColCategory Column = "Category"
)

// DefaultColumns is the full column set in its canonical order.
var DefaultColumns = []Column{ColDate, ColVendor, ColAmount, ColCategory}

// uncategorized labels purchases without a resolvable category.
const uncategorized = "Uncategorized"

// ExportPurchasesCSV writes the filtered purchases as UTF-8 CSV with a
// byte-order mark and CRLF line endings. Amounts are decimal major units.
func (e *Engine) ExportPurchasesCSV(ctx context.Context, st *store.Store, w io.Writer, f store.Filter, cols []Column) error {
	if len(cols) == 0 {
		cols = DefaultColumns
	}
	for _, c := range cols {
		switch c {
		case ColDate, ColVendor, ColAmount, ColCategory:
		default:
			return fmt.Errorf("unknown csv column %q", c)
		}
	}

	names := map[string]string{}
	cats, err := st.ListCategories(ctx, true)
	if err != nil {
		return err
	}
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	// Export everything matching the filter, not just one page.
	f.Offset = 0
	f.Limit = 1 << 30
	page, err := st.ListPurchases(ctx, f)
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = string(c)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range page.Items {
		rec := make([]string, len(cols))
		for i, c := range cols {
			switch c {
			case ColDate:
				rec[i] = p.PurchaseDate
			case ColVendor:
				if p.Vendor != nil {
					rec[i] = *p.Vendor
				}
			case ColAmount:
				rec[i] = formatMajorUnits(p.AmountCents)
			case ColCategory:
				rec[i] = categoryName(names, p.CategoryID)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func categoryName(names map[string]string, id *string) string {
	if id == nil {
		return uncategorized
	}
	if name, ok := names[*id]; ok && name != "" {
		return name
	}
	return uncategorized
}

// formatMajorUnits renders integer minor units as a decimal amount, e.g.
// 12550 -> "125.50", -75 -> "-0.75".
func formatMajorUnits(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
