package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DashboardSummary aggregates spend around an anchor date.
type DashboardSummary struct {
	CurrentMonthCents  int64
	PreviousMonthCents int64
	DeltaPercent       float64
	BudgetCents        int64
	UtilizationPercent float64 // capped at 999 for display
}

// CategoryBreakdownRow is one slice of the category breakdown.
type CategoryBreakdownRow struct {
	CategoryID   *string
	CategoryName string
	TotalCents   int64
	Percent      float64 // relative to the total of the returned set
}

// TrendPoint is one date bucket of the spending trend.
type TrendPoint struct {
	Bucket     string
	TotalCents int64
}

// BudgetVsActualRow compares one category's budget to its spend for a month.
type BudgetVsActualRow struct {
	CategoryID         string
	CategoryName       string
	BudgetCents        int64
	ActualCents        int64
	VarianceCents      int64
	UtilizationPercent float64
}

// Trend buckets.
const (
	BucketDaily  = "daily"
	BucketWeekly = "weekly"
)

// utilizationCap bounds the displayed budget utilization percentage.
const utilizationCap = 999

// GetDashboardSummary computes current- and previous-month spend relative to
// anchor (zero anchor means now), the month-over-month delta, and budget
// utilization against the overall budget setting or, absent one, the sum of
// per-category budgets for the anchor month.
func (s *Store) GetDashboardSummary(ctx context.Context, anchor time.Time) (DashboardSummary, error) {
	if anchor.IsZero() {
		anchor = now()
	}
	curFrom, curTo := monthRange(anchor.Year(), int(anchor.Month()))
	prevAnchor := anchor.AddDate(0, -1, -anchor.Day()+1)
	prevFrom, prevTo := monthRange(prevAnchor.Year(), int(prevAnchor.Month()))

	cur, err := s.sumRange(ctx, curFrom, curTo)
	if err != nil {
		return DashboardSummary{}, err
	}
	prev, err := s.sumRange(ctx, prevFrom, prevTo)
	if err != nil {
		return DashboardSummary{}, err
	}

	out := DashboardSummary{CurrentMonthCents: cur, PreviousMonthCents: prev}

	// Zero-previous convention: both zero is a 0% change, growth from zero
	// reads as 100%. Preserved exactly for compatibility.
	switch {
	case prev == 0 && cur == 0:
		out.DeltaPercent = 0
	case prev == 0:
		out.DeltaPercent = 100
	default:
		out.DeltaPercent = float64(cur-prev) / float64(prev) * 100
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return DashboardSummary{}, err
	}
	budget := settings.OverallMonthlyBudgetCents
	if budget <= 0 {
		db, err := s.db()
		if err != nil {
			return DashboardSummary{}, err
		}
		err = db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(budget_cents), 0) FROM monthly_budgets WHERE year = ? AND month = ?`,
			anchor.Year(), int(anchor.Month())).Scan(&budget)
		if err != nil {
			return DashboardSummary{}, fmt.Errorf("sum monthly budgets: %w", err)
		}
	}
	out.BudgetCents = budget
	if budget > 0 {
		out.UtilizationPercent = float64(cur) / float64(budget) * 100
		if out.UtilizationPercent > utilizationCap {
			out.UtilizationPercent = utilizationCap
		}
	}
	return out, nil
}

// GetCategoryBreakdown aggregates spend per category over [from, to].
func (s *Store) GetCategoryBreakdown(ctx context.Context, from, to string) ([]CategoryBreakdownRow, error) {
	if err := validateDate("from", from); err != nil {
		return nil, err
	}
	if err := validateDate("to", to); err != nil {
		return nil, err
	}
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT p.category_id, COALESCE(c.name, ''), SUM(p.amount_cents) AS total
	FROM purchases p LEFT JOIN categories c ON c.id = p.category_id
	WHERE p.purchase_date >= ? AND p.purchase_date <= ?
	GROUP BY p.category_id
	ORDER BY total DESC, c.name`, from, to)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	var out []CategoryBreakdownRow
	var total int64
	for rows.Next() {
		var r CategoryBreakdownRow
		var catID sql.NullString
		var name string
		if err := rows.Scan(&catID, &name, &r.TotalCents); err != nil {
			return nil, err
		}
		r.CategoryID = strPtr(catID)
		r.CategoryName = name
		if r.CategoryID == nil || r.CategoryName == "" {
			r.CategoryName = "Uncategorized"
		}
		total += r.TotalCents
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if total > 0 {
		for i := range out {
			out[i].Percent = float64(out[i].TotalCents) / float64(total) * 100
		}
	}
	return out, nil
}

// GetSpendingTrends buckets spend by day or ISO week over [from, to].
func (s *Store) GetSpendingTrends(ctx context.Context, from, to, bucket string) ([]TrendPoint, error) {
	if err := validateDate("from", from); err != nil {
		return nil, err
	}
	if err := validateDate("to", to); err != nil {
		return nil, err
	}
	var key string
	switch bucket {
	case BucketDaily:
		key = `p.purchase_date`
	case BucketWeekly:
		key = `strftime('%Y-W%W', p.purchase_date)`
	default:
		return nil, &ValidationError{Field: "bucket", Reason: "must be daily or weekly"}
	}
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
	SELECT %s AS bucket, SUM(p.amount_cents)
	FROM purchases p
	WHERE p.purchase_date >= ? AND p.purchase_date <= ?
	GROUP BY bucket ORDER BY bucket`, key), from, to)
	if err != nil {
		return nil, fmt.Errorf("spending trends: %w", err)
	}
	defer rows.Close()
	var out []TrendPoint
	for rows.Next() {
		var t TrendPoint
		if err := rows.Scan(&t.Bucket, &t.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetBudgetVsActual compares budget and spend per non-archived category for
// one month, omitting categories with neither.
func (s *Store) GetBudgetVsActual(ctx context.Context, year, month int) ([]BudgetVsActualRow, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	from, to := monthRange(year, month)
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT c.id, c.name,
		COALESCE(b.budget_cents, 0),
		COALESCE((SELECT SUM(p.amount_cents) FROM purchases p
			WHERE p.category_id = c.id AND p.purchase_date >= ? AND p.purchase_date < ?), 0)
	FROM categories c
	LEFT JOIN monthly_budgets b ON b.category_id = c.id AND b.year = ? AND b.month = ?
	WHERE c.is_archived = 0
	ORDER BY c.name, c.id`, from, to, year, month)
	if err != nil {
		return nil, fmt.Errorf("budget vs actual: %w", err)
	}
	defer rows.Close()

	var out []BudgetVsActualRow
	for rows.Next() {
		var r BudgetVsActualRow
		if err := rows.Scan(&r.CategoryID, &r.CategoryName, &r.BudgetCents, &r.ActualCents); err != nil {
			return nil, err
		}
		if r.BudgetCents == 0 && r.ActualCents == 0 {
			continue
		}
		r.VarianceCents = r.BudgetCents - r.ActualCents
		if r.BudgetCents > 0 {
			r.UtilizationPercent = float64(r.ActualCents) / float64(r.BudgetCents) * 100
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) sumRange(ctx context.Context, fromISO, toExclISO string) (int64, error) {
	db, err := s.db()
	if err != nil {
		return 0, err
	}
	var total int64
	err = db.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(amount_cents), 0) FROM purchases
	WHERE purchase_date >= ? AND purchase_date < ?`, fromISO, toExclISO).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum purchases: %w", err)
	}
	return total, nil
}

// monthRange returns [first-of-month, first-of-next-month) as ISO dates.
func monthRange(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format("2006-01-02"), start.AddDate(0, 1, 0).Format("2006-01-02")
}
