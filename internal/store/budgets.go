package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// UpsertBudget writes the budget for (categoryID, year, month), updating the
// amount when a row for that month already exists.
func (s *Store) UpsertBudget(ctx context.Context, categoryID string, year, month int, budgetCents int64) (MonthlyBudget, error) {
	if err := validateMonth(year, month); err != nil {
		return MonthlyBudget{}, err
	}
	if err := validateAmount("budgetCents", budgetCents); err != nil {
		return MonthlyBudget{}, err
	}
	b := MonthlyBudget{
		ID:          uuid.NewString(),
		CategoryID:  categoryID,
		Year:        year,
		Month:       month,
		BudgetCents: budgetCents,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	err := s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO monthly_budgets(id, category_id, year, month, budget_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category_id, year, month) DO UPDATE SET
			budget_cents = excluded.budget_cents,
			updated_at = excluded.updated_at`,
			b.ID, b.CategoryID, b.Year, b.Month, b.BudgetCents, b.CreatedAt, b.UpdatedAt)
		return err
	})
	if err != nil {
		return MonthlyBudget{}, fmt.Errorf("upsert budget: %w", err)
	}
	// On conflict the original row id survives; read the row back.
	return s.getBudget(ctx, categoryID, year, month)
}

// DeleteBudget removes one budget row.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM monthly_budgets WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "budget", id)
	})
}

// ListBudgetsForMonth returns all category budgets for one month.
func (s *Store) ListBudgetsForMonth(ctx context.Context, year, month int) ([]MonthlyBudget, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT id, category_id, year, month, budget_cents, created_at, updated_at
	FROM monthly_budgets WHERE year = ? AND month = ? ORDER BY category_id`, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []MonthlyBudget
	for rows.Next() {
		var b MonthlyBudget
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Year, &b.Month, &b.BudgetCents, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) getBudget(ctx context.Context, categoryID string, year, month int) (MonthlyBudget, error) {
	db, err := s.db()
	if err != nil {
		return MonthlyBudget{}, err
	}
	var b MonthlyBudget
	err = db.QueryRowContext(ctx, `
	SELECT id, category_id, year, month, budget_cents, created_at, updated_at
	FROM monthly_budgets WHERE category_id = ? AND year = ? AND month = ?`,
		categoryID, year, month).
		Scan(&b.ID, &b.CategoryID, &b.Year, &b.Month, &b.BudgetCents, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return MonthlyBudget{}, fmt.Errorf("budget for %s %d-%02d: %w", categoryID, year, month, ErrNotFound)
		}
		return MonthlyBudget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}
