package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func validateCategory(c Category) error {
	if err := validateName("name", c.Name); err != nil {
		return err
	}
	return validateColor("colorHex", c.ColorHex)
}

// CreateCategory inserts a category. Sibling name collisions surface as a
// storage constraint violation, not a validation error.
func (s *Store) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if err := validateCategory(c); err != nil {
		return Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	err := s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO categories(id, name, parent_id, color_hex, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, nullStr(c.ParentID), c.ColorHex, boolInt(c.IsArchived), c.CreatedAt, c.UpdatedAt)
		return err
	})
	if err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// UpdateCategory rewrites a category's mutable fields.
func (s *Store) UpdateCategory(ctx context.Context, c Category) error {
	if err := validateCategory(c); err != nil {
		return err
	}
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE categories SET name = ?, parent_id = ?, color_hex = ?, is_archived = ?, updated_at = ?
		WHERE id = ?`,
			c.Name, nullStr(c.ParentID), c.ColorHex, boolInt(c.IsArchived), now(), c.ID)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "category", c.ID)
	})
}

// DeleteCategory removes a category. Child categories and purchases keep
// living with their reference set to null; budgets cascade away.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "category", id)
	})
}

// GetCategory loads one category.
func (s *Store) GetCategory(ctx context.Context, id string) (Category, error) {
	db, err := s.db()
	if err != nil {
		return Category{}, err
	}
	row := db.QueryRowContext(ctx, `
	SELECT id, name, parent_id, color_hex, is_archived, created_at, updated_at
	FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns categories ordered by name, optionally including
// archived ones.
func (s *Store) ListCategories(ctx context.Context, includeArchived bool) ([]Category, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	query := `SELECT id, name, parent_id, color_hex, is_archived, created_at, updated_at FROM categories`
	if !includeArchived {
		query += ` WHERE is_archived = 0`
	}
	query += ` ORDER BY name, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCategory(row scanner) (Category, error) {
	var c Category
	var parent sql.NullString
	var archived int
	if err := row.Scan(&c.ID, &c.Name, &parent, &c.ColorHex, &archived, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, err
	}
	c.ParentID = strPtr(parent)
	c.IsArchived = archived != 0
	return c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
