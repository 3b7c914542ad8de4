package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateTag inserts a tag; names are globally unique.
func (s *Store) CreateTag(ctx context.Context, t Tag) (Tag, error) {
	if err := validateName("name", t.Name); err != nil {
		return Tag{}, err
	}
	if err := validateColor("colorHex", t.ColorHex); err != nil {
		return Tag{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = now()
	err := s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO tags(id, name, color_hex, created_at) VALUES (?, ?, ?, ?)`,
			t.ID, t.Name, t.ColorHex, t.CreatedAt)
		return err
	})
	if err != nil {
		return Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return t, nil
}

// RenameTag changes a tag's name, keeping the global uniqueness constraint.
func (s *Store) RenameTag(ctx context.Context, id, name string) error {
	if err := validateName("name", name); err != nil {
		return err
	}
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tags SET name = ? WHERE id = ?`, name, id)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "tag", id)
	})
}

// DeleteTag removes a tag; purchase links cascade, purchases stay.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "tag", id)
	})
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, name, color_hex, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.ColorHex, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
