package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const purchaseCols = `p.id, p.name, p.amount_cents, p.currency, p.purchase_date, p.vendor, p.notes, p.category_id, p.created_at, p.updated_at`

// PurchasePage is one page of filtered purchases plus the total count for the
// same predicate.
type PurchasePage struct {
	Items []Purchase
	Total int
}

func (s *Store) validatePurchase(p Purchase) error {
	if err := validateName("name", p.Name); err != nil {
		return err
	}
	if err := validateAmount("amountCents", p.AmountCents); err != nil {
		return err
	}
	if err := validateCurrency(p.Currency); err != nil {
		return err
	}
	return validateDate("purchaseDate", p.PurchaseDate)
}

// CreatePurchase validates and inserts a purchase, returning it with its
// generated id and timestamps.
func (s *Store) CreatePurchase(ctx context.Context, p Purchase) (Purchase, error) {
	if err := s.validatePurchase(p); err != nil {
		return Purchase{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	err := s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO purchases(id, name, amount_cents, currency, purchase_date, vendor, notes, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.AmountCents, p.Currency, p.PurchaseDate,
			nullStr(p.Vendor), nullStr(p.Notes), nullStr(p.CategoryID), p.CreatedAt, p.UpdatedAt)
		return err
	})
	if err != nil {
		return Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return p, nil
}

// UpdatePurchase rewrites the mutable fields of an existing purchase.
func (s *Store) UpdatePurchase(ctx context.Context, p Purchase) error {
	if err := s.validatePurchase(p); err != nil {
		return err
	}
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE purchases SET name = ?, amount_cents = ?, currency = ?, purchase_date = ?,
			vendor = ?, notes = ?, category_id = ?, updated_at = ?
		WHERE id = ?`,
			p.Name, p.AmountCents, p.Currency, p.PurchaseDate,
			nullStr(p.Vendor), nullStr(p.Notes), nullStr(p.CategoryID), now(), p.ID)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "purchase", p.ID)
	})
}

// DeletePurchase removes a purchase; its images and tag links cascade.
func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "purchase", id)
	})
}

// GetPurchase loads one purchase with its tags and images.
func (s *Store) GetPurchase(ctx context.Context, id string) (Purchase, error) {
	db, err := s.db()
	if err != nil {
		return Purchase{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+purchaseCols+` FROM purchases p WHERE p.id = ?`, id)
	p, err := scanPurchase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Purchase{}, fmt.Errorf("purchase %s: %w", id, ErrNotFound)
		}
		return Purchase{}, fmt.Errorf("get purchase: %w", err)
	}
	if p.Tags, err = s.fetchTags(ctx, p.ID); err != nil {
		return Purchase{}, err
	}
	if p.Images, err = s.ListImages(ctx, p.ID); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// ListPurchases returns a page matching the filter plus the total count. Both
// queries share the identical WHERE clause so Total and Items stay
// consistent.
func (s *Store) ListPurchases(ctx context.Context, f Filter) (PurchasePage, error) {
	db, err := s.db()
	if err != nil {
		return PurchasePage{}, err
	}
	where, args := CompileFilter(f, s.FTSAvailable())
	cond := ""
	if where != "" {
		cond = " WHERE " + where
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases p`+cond, args...).Scan(&total); err != nil {
		return PurchasePage{}, fmt.Errorf("count purchases: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + purchaseCols + ` FROM purchases p` + cond +
		` ORDER BY p.purchase_date DESC, p.created_at DESC, p.id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(append([]any{}, args...), limit, f.Offset)...)
	if err != nil {
		return PurchasePage{}, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	page := PurchasePage{Total: total}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return PurchasePage{}, err
		}
		page.Items = append(page.Items, p)
	}
	if err := rows.Err(); err != nil {
		return PurchasePage{}, err
	}
	for i := range page.Items {
		if page.Items[i].Tags, err = s.fetchTags(ctx, page.Items[i].ID); err != nil {
			return PurchasePage{}, err
		}
	}
	return page, nil
}

// SetPurchaseTags replaces the purchase's tag link set in one unit.
func (s *Store) SetPurchaseTags(ctx context.Context, purchaseID string, tagIDs []string) error {
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases WHERE id = ?`, purchaseID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("purchase %s: %w", purchaseID, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_tags WHERE purchase_id = ?`, purchaseID); err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO purchase_tags(purchase_id, tag_id) VALUES (?, ?)`, purchaseID, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListVendors returns the distinct non-empty vendors, used by the OCR
// boundary to normalize vendor candidates.
func (s *Store) ListVendors(ctx context.Context) ([]string, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT vendor FROM purchases WHERE vendor IS NOT NULL AND vendor != '' ORDER BY vendor`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) fetchTags(ctx context.Context, purchaseID string) ([]Tag, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT t.id, t.name, t.color_hex, t.created_at
	FROM tags t JOIN purchase_tags pt ON pt.tag_id = t.id
	WHERE pt.purchase_id = ? ORDER BY t.name`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("fetch purchase tags: %w", err)
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.ColorHex, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row scanner) (Purchase, error) {
	var p Purchase
	var vendor, notes, category sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.AmountCents, &p.Currency, &p.PurchaseDate,
		&vendor, &notes, &category, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Purchase{}, err
	}
	p.Vendor = strPtr(vendor)
	p.Notes = strPtr(notes)
	p.CategoryID = strPtr(category)
	return p, nil
}
