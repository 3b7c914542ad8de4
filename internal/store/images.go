package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AddImage attaches receipt image metadata to a purchase. The image bytes
// themselves live under the dataset's media root at RelativePath.
func (s *Store) AddImage(ctx context.Context, img PurchaseImage) (PurchaseImage, error) {
	if err := validateName("relativePath", img.RelativePath); err != nil {
		return PurchaseImage{}, err
	}
	if err := validateName("mimeType", img.MimeType); err != nil {
		return PurchaseImage{}, err
	}
	if img.SizeBytes < 0 {
		return PurchaseImage{}, &ValidationError{Field: "sizeBytes", Reason: "must not be negative"}
	}
	img.ID = uuid.NewString()
	img.CreatedAt = now()
	err := s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO purchase_images(id, purchase_id, relative_path, original_name, mime_type, size_bytes, width, height, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			img.ID, img.PurchaseID, img.RelativePath, img.OriginalName, img.MimeType,
			img.SizeBytes, nullInt(img.Width), nullInt(img.Height), img.CreatedAt)
		return err
	})
	if err != nil {
		return PurchaseImage{}, fmt.Errorf("add image: %w", err)
	}
	return img, nil
}

// DeleteImage removes image metadata; extraction rows cascade.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM purchase_images WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return affectedOrNotFound(res, "image", id)
	})
}

// GetImage loads one image row.
func (s *Store) GetImage(ctx context.Context, id string) (PurchaseImage, error) {
	db, err := s.db()
	if err != nil {
		return PurchaseImage{}, err
	}
	row := db.QueryRowContext(ctx, `
	SELECT id, purchase_id, relative_path, original_name, mime_type, size_bytes, width, height, created_at
	FROM purchase_images WHERE id = ?`, id)
	img, err := scanImage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return PurchaseImage{}, fmt.Errorf("image %s: %w", id, ErrNotFound)
		}
		return PurchaseImage{}, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// ListImages returns a purchase's images in creation order.
func (s *Store) ListImages(ctx context.Context, purchaseID string) ([]PurchaseImage, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT id, purchase_id, relative_path, original_name, mime_type, size_bytes, width, height, created_at
	FROM purchase_images WHERE purchase_id = ? ORDER BY created_at, id`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	var out []PurchaseImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func scanImage(row scanner) (PurchaseImage, error) {
	var img PurchaseImage
	var width, height sql.NullInt64
	if err := row.Scan(&img.ID, &img.PurchaseID, &img.RelativePath, &img.OriginalName,
		&img.MimeType, &img.SizeBytes, &width, &height, &img.CreatedAt); err != nil {
		return PurchaseImage{}, err
	}
	img.Width = intPtr(width)
	img.Height = intPtr(height)
	return img, nil
}
