package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AppendExtraction records one OCR attempt. The trail is append-only; rows
// are never updated or deleted individually.
func (s *Store) AppendExtraction(ctx context.Context, e OCRExtraction) (OCRExtraction, error) {
	if e.Status != ExtractionCompleted && e.Status != ExtractionFailed {
		return OCRExtraction{}, &ValidationError{Field: "status", Reason: "must be completed or failed"}
	}
	e.ID = uuid.NewString()
	e.CreatedAt = now()
	err := s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO ocr_extractions(id, purchase_image_id, raw_text, amount_candidate_cents,
			vendor_candidate, date_candidate, amount_confidence, vendor_confidence, date_confidence, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.PurchaseImageID, e.RawText, e.AmountCandidateCents,
			nullStr(e.VendorCandidate), nullStr(e.DateCandidate),
			e.AmountConfidence, e.VendorConfidence, e.DateConfidence, e.Status, e.CreatedAt)
		return err
	})
	if err != nil {
		return OCRExtraction{}, fmt.Errorf("append extraction: %w", err)
	}
	return e, nil
}

// ListExtractions returns the audit trail for one image, oldest first.
func (s *Store) ListExtractions(ctx context.Context, purchaseImageID string) ([]OCRExtraction, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
	SELECT id, purchase_image_id, raw_text, amount_candidate_cents, vendor_candidate, date_candidate,
		amount_confidence, vendor_confidence, date_confidence, status, created_at
	FROM ocr_extractions WHERE purchase_image_id = ? ORDER BY created_at, id`, purchaseImageID)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()
	var out []OCRExtraction
	for rows.Next() {
		var e OCRExtraction
		var amount sql.NullInt64
		var vendor, date sql.NullString
		if err := rows.Scan(&e.ID, &e.PurchaseImageID, &e.RawText, &amount, &vendor, &date,
			&e.AmountConfidence, &e.VendorConfidence, &e.DateConfidence, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.AmountCandidateCents = int64Ptr(amount)
		e.VendorCandidate = strPtr(vendor)
		e.DateCandidate = strPtr(date)
		out = append(out, e)
	}
	return out, rows.Err()
}
