// Package ocr defines the boundary to the external text-extraction
// collaborator and the single-worker queue that feeds it. Extraction is a
// black box: given image bytes it returns best-effort field guesses with
// per-field confidence; failures are recorded, never fatal.
package ocr

import "context"

// Result carries one extraction attempt's guesses. Nil candidates mean the
// collaborator produced nothing usable for that field.
type Result struct {
	RawText              string
	AmountCandidateCents *int64
	VendorCandidate      *string
	DateCandidate        *string
	Confidence           FieldConfidence
}

// FieldConfidence scores each guessed field in [0, 1].
type FieldConfidence struct {
	Amount float64
	Vendor float64
	Date   float64
}

// Provider is the external OCR collaborator.
type Provider interface {
	Extract(ctx context.Context, image []byte, mimeType string) (Result, error)
}
