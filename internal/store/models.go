package store

import "time"

// Purchase is the aggregate root: images and tag links are owned by it and
// cascade-delete with it. Category and Tag are referenced, not owned.
type Purchase struct {
	ID           string
	Name         string
	AmountCents  int64
	Currency     string
	PurchaseDate string // 2006-01-02
	Vendor       *string
	Notes        *string
	CategoryID   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Images       []PurchaseImage
	Tags         []Tag
}

// PurchaseImage records one receipt image under the dataset's media root.
type PurchaseImage struct {
	ID           string
	PurchaseID   string
	RelativePath string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Width        *int // nil when the format could not be decoded
	Height       *int
	CreatedAt    time.Time
}

// Category represents a category row. Siblings cannot share a name.
type Category struct {
	ID         string
	Name       string
	ParentID   *string
	ColorHex   string
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Tag represents a tag row. Names are globally unique.
type Tag struct {
	ID        string
	Name      string
	ColorHex  string
	CreatedAt time.Time
}

// MonthlyBudget is unique per (CategoryID, Year, Month); writes upsert.
type MonthlyBudget struct {
	ID          string
	CategoryID  string
	Year        int
	Month       int
	BudgetCents int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OCRExtraction is one row of the append-only extraction audit trail. The
// candidates are best-effort guesses, never authoritative data.
type OCRExtraction struct {
	ID                   string
	PurchaseImageID      string
	RawText              string
	AmountCandidateCents *int64
	VendorCandidate      *string
	DateCandidate        *string
	AmountConfidence     float64
	VendorConfidence     float64
	DateConfidence       float64
	Status               string
	CreatedAt            time.Time
}

// Extraction statuses.
const (
	ExtractionCompleted = "completed"
	ExtractionFailed    = "failed"
)

// Settings is the single logical settings record, stored as one JSON row.
type Settings struct {
	BaseCurrency              string  `json:"baseCurrency"`
	OverallMonthlyBudgetCents int64   `json:"overallMonthlyBudgetCents"`
	PageSize                  int     `json:"pageSize"`
	CompressImages            bool    `json:"compressImages"`
	LastFilter                *Filter `json:"lastFilter"`
}
