// Package backup moves whole datasets through a self-describing,
// checksum-verified zip archive, plus a purchases-only CSV export. Export is
// read-only against its source; import always lands in a brand-new dataset,
// so the previously active dataset is never at risk.
package backup

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/ledgerdesk/ledgerdesk/internal/dataset"
)

// Archive entry names.
const (
	ManifestName  = "manifest.json"
	ChecksumsName = "checksums.json"
	mediaPrefix   = "media/"
)

// ErrArchiveInvalid marks a rejected archive (missing manifest, unsupported
// version, digest mismatch, unsafe path).
var ErrArchiveInvalid = errors.New("archive invalid")

// Manifest is the self-description written into every archive.
type Manifest struct {
	SchemaVersion int    `json:"schemaVersion"`
	AppVersion    string `json:"appVersion"`
	CreatedAt     string `json:"createdAt"`
	DatasetID     string `json:"datasetId"`
}

// knownTables lists every exported table in foreign-key-safe insert order.
var knownTables = []string{
	"categories",
	"tags",
	"purchases",
	"purchase_images",
	"purchase_tags",
	"monthly_budgets",
	"ocr_extractions",
	"app_settings",
}

// Engine produces and consumes archives against a dataset directory.
type Engine struct {
	Dir        *dataset.Directory
	AppVersion string
}

// safeEntryPath reports whether a zip entry name stays inside the archive
// root once normalized.
func safeEntryPath(name string) bool {
	if name == "" {
		return false
	}
	cleaned := path.Clean(name)
	if cleaned != name && cleaned+"/" != name {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(cleaned))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrArchiveInvalid}, args...)...)
}
