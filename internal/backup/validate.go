package backup

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ledgerdesk/ledgerdesk/internal/schema"
)

// Report is the outcome of archive validation. Errors make the archive
// unusable; warnings reduce the integrity guarantee without rejecting it.
type Report struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Manifest *Manifest
}

// ValidateFile opens and validates the archive at path. A file that is not a
// readable zip yields an invalid report, not an I/O error.
func (e *Engine) ValidateFile(path string) (Report, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Report{Errors: []string{fmt.Sprintf("not a readable archive: %v", err)}}, nil
	}
	defer zr.Close()
	return e.Validate(&zr.Reader), nil
}

// Validate checks entry-path safety, requires and parses the manifest, and
// verifies every digest listed in checksums.json. A missing digest map is a
// warning, not a rejection.
func (e *Engine) Validate(zr *zip.Reader) Report {
	var rep Report
	entries := map[string]*zip.File{}
	for _, f := range zr.File {
		if !safeEntryPath(f.Name) {
			rep.Errors = append(rep.Errors, fmt.Sprintf("unsafe entry path: %s", f.Name))
			continue
		}
		entries[f.Name] = f
	}

	mf, ok := entries[ManifestName]
	if !ok {
		rep.Errors = append(rep.Errors, "manifest.json missing")
		return rep
	}
	mdata, err := readEntry(mf)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("read manifest: %v", err))
		return rep
	}
	var manifest Manifest
	if err := json.Unmarshal(mdata, &manifest); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("parse manifest: %v", err))
		return rep
	}
	rep.Manifest = &manifest
	if manifest.SchemaVersion < 1 || manifest.SchemaVersion > schema.Version {
		rep.Errors = append(rep.Errors, fmt.Sprintf("unsupported schema version %d", manifest.SchemaVersion))
	}

	cf, ok := entries[ChecksumsName]
	if !ok {
		rep.Warnings = append(rep.Warnings, "checksums.json missing; integrity not verifiable")
	} else {
		cdata, err := readEntry(cf)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("read checksums: %v", err))
		} else {
			var sums map[string]string
			if err := json.Unmarshal(cdata, &sums); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("parse checksums: %v", err))
			} else {
				rep.Errors = append(rep.Errors, verifyDigests(entries, sums)...)
			}
		}
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}

func verifyDigests(entries map[string]*zip.File, sums map[string]string) []string {
	var errs []string
	for name, want := range sums {
		f, ok := entries[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("checksummed entry missing: %s", name))
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			errs = append(errs, fmt.Sprintf("read %s: %v", name, err))
			continue
		}
		sum := sha256.Sum256(data)
		if got := hex.EncodeToString(sum[:]); got != want {
			errs = append(errs, fmt.Sprintf("checksum mismatch for %s", name))
		}
	}
	return errs
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
