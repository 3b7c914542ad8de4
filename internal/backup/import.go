package backup

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerdesk/ledgerdesk/internal/dataset"
	"github.com/ledgerdesk/ledgerdesk/internal/storage"
	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

// ImportSummary reports what an import produced.
type ImportSummary struct {
	SnapshotID  string
	RowsByTable map[string]int
	MediaCopied int
	Warnings    []string
}

// Import validates the archive and loads it into a brand-new dataset, which
// becomes active. Tables are replaced one at a time (replace-then-commit per
// table); tables absent from the archive are simply left empty. Media copies
// are best-effort per file and surface as warnings. The previously active
// dataset and its files are untouched and remain selectable.
func (e *Engine) Import(ctx context.Context, archivePath string) (ImportSummary, error) {
	rep, err := e.ValidateFile(archivePath)
	if err != nil {
		return ImportSummary{}, err
	}
	if !rep.Valid {
		return ImportSummary{}, invalidf("%s", strings.Join(rep.Errors, "; "))
	}

	src := filepath.Base(archivePath)
	snap := dataset.Snapshot{
		ID:            uuid.NewString(),
		Label:         "Imported " + time.Now().UTC().Format("2006-01-02 15:04"),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		SourceArchive: &src,
	}
	if err := e.Dir.EnsureDatasetLayout(snap.ID); err != nil {
		return ImportSummary{}, err
	}
	if err := e.Dir.AddSnapshot(snap, true); err != nil {
		return ImportSummary{}, err
	}

	engine, err := storage.Open(e.Dir.GetDatabasePath(snap.ID))
	if err != nil {
		return ImportSummary{}, err
	}
	defer engine.Close()
	if _, err := store.Open(engine); err != nil {
		return ImportSummary{}, err
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("reopen archive: %w", err)
	}
	defer zr.Close()
	entries := map[string]*zip.File{}
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	summary := ImportSummary{SnapshotID: snap.ID, RowsByTable: map[string]int{}}
	for _, table := range knownTables {
		f, ok := entries["json/"+table+".json"]
		if !ok {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return summary, fmt.Errorf("read table %s: %w", table, err)
		}
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return summary, invalidf("parse json/%s.json: %v", table, err)
		}
		n, err := replaceTable(ctx, engine, table, rows)
		if err != nil {
			return summary, fmt.Errorf("load table %s: %w", table, err)
		}
		summary.RowsByTable[table] = n
	}

	mediaRoot := e.Dir.GetMediaDir(snap.ID)
	for name, f := range entries {
		if !strings.HasPrefix(name, mediaPrefix) {
			continue
		}
		if !safeEntryPath(name) {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("skipped unsafe media path %s", name))
			continue
		}
		rel := strings.TrimPrefix(name, mediaPrefix)
		if err := writeMediaFile(f, mediaRoot, rel); err != nil {
			// Row metadata still exists; the image is just unavailable.
			slog.Warn("media copy failed", "entry", name, "error", err)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("media %s: %v", rel, err))
			continue
		}
		summary.MediaCopied++
	}

	if err := engine.Persist(); err != nil {
		return summary, fmt.Errorf("persist imported dataset: %w", err)
	}
	return summary, nil
}

// replaceTable clears the (empty, freshly created) table and bulk-inserts the
// archive's rows. Foreign-key checks are deferred to commit so row order
// within a table cannot matter.
func replaceTable(ctx context.Context, engine *storage.Engine, table string, rows []map[string]any) (int, error) {
	cols, err := tableColumns(ctx, engine, table)
	if err != nil {
		return 0, err
	}
	n := 0
	err = engine.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		stmt := fmt.Sprintf("INSERT INTO %s(%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","))
		for _, row := range rows {
			args := make([]any, len(cols))
			for i, c := range cols {
				args[i] = row[c]
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func tableColumns(ctx context.Context, engine *storage.Engine, table string) ([]string, error) {
	rows, err := engine.Query(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func writeMediaFile(f *zip.File, mediaRoot, rel string) error {
	dest := filepath.Join(mediaRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	data, err := readEntry(f)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}
