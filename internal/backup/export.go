package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerdesk/ledgerdesk/internal/schema"
	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

// Export serializes the dataset's tables and media into one archive on w.
// Each table lands twice (json/ and csv/), every entry gets a SHA-256 digest
// in checksums.json, and the manifest is written last. The source dataset is
// only read.
func (e *Engine) Export(ctx context.Context, st *store.Store, datasetID string, w io.Writer) error {
	zw := zip.NewWriter(w)
	checksums := map[string]string{}

	writeEntry := func(name string, data []byte) error {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write archive entry %s: %w", name, err)
		}
		sum := sha256.Sum256(data)
		checksums[name] = hex.EncodeToString(sum[:])
		return nil
	}

	for _, table := range knownTables {
		cols, rows, err := readTable(ctx, st, table)
		if err != nil {
			return err
		}
		jsonData, err := tableJSON(cols, rows)
		if err != nil {
			return fmt.Errorf("encode %s: %w", table, err)
		}
		if err := writeEntry("json/"+table+".json", jsonData); err != nil {
			return err
		}
		csvData, err := tableCSV(cols, rows)
		if err != nil {
			return fmt.Errorf("encode %s csv: %w", table, err)
		}
		if err := writeEntry("csv/"+table+".csv", csvData); err != nil {
			return err
		}
	}

	mediaRoot := e.Dir.GetMediaDir(datasetID)
	err := filepath.WalkDir(mediaRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(mediaRoot, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read media %s: %w", rel, err)
		}
		return writeEntry(mediaPrefix+filepath.ToSlash(rel), data)
	})
	if err != nil {
		return fmt.Errorf("export media: %w", err)
	}

	sums, err := json.MarshalIndent(checksums, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checksums: %w", err)
	}
	if f, err := zw.Create(ChecksumsName); err != nil {
		return fmt.Errorf("create checksums entry: %w", err)
	} else if _, err := f.Write(sums); err != nil {
		return fmt.Errorf("write checksums entry: %w", err)
	}

	manifest := Manifest{
		SchemaVersion: schema.Version,
		AppVersion:    e.AppVersion,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		DatasetID:     datasetID,
	}
	mdata, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if f, err := zw.Create(ManifestName); err != nil {
		return fmt.Errorf("create manifest entry: %w", err)
	} else if _, err := f.Write(mdata); err != nil {
		return fmt.Errorf("write manifest entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// ExportToFile writes the archive to path, creating parent directories.
func (e *Engine) ExportToFile(ctx context.Context, st *store.Store, datasetID, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()
	if err := e.Export(ctx, st, datasetID, f); err != nil {
		return err
	}
	return f.Close()
}

// readTable loads every row of table as ordered columns plus generic values.
func readTable(ctx context.Context, st *store.Store, table string) ([]string, [][]any, error) {
	rows, err := st.Engine().Query(ctx, `SELECT * FROM `+table)
	if err != nil {
		return nil, nil, fmt.Errorf("read table %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	return cols, out, rows.Err()
}

func tableJSON(cols []string, rows [][]any) ([]byte, error) {
	objs := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			obj[c] = row[i]
		}
		objs = append(objs, obj)
	}
	return json.MarshalIndent(objs, "", "  ")
}

func tableCSV(cols []string, rows [][]any) ([]byte, error) {
	var buf strings.Builder
	cw := csv.NewWriter(&buf)
	cw.UseCRLF = true
	if err := cw.Write(cols); err != nil {
		return nil, err
	}
	for _, row := range rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellString(v)
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
