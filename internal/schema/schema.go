// Package schema applies the LedgerDesk table layout to an opened storage
// engine. Application is idempotent: core DDL runs through versioned
// migrations, the full-text index is best-effort, and the settings bootstrap
// never overwrites an existing row.
package schema

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Version is the schema version recorded in exported archive manifests.
const Version = 1

const ftsSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS purchases_fts USING fts5(
    name, vendor, notes,
    content='purchases', content_rowid='rowid'
);
CREATE TRIGGER IF NOT EXISTS purchases_fts_ai AFTER INSERT ON purchases BEGIN
    INSERT INTO purchases_fts(rowid, name, vendor, notes)
    VALUES (new.rowid, new.name, new.vendor, new.notes);
END;
CREATE TRIGGER IF NOT EXISTS purchases_fts_ad AFTER DELETE ON purchases BEGIN
    INSERT INTO purchases_fts(purchases_fts, rowid, name, vendor, notes)
    VALUES ('delete', old.rowid, old.name, old.vendor, old.notes);
END;
CREATE TRIGGER IF NOT EXISTS purchases_fts_au AFTER UPDATE ON purchases BEGIN
    INSERT INTO purchases_fts(purchases_fts, rowid, name, vendor, notes)
    VALUES ('delete', old.rowid, old.name, old.vendor, old.notes);
    INSERT INTO purchases_fts(rowid, name, vendor, notes)
    VALUES (new.rowid, new.name, new.vendor, new.notes);
END;
`

// SettingsKey is the app_settings row holding the JSON settings object.
const SettingsKey = "app"

// Manager records what the applied schema supports.
type Manager struct {
	ftsAvailable bool
}

// Apply runs all migrations, attempts the full-text index, and bootstraps the
// default settings row. Safe to re-run on every open.
func Apply(db *sql.DB) (*Manager, error) {
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	m := &Manager{ftsAvailable: true}
	if _, err := db.Exec(ftsSQL); err != nil {
		// Engines built without FTS5 land here; search degrades to
		// substring matching instead of failing initialization.
		slog.Warn("full-text search unavailable, using substring matching", "error", err)
		m.ftsAvailable = false
	}

	if err := ensureDefaultSettings(db); err != nil {
		return nil, fmt.Errorf("bootstrap settings: %w", err)
	}
	return m, nil
}

// FTSAvailable reports whether the purchases full-text index exists.
func (m *Manager) FTSAvailable() bool { return m.ftsAvailable }

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	// The migrate handle is not closed here: Close would close the shared
	// *sql.DB and with it the in-memory image.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func ensureDefaultSettings(db *sql.DB) error {
	defaults := map[string]any{
		"baseCurrency":              "USD",
		"overallMonthlyBudgetCents": int64(0),
		"pageSize":                  50,
		"compressImages":            true,
		"lastFilter":                nil,
	}
	data, err := json.Marshal(defaults)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT OR IGNORE INTO app_settings(key, value) VALUES (?, ?)`, SettingsKey, string(data))
	return err
}
