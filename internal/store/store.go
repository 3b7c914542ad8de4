// Package store provides the typed domain operations of LedgerDesk: CRUD and
// analytics over purchases, categories, tags, budgets, images and settings,
// layered on one storage engine per active dataset. Every mutation is applied
// in memory and then flushed through the engine; the two steps are a unit.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgerdesk/ledgerdesk/internal/schema"
	"github.com/ledgerdesk/ledgerdesk/internal/storage"
)

// Store wraps exactly one active engine handle. On snapshot switch the whole
// store is rebuilt against the new engine; no operation may be in flight
// against the old handle once the swap begins.
type Store struct {
	engine *storage.Engine
	schema *schema.Manager
}

// Open ensures the schema on the engine's image and returns a store over it.
func Open(engine *storage.Engine) (*Store, error) {
	db, err := engine.DB()
	if err != nil {
		return nil, err
	}
	mgr, err := schema.Apply(db)
	if err != nil {
		return nil, err
	}
	return &Store{engine: engine, schema: mgr}, nil
}

// Engine exposes the wrapped handle for collaborators (backup, CLI).
func (s *Store) Engine() *storage.Engine { return s.engine }

// FTSAvailable reports whether free-text search uses the full-text index.
func (s *Store) FTSAvailable() bool { return s.schema.FTSAvailable() }

func (s *Store) db() (*sql.DB, error) { return s.engine.DB() }

// now returns UTC time truncated to seconds (consistent with SQLite TEXT).
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// affectedOrNotFound maps a zero-row mutation to ErrNotFound.
func affectedOrNotFound(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
