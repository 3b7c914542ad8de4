// Package storage wraps an in-memory SQLite image with explicit flush-to-disk
// durability. Mutations are synchronous and in-memory; Persist writes the
// whole image to the engine's path. Callers must treat "mutate, then flush"
// as a unit: if the flush fails after a successful mutation, retry the flush,
// never the mutation.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Engine owns one in-memory database image backed by a single on-disk file.
// It is not safe for concurrent use; the caller serializes access.
type Engine struct {
	db   *sql.DB
	path string
}

// memSeq distinguishes the shared-cache memory databases of engines living
// in the same process (tests open several at once).
var memSeq atomic.Int64

// Open loads the on-disk image at path into memory if it exists, otherwise
// starts from an empty store. The parent directory must already exist.
func Open(path string) (*Engine, error) {
	// A named shared-cache memory db survives pool connection churn; a plain
	// ":memory:" image would vanish if database/sql replaced its connection.
	dsn := fmt.Sprintf("file:ledgerdesk-mem-%d?mode=memory&cache=shared&_foreign_keys=on", memSeq.Add(1))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1) // sqlite is not reentrant-safe; single writer
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	e := &Engine{db: db, path: path}
	if _, err := os.Stat(path); err == nil {
		if err := e.loadFrom(path); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return e, nil
}

// Path returns the on-disk location Persist writes to.
func (e *Engine) Path() string { return e.path }

// DB exposes the in-memory handle for schema application and typed queries.
func (e *Engine) DB() (*sql.DB, error) {
	if e.db == nil {
		return nil, ErrNotOpen
	}
	return e.db, nil
}

// Execute runs a statement with no parameters (DDL, pragmas).
func (e *Engine) Execute(stmt string) error {
	if e.db == nil {
		return ErrNotOpen
	}
	if _, err := e.db.Exec(stmt); err != nil {
		return &QueryError{Stmt: stmt, Err: err}
	}
	return nil
}

// Query runs a read statement.
func (e *Engine) Query(ctx context.Context, stmt string, args ...any) (*sql.Rows, error) {
	if e.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &QueryError{Stmt: stmt, Err: err}
	}
	return rows, nil
}

// Run executes a mutating statement in memory. Durability requires a
// subsequent Persist.
func (e *Engine) Run(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, ErrNotOpen
	}
	res, err := e.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, &QueryError{Stmt: stmt, Err: err}
	}
	return res, nil
}

// WithTx runs fn in a transaction against the in-memory image.
func (e *Engine) WithTx(fn func(tx *sql.Tx) error) error {
	if e.db == nil {
		return ErrNotOpen
	}
	tx, err := e.db.Begin()
	if err != nil {
		return &QueryError{Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &QueryError{Err: err}
	}
	return nil
}

// MutateAndFlush runs fn in a transaction and, on success, persists the
// image. The mutation is never retried; the flush is.
func (e *Engine) MutateAndFlush(fn func(tx *sql.Tx) error) error {
	if err := e.WithTx(fn); err != nil {
		return err
	}
	return e.Persist()
}

// Persist serializes the whole in-memory image and atomically replaces the
// on-disk file. This is the only durability point. The write goes to a temp
// path first so a crash mid-flush never leaves a torn file.
func (e *Engine) Persist() error {
	if e.db == nil {
		return ErrNotOpen
	}
	return retry.Do(
		func() error {
			tmp := e.path + ".tmp"
			if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("clear temp image: %w", err)
			}
			if _, err := e.db.Exec(`VACUUM INTO ?`, tmp); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			if err := os.Rename(tmp, e.path); err != nil {
				return fmt.Errorf("replace image: %w", err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// ExportBinary returns the serialized image bytes without touching the
// on-disk file.
func (e *Engine) ExportBinary() ([]byte, error) {
	if e.db == nil {
		return nil, ErrNotOpen
	}
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("ledgerdesk-export-%d.db", time.Now().UnixNano()))
	defer os.Remove(tmp)
	if _, err := e.db.Exec(`VACUUM INTO ?`, tmp); err != nil {
		return nil, fmt.Errorf("serialize image: %w", err)
	}
	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read serialized image: %w", err)
	}
	return data, nil
}

// ReplaceWithBinary swaps the entire in-memory image for the given serialized
// database. The on-disk file is untouched until the next Persist.
func (e *Engine) ReplaceWithBinary(data []byte) error {
	if e.db == nil {
		return ErrNotOpen
	}
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("ledgerdesk-import-%d.db", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("stage image: %w", err)
	}
	defer os.Remove(tmp)
	return e.loadFrom(tmp)
}

// Close releases the in-memory image. Subsequent operations fail with
// ErrNotOpen. Close does not flush; callers persist first if needed.
func (e *Engine) Close() error {
	if e.db == nil {
		return ErrNotOpen
	}
	err := e.db.Close()
	e.db = nil
	if err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	return nil
}

// loadFrom copies the database file at src over the in-memory image using the
// sqlite online backup API. The backup fully replaces the destination.
func (e *Engine) loadFrom(src string) error {
	srcDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", src))
	if err != nil {
		return fmt.Errorf("open source image: %w", err)
	}
	defer srcDB.Close()
	srcDB.SetMaxOpenConns(1)

	ctx := context.Background()
	dstConn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire dest conn: %w", err)
	}
	defer dstConn.Close()
	srcConn, err := srcDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire source conn: %w", err)
	}
	defer srcConn.Close()

	return dstConn.Raw(func(dst any) error {
		return srcConn.Raw(func(srcRaw any) error {
			d, ok1 := dst.(*sqlite3.SQLiteConn)
			s, ok2 := srcRaw.(*sqlite3.SQLiteConn)
			if !ok1 || !ok2 {
				return fmt.Errorf("%w: unexpected driver connection type", ErrUnavailable)
			}
			bk, err := d.Backup("main", s, "main")
			if err != nil {
				return fmt.Errorf("start backup: %w", err)
			}
			defer bk.Finish()
			for {
				done, err := bk.Step(-1)
				if err != nil {
					return fmt.Errorf("copy image: %w", err)
				}
				if done {
					break
				}
			}
			return nil
		})
	})
}
