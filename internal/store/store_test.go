package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	engine, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	st, err := Open(engine)
	require.NoError(t, err)
	return st
}

func mustCategory(t *testing.T, st *Store, name string, parentID *string) Category {
	t.Helper()
	c, err := st.CreateCategory(context.Background(), Category{Name: name, ParentID: parentID, ColorHex: "#336699"})
	require.NoError(t, err)
	return c
}

func mustTag(t *testing.T, st *Store, name string) Tag {
	t.Helper()
	tag, err := st.CreateTag(context.Background(), Tag{Name: name, ColorHex: "#ff8800"})
	require.NoError(t, err)
	return tag
}

func mustPurchase(t *testing.T, st *Store, name, date string, cents int64, categoryID *string) Purchase {
	t.Helper()
	p, err := st.CreatePurchase(context.Background(), Purchase{
		Name:         name,
		AmountCents:  cents,
		Currency:     "USD",
		PurchaseDate: date,
		CategoryID:   categoryID,
	})
	require.NoError(t, err)
	return p
}

func strp(s string) *string { return &s }

func i64p(v int64) *int64 { return &v }
