package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/dataset"
	"github.com/ledgerdesk/ledgerdesk/internal/storage"
	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

type testEnv struct {
	engine *Engine
	dir    *dataset.Directory
	snapID string
	db     *storage.Engine
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := dataset.NewDirectory(t.TempDir())
	snap, err := dir.EnsureActiveSnapshot()
	require.NoError(t, err)
	db, err := storage.Open(dir.GetDatabasePath(snap.ID))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := store.Open(db)
	require.NoError(t, err)
	return &testEnv{
		engine: &Engine{Dir: dir, AppVersion: "test"},
		dir:    dir,
		snapID: snap.ID,
		db:     db,
		store:  st,
	}
}

// seed populates a small but representative dataset: a category tree, a
// tagged purchase with image metadata, a budget, and one media file.
func (env *testEnv) seed(t *testing.T) (store.Purchase, []byte) {
	t.Helper()
	ctx := context.Background()

	cat, err := env.store.CreateCategory(ctx, store.Category{Name: "Food", ColorHex: "#aa5500"})
	require.NoError(t, err)
	tag, err := env.store.CreateTag(ctx, store.Tag{Name: "weekly", ColorHex: "#0055aa"})
	require.NoError(t, err)
	p, err := env.store.CreatePurchase(ctx, store.Purchase{
		Name: "Groceries", AmountCents: 5400, Currency: "USD",
		PurchaseDate: "2026-07-04", CategoryID: &cat.ID,
	})
	require.NoError(t, err)
	require.NoError(t, env.store.SetPurchaseTags(ctx, p.ID, []string{tag.ID}))
	_, err = env.store.UpsertBudget(ctx, cat.ID, 2026, 7, 40000)
	require.NoError(t, err)
	_, err = env.store.AddImage(ctx, store.PurchaseImage{
		PurchaseID: p.ID, RelativePath: "2026/07/receipt.jpg",
		OriginalName: "receipt.jpg", MimeType: "image/jpeg", SizeBytes: 11,
	})
	require.NoError(t, err)

	media := []byte("jpeg-bytes!")
	mediaPath := filepath.Join(env.dir.GetMediaDir(env.snapID), "2026", "07", "receipt.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(mediaPath), 0o755))
	require.NoError(t, os.WriteFile(mediaPath, media, 0o644))
	return p, media
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	seeded, media := env.seed(t)

	archive := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, env.engine.ExportToFile(ctx, env.store, env.snapID, archive))

	rep, err := env.engine.ValidateFile(archive)
	require.NoError(t, err)
	require.True(t, rep.Valid, "errors: %v", rep.Errors)
	require.Empty(t, rep.Warnings)
	require.Equal(t, env.snapID, rep.Manifest.DatasetID)

	sum, err := env.engine.Import(ctx, archive)
	require.NoError(t, err)
	require.NotEqual(t, env.snapID, sum.SnapshotID, "import always lands in a new dataset")
	require.Equal(t, 1, sum.RowsByTable["purchases"])
	require.Equal(t, 1, sum.RowsByTable["categories"])
	require.Equal(t, 1, sum.RowsByTable["purchase_tags"])
	require.Equal(t, 1, sum.MediaCopied)
	require.Empty(t, sum.Warnings)

	// The imported dataset became active.
	snaps, err := env.dir.ListSnapshots()
	require.NoError(t, err)
	for _, s := range snaps {
		require.Equal(t, s.ID == sum.SnapshotID, s.IsActive)
	}

	db, err := storage.Open(env.dir.GetDatabasePath(sum.SnapshotID))
	require.NoError(t, err)
	defer db.Close()
	st, err := store.Open(db)
	require.NoError(t, err)

	got, err := st.GetPurchase(ctx, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, "Groceries", got.Name)
	require.Equal(t, int64(5400), got.AmountCents)
	require.Len(t, got.Tags, 1)
	require.Equal(t, "weekly", got.Tags[0].Name)
	require.Len(t, got.Images, 1)

	copied, err := os.ReadFile(filepath.Join(env.dir.GetMediaDir(sum.SnapshotID), "2026", "07", "receipt.jpg"))
	require.NoError(t, err)
	require.Equal(t, media, copied)
}

func TestImportLeavesSourceDatasetUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	archive := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, env.engine.ExportToFile(ctx, env.store, env.snapID, archive))

	before, err := os.ReadFile(env.dir.GetDatabasePath(env.snapID))
	require.NoError(t, err)

	_, err = env.engine.Import(ctx, archive)
	require.NoError(t, err)

	after, err := os.ReadFile(env.dir.GetDatabasePath(env.snapID))
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestImportRejectsInvalidArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	bad := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))

	_, err := env.engine.Import(ctx, bad)
	require.ErrorIs(t, err, ErrArchiveInvalid)

	// No new snapshot appears for a rejected archive.
	snaps, err := env.dir.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
}
