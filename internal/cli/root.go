// Package cli wires the LedgerDesk storage core into a cobra command tree:
// snapshot management, archive export/import/validation, and the purchases
// CSV export.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerdesk/ledgerdesk/internal/config"
	"github.com/ledgerdesk/ledgerdesk/internal/dataset"
	"github.com/ledgerdesk/ledgerdesk/internal/storage"
	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

// NewRootCommand creates the root command for the ledgerdesk CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ledgerdesk",
		Short:         "LedgerDesk - local-first purchase tracking store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newSnapshotCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newImportCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newCSVCommand())

	return cmd
}

// session bundles the open handles for the active dataset. Close releases
// the engine; mutations flush themselves.
type session struct {
	cfg    config.Config
	dir    *dataset.Directory
	snap   dataset.Snapshot
	engine *storage.Engine
	store  *store.Store
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	dir := dataset.NewDirectory(cfg.Storage.DataDir)
	snap, err := dir.EnsureActiveSnapshot()
	if err != nil {
		return nil, err
	}
	engine, err := storage.Open(dir.GetDatabasePath(snap.ID))
	if err != nil {
		return nil, err
	}
	st, err := store.Open(engine)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	return &session{cfg: cfg, dir: dir, snap: snap, engine: engine, store: st}, nil
}

func (s *session) Close() {
	if s.engine != nil {
		_ = s.engine.Close()
	}
}
