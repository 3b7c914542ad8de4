package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerdesk/ledgerdesk/internal/config"
	"github.com/ledgerdesk/ledgerdesk/internal/dataset"
)

func newSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage dataset snapshots",
	}
	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotCreateCommand())
	cmd.AddCommand(newSnapshotSwitchCommand())
	return cmd
}

func openDirectory() (*dataset.Directory, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return dataset.NewDirectory(cfg.Storage.DataDir), nil
}

func newSnapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			snaps, err := dir.ListSnapshots()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no snapshots")
				return nil
			}
			for _, s := range snaps {
				marker := " "
				if s.IsActive {
					marker = "*"
				}
				source := "-"
				if s.SourceArchive != nil {
					source = *s.SourceArchive
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %-20s  created %s  source %s\n",
					marker, s.ID, s.Label, s.CreatedAt.Format("2006-01-02"), source)
			}
			return nil
		},
	}
}

func newSnapshotCreateCommand() *cobra.Command {
	var activate bool
	cmd := &cobra.Command{
		Use:   "create <label>",
		Short: "Create an empty snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			snap := dataset.Snapshot{
				ID:        uuid.NewString(),
				Label:     args[0],
				CreatedAt: time.Now().UTC().Truncate(time.Second),
			}
			if err := dir.EnsureDatasetLayout(snap.ID); err != nil {
				return err
			}
			if err := dir.AddSnapshot(snap, activate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created snapshot %s\n", snap.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&activate, "activate", false, "make the new snapshot active")
	return cmd
}

func newSnapshotSwitchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Activate a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			if err := dir.ActivateSnapshot(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active snapshot: %s\n", args[0])
			return nil
		},
	}
}
