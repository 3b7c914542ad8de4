package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerdesk/ledgerdesk/internal/backup"
	"github.com/ledgerdesk/ledgerdesk/internal/config"
	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export the active dataset to an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()
			eng := &backup.Engine{Dir: s.dir, AppVersion: s.cfg.App.Version}
			if err := eng.ExportToFile(cmd.Context(), s.store, s.snap.ID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", s.snap.Label, args[0])
			return nil
		},
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an archive into a new snapshot and activate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			eng := &backup.Engine{Dir: dir, AppVersion: cfg.App.Version}
			summary, err := eng.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported into snapshot %s\n", summary.SnapshotID)
			tables := make([]string, 0, len(summary.RowsByTable))
			for t := range summary.RowsByTable {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %d rows\n", t, summary.RowsByTable[t])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  media files: %d\n", summary.MediaCopied)
			for _, w := range summary.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an archive without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			eng := &backup.Engine{Dir: dir}
			rep, err := eng.ValidateFile(args[0])
			if err != nil {
				return err
			}
			for _, e := range rep.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", e)
			}
			for _, w := range rep.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			if !rep.Valid {
				return fmt.Errorf("archive %s is invalid", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archive is valid (schema v%d, dataset %s)\n",
				rep.Manifest.SchemaVersion, rep.Manifest.DatasetID)
			return nil
		},
	}
}

func newCSVCommand() *cobra.Command {
	var columns string
	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Export purchases as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			var cols []backup.Column
			if columns != "" {
				for _, c := range strings.Split(columns, ",") {
					cols = append(cols, backup.Column(strings.TrimSpace(c)))
				}
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create csv file: %w", err)
			}
			defer f.Close()
			eng := &backup.Engine{Dir: s.dir, AppVersion: s.cfg.App.Version}
			if err := eng.ExportPurchasesCSV(cmd.Context(), s.store, f, store.Filter{}, cols); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&columns, "columns", "", "comma-separated subset of Date,Vendor,Amount,Category")
	return cmd
}
