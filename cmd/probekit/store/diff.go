package store

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
	pkerrors "github.com/probekit/probekit/internal/errors"
	"github.com/probekit/probekit/internal/printer"
	"github.com/probekit/probekit/internal/state"
	"github.com/probekit/probekit/internal/ui"
)

// NewDiffCmd returns the diff command. It is mounted both under "store"
// and at the top level.
func NewDiffCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show what the last write changed",
		Long: `Compare the descriptor file with the backup taken before the last write.

Every write to descriptors.json first copies it to descriptors.json.bak,
so this shows what the most recent check, decision or install changed:
revisions, content, auto-update and declined revisions. Only the file
backend keeps a backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiff(cmd, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json")
	return cmd
}

func runDiff(cmd *cobra.Command, output string) error {
	cfg, paths, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Backend == config.BackendSQLite {
		return pkerrors.NewValidationError("backend", "diff needs the file backend").
			WithExpected(string(config.BackendFile), string(cfg.Backend))
	}

	st, err := state.NewStore(paths.StoreDir())
	if err != nil {
		return fmt.Errorf("failed to create descriptor store: %w", err)
	}
	current, err := st.Load()
	if err != nil {
		return fmt.Errorf("failed to load descriptors: %w", err)
	}
	backup, err := st.LoadBackup()
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}
	if backup == nil {
		cmd.Println("No backup found. Nothing has been written yet.")
		return nil
	}

	diff := state.DiffDocuments(backup, current)
	if output == "json" {
		data, err := json.MarshalIndent(diff, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal diff: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if diff.HasChanges() {
		ui.NewStyle().Header.Fprintln(cmd.OutOrStdout(), "Descriptor changes (last write):")
		cmd.Println()
	}
	printer.PrintDiff(cmd.OutOrStdout(), diff)
	return nil
}
