package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
	"github.com/probekit/probekit/internal/ui"
)

var rejectRevision int64

var rejectCmd = &cobra.Command{
	Use:   "reject ID --revision N",
	Short: "Decline a revision of a descriptor",
	Long: `Remember that revision N of a descriptor was declined. Later checks do
not offer that revision again; a newer revision is offered as usual.`,
	Args: cobra.ExactArgs(1),
	RunE: runReject,
}

var undoRejectCmd = &cobra.Command{
	Use:   "undo-reject ID",
	Short: "Forget a declined revision",
	Long:  "Forget the declined revision of a descriptor so the next check offers it again.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUndoReject,
}

var autoUpdateCmd = &cobra.Command{
	Use:       "auto-update ID on|off",
	Short:     "Turn automatic major updates on or off",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"on", "off"},
	RunE:      runAutoUpdate,
}

func init() {
	rejectCmd.Flags().Int64Var(&rejectRevision, "revision", 0, "Revision to decline")
	_ = rejectCmd.MarkFlagRequired("revision")
}

func runReject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	latest, err := a.store.ListLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to list installed descriptors: %w", err)
	}
	installed, ok := descriptor.FindByID(latest, id)
	if !ok {
		return pkerrors.NewDescriptorNotFoundError(id)
	}
	if rejectRevision <= installed.Revision {
		slog.Warn("declined revision is not newer than the installed one",
			"id", id, "installed", installed.Revision, "revision", rejectRevision)
	}

	resolver, _, err := a.newResolver()
	if err != nil {
		return err
	}
	if err := resolver.Reject(ctx, descriptor.Descriptor{ID: id, Revision: rejectRevision}); err != nil {
		return err
	}

	cmd.Printf("%s Declined %s revision %d\n", ui.NewStyle().SuccessMark, id, rejectRevision)
	return nil
}

func runUndoReject(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resolver, _, err := a.newResolver()
	if err != nil {
		return err
	}
	if err := resolver.UndoReject(cmd.Context(), args[0]); err != nil {
		return err
	}

	cmd.Printf("%s %s will be offered again by the next check\n", ui.NewStyle().SuccessMark, args[0])
	return nil
}

func runAutoUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]
	var enabled bool
	switch args[1] {
	case "on":
		enabled = true
	case "off":
	default:
		return pkerrors.NewValidationError("auto-update", "invalid value").WithExpected("on or off", args[1])
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resolver, _, err := a.newResolver()
	if err != nil {
		return err
	}
	if err := resolver.SetAutoUpdate(cmd.Context(), id, enabled); err != nil {
		return err
	}

	cmd.Printf("%s Auto-update for %s is %s\n", ui.NewStyle().SuccessMark, id, args[1])
	return nil
}
