package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
	pklog "github.com/probekit/probekit/internal/log"
	"github.com/probekit/probekit/internal/printer"
	"github.com/probekit/probekit/internal/ui"
	"github.com/probekit/probekit/internal/updates"
)

var (
	checkAcceptAll   bool
	checkInteractive bool
)

var checkCmd = &cobra.Command{
	Use:   "check [ID...]",
	Short: "Check installed descriptors for updates",
	Long: `Fetch the current version of installed descriptors and apply updates.

Minor updates and major updates of descriptors with auto-update enabled are
saved right away. Other major updates are queued for review: accept them
with --accept-all, decide one by one with --interactive, or decline a
revision with 'probekit reject'.

Without arguments every installed descriptor is checked.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkAcceptAll, "accept-all", false, "Accept every update queued for review")
	checkCmd.Flags().BoolVarP(&checkInteractive, "interactive", "i", false, "Review queued updates interactively")
	checkCmd.MarkFlagsMutuallyExclusive("accept-all", "interactive")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	style := ui.NewStyle()

	if checkInteractive {
		if config.Headless() || !isatty.IsTerminal(os.Stdout.Fd()) {
			return pkerrors.NewValidationError("interactive", "interactive review needs a terminal").
				WithExpected("a terminal session", "headless environment")
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resolver, logs, err := a.newResolver()
	if err != nil {
		return err
	}

	latest, err := a.store.ListLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to list installed descriptors: %w", err)
	}
	targets, err := selectTargets(latest, args)
	if err != nil {
		return err
	}

	progress := ui.NewCheckProgress(cmd.OutOrStdout(), countFetchable(targets))
	resolver.SetEventHandler(progress.HandleEvent)
	report := resolver.Resolve(ctx, targets)
	progress.Wait()

	ui.PrintCheckSummary(cmd.OutOrStdout(), report)
	if err := logs.Cleanup(pklog.DefaultKeepSessions); err != nil {
		slog.Warn("failed to clean up old fetch logs", "error", err)
	}
	if report.Failed > 0 {
		cmd.Printf("\nRun 'probekit logs' to see why %d descriptor(s) failed.\n", report.Failed)
	}
	if report.Canceled {
		return ctx.Err()
	}

	snap := resolver.State().Snapshot()
	if len(snap.AutoUpdated) > 0 {
		cmd.Println()
		style.Header.Fprintln(cmd.OutOrStdout(), "Updated automatically:")
		printer.PrintUpdates(cmd.OutOrStdout(), snap.AutoUpdated, targets)
		resolver.ClearAutoUpdated()
	}

	queued := snap.AvailableUpdates
	if len(queued) == 0 {
		return nil
	}

	switch {
	case checkAcceptAll:
		if err := resolver.AcceptAll(ctx); err != nil {
			return err
		}
		cmd.Printf("\n%s Accepted %d update(s)\n", style.SuccessMark, len(queued))
	case checkInteractive:
		return reviewInteractive(ctx, cmd, resolver, queued, targets)
	default:
		cmd.Println()
		cmd.Println(ui.RenderReviewNotice(len(queued)))
		printer.PrintUpdates(cmd.OutOrStdout(), queued, targets)
	}
	resolver.DismissReviewNotice()
	return nil
}

// selectTargets picks the descriptors named by ids from latest. No ids
// selects everything.
func selectTargets(latest []descriptor.Descriptor, ids []string) ([]descriptor.Descriptor, error) {
	if len(ids) == 0 {
		return latest, nil
	}
	targets := make([]descriptor.Descriptor, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		d, ok := descriptor.FindByID(latest, id)
		if !ok {
			return nil, pkerrors.NewDescriptorNotFoundError(id)
		}
		targets = append(targets, d)
	}
	return targets, nil
}

func countFetchable(ds []descriptor.Descriptor) int {
	n := 0
	for _, d := range ds {
		if !d.Builtin {
			n++
		}
	}
	return n
}

// reviewInteractive runs the review TUI. Log records are routed into the
// program while it owns the terminal.
func reviewInteractive(ctx context.Context, cmd *cobra.Command, resolver *updates.Resolver, queued, installed []descriptor.Descriptor) error {
	model := ui.NewReviewModel(ctx, resolver, queued, installed)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))

	prev := slog.Default()
	slog.SetDefault(slog.New(ui.NewTUILogHandler(p, level)))
	_, err := p.Run()
	slog.SetDefault(prev)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	res := model.Results()
	cmd.Printf("\nAccepted %d, rejected %d, skipped %d", res.Accepted, res.Rejected, res.Skipped)
	if res.Failed > 0 {
		cmd.Printf(", failed %d", res.Failed)
	}
	cmd.Println()
	if res.Skipped > 0 {
		cmd.Println("Skipped updates are offered again by the next check.")
	}
	return nil
}
