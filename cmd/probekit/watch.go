package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pklog "github.com/probekit/probekit/internal/log"
	"github.com/probekit/probekit/internal/updates"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check for descriptor updates periodically",
	Long: `Run update checks on a fixed interval until interrupted.

The interval defaults to checkInterval from config.cue. Sending SIGHUP
starts a check right away. Updates that need review are logged and left
for 'probekit check --interactive'.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Time between checks (default from config)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	interval := watchInterval
	if interval == 0 {
		interval, err = a.cfg.Interval()
		if err != nil {
			return err
		}
	}

	resolver, logs, err := a.newResolver()
	if err != nil {
		return err
	}
	scheduler, err := updates.NewScheduler(resolver, interval)
	if err != nil {
		return err
	}
	scheduler.OnReport(func(r updates.Report) {
		if r.Checked == 0 {
			return
		}
		slog.Info("update check done",
			"pass", r.PassID,
			"checked", r.Checked,
			"updated", r.Minor+r.Auto,
			"review", r.Review,
			"failed", r.Failed)
		if err := logs.Cleanup(pklog.DefaultKeepSessions); err != nil {
			slog.Warn("failed to clean up old fetch logs", "error", err)
		}
	})

	go logTransitions(ctx, resolver.State())

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				slog.Info("received SIGHUP, checking for updates")
				scheduler.Trigger()
			}
		}
	}()

	cmd.PrintErrf("Checking for descriptor updates every %s (Ctrl-C to stop)\n", interval)
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// logTransitions logs every change of the operation state and every
// newly queued or silently applied update.
func logTransitions(ctx context.Context, st *updates.State) {
	last := updates.Idle
	for snap := range st.Subscribe(ctx) {
		if snap.OperationState != last {
			slog.Debug("update state changed", "from", last, "to", snap.OperationState)
			last = snap.OperationState
		}
		if snap.OperationState == updates.FetchingUpdates {
			continue
		}
		for _, d := range snap.AutoUpdated {
			slog.Info("descriptor updated automatically", "id", d.ID, "revision", d.Revision)
		}
		if n := len(snap.AvailableUpdates); n > 0 {
			slog.Warn("descriptor updates need review", "count", n)
		}
	}
}
