package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	storecmd "github.com/probekit/probekit/cmd/probekit/store"
	"github.com/probekit/probekit/internal/config"
	"github.com/probekit/probekit/internal/ui"
)

const outputJSON = "json"

var (
	configDir string
	logLevel  string
	noColor   bool

	// level is shared by every handler installed by the CLI, so the TUI
	// handler honors --log-level too.
	level = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "probekit",
	Short: "Keep installed test descriptors up to date",
	Long: `probekit manages the test descriptors of a network measurement client.

It checks installed descriptors against the descriptor service, applies
silent updates, queues major updates for review and remembers the
revisions you declined. It also resolves run specifications against the
installed catalogue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		ui.SetupStdoutColor()
		if noColor {
			color.NoColor = true
		}
		level.Set(parseLogLevel(logLevel))
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultConfigDir, "Directory containing config.cue")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		versionCmd,
		initCmd,
		checkCmd,
		rejectCmd,
		undoRejectCmd,
		autoUpdateCmd,
		getCmd,
		installCmd,
		runCmd,
		watchCmd,
		logsCmd,
		diffCmd,
		completionCmd,
		storecmd.Cmd,
	)
}

// parseLogLevel converts a string log level to slog.Level.
// Accepted values: "debug", "info", "warn", "error" (case-insensitive).
// Defaults to slog.LevelWarn for unrecognized values.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
