package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
	pklog "github.com/probekit/probekit/internal/log"
	"github.com/probekit/probekit/internal/path"
	"github.com/probekit/probekit/internal/ui"
)

var (
	logsListSessions bool
	logsSession      string
)

var logsCmd = &cobra.Command{
	Use:   "logs [ID]",
	Short: "Show fetch failures of recent update checks",
	Long: `Show the descriptors that could not be fetched during an update check.

Without arguments, lists the failed descriptors of the most recent check.
With a descriptor id, shows the full log for that descriptor.

Examples:
  probekit logs                    # failed descriptors of the last check
  probekit logs 10470              # full log for descriptor 10470
  probekit logs --session 3f2a9c1b # failed descriptors of an older check
  probekit logs --list             # list all logged checks`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsListSessions, "list", false, "List all logged checks")
	logsCmd.Flags().StringVar(&logsSession, "session", "", "Session name or pass id prefix (default: latest)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	logsDir, err := resolveLogsDir()
	if err != nil {
		return err
	}

	sessions, err := pklog.ListSessions(logsDir)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		cmd.Println("No failed update checks logged.")
		return nil
	}

	if logsListSessions {
		return listSessions(cmd, sessions)
	}

	session, err := pickSession(sessions, logsSession)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		content, err := pklog.ReadDescriptorLog(session.Dir, args[0])
		if err != nil {
			return err
		}
		cmd.Print(content)
		return nil
	}
	return showSession(cmd, session)
}

func resolveLogsDir() (string, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	paths, err := path.NewFromConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to create paths: %w", err)
	}
	return paths.LogsDir(), nil
}

// pickSession returns the newest session when ref is empty, otherwise the
// session whose name equals ref or whose pass id starts with it.
func pickSession(sessions []pklog.SessionInfo, ref string) (pklog.SessionInfo, error) {
	if ref == "" {
		return sessions[0], nil
	}
	for _, s := range sessions {
		if s.ID == ref || strings.HasPrefix(s.PassID, ref) {
			return s, nil
		}
	}
	return pklog.SessionInfo{}, fmt.Errorf("no logged check matches %q", ref)
}

func listSessions(cmd *cobra.Command, sessions []pklog.SessionInfo) error {
	style := ui.NewStyle()
	style.Header.Fprintln(cmd.OutOrStdout(), "Logged checks:")
	for _, s := range sessions {
		logs, err := pklog.ReadSessionLogs(s.Dir)
		if err != nil {
			continue
		}
		cmd.Printf("  %s  %s  (%d failed)\n", s.PassID, s.Timestamp.Local().Format("2006-01-02 15:04:05"), len(logs))
	}
	return nil
}

func showSession(cmd *cobra.Command, session pklog.SessionInfo) error {
	style := ui.NewStyle()

	logs, err := pklog.ReadSessionLogs(session.Dir)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		cmd.Printf("No failure logs in session %s.\n", session.ID)
		return nil
	}

	style.Header.Fprintf(cmd.OutOrStdout(), "Check %s (%s)\n", session.PassID, session.Timestamp.Local().Format("2006-01-02 15:04:05"))
	cmd.Println()
	for _, l := range logs {
		cmd.Printf("  %s %s\n", style.FailMark, l.ID)
	}
	cmd.Println()
	cmd.Println("Use 'probekit logs <id>' to see the full log.")
	return nil
}
