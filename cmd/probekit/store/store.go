// Package store holds the subcommands that inspect the descriptor store.
package store

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
	"github.com/probekit/probekit/internal/path"
)

// Cmd is the parent command for store subcommands.
var Cmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the descriptor store",
	Long:  "Commands for inspecting the descriptors probekit has stored.",
}

func init() {
	Cmd.AddCommand(showCmd, NewDiffCmd())
}

// loadConfig reads the configuration named by the inherited --config-dir flag.
func loadConfig(cmd *cobra.Command) (*config.Config, *path.Paths, error) {
	dir := config.DefaultConfigDir
	if f := cmd.Flag("config-dir"); f != nil {
		dir = f.Value.String()
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	paths, err := path.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create paths: %w", err)
	}
	return cfg, paths, nil
}
