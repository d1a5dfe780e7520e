package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
	"github.com/probekit/probekit/internal/path"
	"github.com/probekit/probekit/internal/ui"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Write config.cue and schema.cue with the default settings into the
config directory and create the data directory.

An existing config.cue is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config.cue")
}

func runInit(cmd *cobra.Command, _ []string) error {
	style := ui.NewStyle()
	cfg := config.DefaultConfig()

	configPath, err := config.WriteFiles(cfg, configDir, initForce)
	if err != nil {
		return err
	}

	paths, err := path.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create paths: %w", err)
	}
	if err := path.EnsureDir(paths.DataDir()); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cmd.Printf("%s Wrote %s\n", style.SuccessMark, style.Path.Sprint(configPath))
	cmd.Printf("%s Data directory %s\n", style.SuccessMark, style.Path.Sprint(paths.DataDir()))
	return nil
}
