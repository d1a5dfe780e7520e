package store

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/config"
	"github.com/probekit/probekit/internal/sqlstore"
	"github.com/probekit/probekit/internal/state"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display every stored descriptor revision",
	Long: `Print every stored descriptor revision as JSON.

For the file backend this is the content of descriptors.json. The location
of the store is printed to stderr so the JSON can be piped.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, _ []string) error {
	cfg, paths, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var v any
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlstore.Open(paths.DatabaseFile())
		if err != nil {
			return fmt.Errorf("failed to open descriptor database: %w", err)
		}
		defer db.Close()

		cmd.PrintErrln("Database:", paths.DatabaseFile())
		ds, err := db.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list descriptors: %w", err)
		}
		v = ds
	default:
		st, err := state.NewStore(paths.StoreDir())
		if err != nil {
			return fmt.Errorf("failed to create descriptor store: %w", err)
		}

		// Read-only, no lock.
		doc, err := st.Load()
		if err != nil {
			return fmt.Errorf("failed to load descriptors: %w", err)
		}
		cmd.PrintErrln("Descriptor file:", st.StatePath())
		v = doc
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptors: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
