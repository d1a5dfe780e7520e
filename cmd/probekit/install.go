package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/descriptor"
	pkerrors "github.com/probekit/probekit/internal/errors"
	"github.com/probekit/probekit/internal/ui"
)

var installFile string

var installCmd = &cobra.Command{
	Use:   "install -f FILE",
	Short: "Install descriptors from a JSON file",
	Long: `Install descriptors from a JSON file holding one descriptor object or an
array of them. Revisions that are already stored are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installFile, "file", "f", "", "Descriptor JSON file")
	_ = installCmd.MarkFlagRequired("file")
}

func runInstall(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(installFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", installFile, err)
	}
	ds, err := parseDescriptors(data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range ds {
		if ds[i].DateInstalled == nil {
			ds[i].DateInstalled = &now
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.CreateOrIgnore(cmd.Context(), ds); err != nil {
		return fmt.Errorf("failed to install descriptors: %w", err)
	}

	style := ui.NewStyle()
	for i := range ds {
		cmd.Printf("%s %s\n", style.SuccessMark, ds[i].Key())
	}
	return nil
}

// parseDescriptors decodes a single descriptor or an array of them.
func parseDescriptors(data []byte) ([]descriptor.Descriptor, error) {
	data = bytes.TrimSpace(data)
	var ds []descriptor.Descriptor
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, pkerrors.NewDescriptorParseError("", err)
		}
	} else {
		var d descriptor.Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, pkerrors.NewDescriptorParseError("", err)
		}
		ds = append(ds, d)
	}

	for i := range ds {
		if ds[i].ID == "" {
			return nil, pkerrors.NewValidationError(fmt.Sprintf("[%d].id", i), "descriptor id is required")
		}
		if ds[i].Builtin {
			return nil, pkerrors.NewValidationError(fmt.Sprintf("[%d].builtin", i), "built-in suites cannot be installed").
				WithExpected("false", "true")
		}
	}
	return ds, nil
}
