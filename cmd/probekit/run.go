package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/descriptor"
	"github.com/probekit/probekit/internal/printer"
	"github.com/probekit/probekit/internal/runspec"
	"github.com/probekit/probekit/internal/ui"
)

var (
	runSpecFile    string
	runPlanOutput  string
	runExportFile  string
	runExportOrig  string
	runStripInputs bool
	runWithSuites  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Work with run specifications",
}

var runPlanCmd = &cobra.Command{
	Use:   "plan -f SPEC",
	Short: "Show what a run specification would run",
	Long: `Resolve a run specification against the installed descriptors and the
built-in suites and print the net-tests that would run.

Entries naming unknown or expired descriptors are dropped. Entries that
do not list inputs use the inputs of the installed descriptor.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

var runExportCmd = &cobra.Command{
	Use:   "export -o FILE",
	Short: "Write a run specification covering installed descriptors",
	Long: `Write a run specification selecting every net-test of every installed
descriptor. The file is JSON for a .json extension and YAML otherwise;
"-" writes YAML to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	runPlanCmd.Flags().StringVarP(&runSpecFile, "file", "f", "", "Run specification (YAML or JSON)")
	runPlanCmd.Flags().StringVarP(&runPlanOutput, "output", "o", "table", "Output format: table, json")
	_ = runPlanCmd.MarkFlagRequired("file")

	runExportCmd.Flags().StringVarP(&runExportFile, "output", "o", "-", "Destination file")
	runExportCmd.Flags().StringVar(&runExportOrig, "origin", string(runspec.OriginManual), "Task origin: manual, background")
	runExportCmd.Flags().BoolVar(&runStripInputs, "strip-inputs", false, "Leave inputs out so the installed ones are used at run time")
	runExportCmd.Flags().BoolVar(&runWithSuites, "with-defaults", false, "Include the built-in suites")

	runCmd.AddCommand(runPlanCmd, runExportCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	spec, err := runspec.Load(runSpecFile)
	if err != nil {
		return err
	}

	ds, err := catalogue(cmd, true)
	if err != nil {
		return err
	}

	plan := runspec.Filter(spec, ds, time.Now())
	return printer.PrintPlan(cmd.OutOrStdout(), plan, runPlanOutput == outputJSON)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ds, err := catalogue(cmd, runWithSuites)
	if err != nil {
		return err
	}

	spec := runspec.FromDescriptors(ds, runspec.Origin(runExportOrig), runStripInputs)
	if err := spec.Validate(); err != nil {
		return err
	}

	if runExportFile == "-" {
		data, err := runspec.Marshal(spec, false)
		if err != nil {
			return fmt.Errorf("failed to encode run specification: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := runspec.Write(runExportFile, spec); err != nil {
		return err
	}
	cmd.Printf("%s Wrote %d entries to %s\n", ui.NewStyle().SuccessMark, len(spec.Tests), runExportFile)
	return nil
}

// catalogue returns the latest installed descriptors, followed by the
// built-in suites when withDefaults is set.
func catalogue(cmd *cobra.Command, withDefaults bool) ([]descriptor.Descriptor, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	installed, err := a.store.ListLatest(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to list installed descriptors: %w", err)
	}
	if !withDefaults {
		return installed, nil
	}
	return slices.Concat(installed, descriptor.Defaults()), nil
}
