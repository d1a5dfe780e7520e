package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probekit/probekit/internal/descriptor"
	"github.com/probekit/probekit/internal/printer"
)

var (
	getOutput string
	getAll    bool
)

var getCmd = &cobra.Command{
	Use:   "get [descriptors|defaults] [ID]",
	Short: "Display installed descriptors or built-in suites",
	Long: `Display installed descriptors or the suites built into the client.

Resource types:
  descriptors, descriptor, desc    Installed descriptors (default)
  defaults, default, suites, suite Built-in suites

Examples:
  probekit get
  probekit get descriptors 10470
  probekit get descriptors --all -o wide
  probekit get defaults -o json`,
	Args:              cobra.MaximumNArgs(2),
	ValidArgsFunction: completeResourceType,
	RunE:              runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "table", "Output format: table, wide, json")
	getCmd.Flags().BoolVar(&getAll, "all", false, "List every stored revision, not only the latest")
	_ = getCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "wide", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func completeResourceType(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return []string{printer.TypeDescriptors, printer.TypeDefaults}, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func runGet(cmd *cobra.Command, args []string) error {
	resType := printer.TypeDescriptors
	if len(args) > 0 {
		var err error
		resType, err = printer.ResolveResourceType(args[0])
		if err != nil {
			return err
		}
	}
	var id string
	if len(args) > 1 {
		id = args[1]
	}

	wide := getOutput == "wide"
	jsonOut := getOutput == outputJSON

	if resType == printer.TypeDefaults {
		return printer.Run(cmd.OutOrStdout(), nil, resType, id, wide, jsonOut)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var ds []descriptor.Descriptor
	if getAll {
		ds, err = a.store.ListAll(cmd.Context())
	} else {
		ds, err = a.store.ListLatest(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to list installed descriptors: %w", err)
	}
	return printer.Run(cmd.OutOrStdout(), ds, resType, id, wide, jsonOut)
}
