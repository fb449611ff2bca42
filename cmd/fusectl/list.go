package main

import (
	"github.com/spf13/cobra"
)

var listSources bool

func init() {
	cmd := newListCmd()
	cmd.Flags().BoolVar(&listSources, "sources", false, "Also list devices available from part description documents")
	rootCmd.AddCommand(cmd)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List devices with stored descriptors",
		Long: `The list command prints the ids of all devices whose descriptors are stored
in the override or built-in directory for the selected memory kind.

Example:
  fusectl list
  fusectl list --kind lock --json
  fusectl list --sources`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

type listOutput struct {
	Kind    string   `json:"kind"`
	Devices []string `json:"devices"`
	Sources []string `json:"sources,omitempty"`
}

func runList() error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	ids, err := e.repo().ListKnownDeviceIDs()
	if err != nil {
		return err
	}
	out := listOutput{Kind: e.kind.String(), Devices: ids}
	if out.Devices == nil {
		out.Devices = []string{}
	}

	if listSources && e.cfg.Storage.SourceDir != "" {
		src, err := sourceIDs(e.cfg.Storage.SourceDir)
		if err != nil {
			return err
		}
		out.Sources = src
	}

	if jsonOut {
		return printJSON(out)
	}
	for _, id := range out.Devices {
		printInfo("%s\n", id)
	}
	for _, id := range out.Sources {
		printInfo("%s (source)\n", id)
	}
	return nil
}
