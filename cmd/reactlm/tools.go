package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickchristie/reactlm/toolchain"
)

func newToolsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog the agent would offer the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.catalog(format)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json or text")
	return cmd
}

// catalog renders the enabled tools that pass the allowed_tools filter.
func (a *app) catalog(format string) (string, error) {
	registry, err := toolchain.NewRegistry(a.tools()...)
	if err != nil {
		return "", err
	}
	entries := registry.Snapshot().Filter(a.cfg.Agent.ToolAllowed).Entries()

	switch format {
	case "yaml":
		return toolchain.CatalogYAML(entries)
	case "json":
		return toolchain.CatalogJSON(entries)
	case "text":
		return toolchain.CatalogText(entries)
	}
	return "", fmt.Errorf("unknown format %q: want yaml, json or text", format)
}
