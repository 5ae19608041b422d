package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sakif/coderun/internal/language"
)

func newLanguagesCmd() *cobra.Command {
	var (
		asJSON     bool
		toolchains string
	)

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their toolchains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(toolchains)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(table.List())
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			bold := color.New(color.Bold).SprintFunc()
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("ID"), bold("NAME"), bold("KIND"), bold("TOOLCHAIN"))
			for _, p := range table.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Kind, toolchainOf(p))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().StringVar(&toolchains, "toolchains", "", "YAML file overriding toolchain paths")
	return cmd
}

func toolchainOf(p language.Profile) string {
	if p.Runtime != "" {
		return p.Compiler + " + " + p.Runtime
	}
	return p.Compiler
}
