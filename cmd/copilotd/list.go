package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/rag"
)

func buildAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect registered agents",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing needs no model client; the run callbacks are never
			// invoked.
			reg, err := buildAgentRegistry(agent.NewRunner(nil, nil, nil), agent.LoopConfig{})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, meta := range reg.ListMetadata() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", meta.ID, meta.Name, meta.Description)
			}
			return w.Flush()
		},
	})
	return cmd
}

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect registered tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := buildToolRegistry(rag.NewMemorySearcher())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEFFECT\tCONFIRM\tDESCRIPTION")
			for _, desc := range reg.List() {
				confirm := "no"
				if desc.RequiresConfirmation {
					confirm = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", desc.ID, desc.Name, desc.Effect, confirm, desc.Description)
			}
			return w.Flush()
		},
	})
	return cmd
}
