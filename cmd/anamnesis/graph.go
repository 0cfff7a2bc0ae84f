package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis"
	"github.com/aretw0/anamnesis/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [graph]",
	Short: "Export the decision graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the decision graph.
With --session, the answered path and the current node of that consultation are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			path, err := graphPath(cmd, args)
			if err != nil {
				return err
			}
			g, err := anamnesis.LoadGraph(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g.Root(), g.Nodes(), nil))
			return nil
		}

		a, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.engine.Get(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("load session '%s': %w", sessionID, err)
		}
		g := a.engine.Graph()
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g.Root(), g.Nodes(), graph.OverlayFor(snap.Consultation)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this consultation")
}
