package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis"
)

var diagnosesCmd = &cobra.Command{
	Use:   "diagnoses [graph]",
	Short: "List the diagnoses the graph can reach",
	Long:  `Prints every diagnosis node together with a shortest answer path from the root.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := graphPath(cmd, args)
		if err != nil {
			return err
		}
		g, err := anamnesis.LoadGraph(cmd.Context(), path)
		if err != nil {
			return err
		}

		outcomes := g.Diagnoses()
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(outcomes)
		}

		for _, o := range outcomes {
			steps := make([]string, len(o.Path))
			for i, s := range o.Path {
				steps[i] = fmt.Sprintf("%s=%s", s.NodeID, s.Answer)
			}
			fmt.Fprintf(out, "- %s (%s): %s\n", o.Diagnosis, o.NodeID, strings.Join(steps, " → "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnosesCmd)
	diagnosesCmd.Flags().Bool("json", false, "Print the outcomes as JSON")
}
