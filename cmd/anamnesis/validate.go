package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis"
	"github.com/aretw0/anamnesis/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph]",
	Short: "Check the decision graph for consistency",
	Long: `Loads the graph and reports every structural problem: a missing root, dangling
edges, unreachable nodes, duplicate ids and cycles.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := graphPath(cmd, args)
		if err != nil {
			return err
		}

		loader, err := anamnesis.LoaderFor(path)
		if err != nil {
			return err
		}
		def, err := loader.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load graph: %w", err)
		}

		if issues := validator.Validate(def.Root, def.Nodes); len(issues) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), validator.Format(issues))
			return fmt.Errorf("validation failed for %s", path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Graph is valid! %d nodes\n", len(def.Nodes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// graphPath resolves the graph from the positional argument, then flags and configuration.
func graphPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Graph, nil
}
