package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of anamnesis",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "anamnesis version %s\n", strings.TrimSpace(anamnesis.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
