package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zestra/zdmt/functions"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the functions available in formulas",
	Args:  cobra.NoArgs,
	RunE:  runFunctions,
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}

func runFunctions(cmd *cobra.Command, args []string) error {
	category := ""
	for _, spec := range functions.Catalogue() {
		if spec.Category != category {
			category = spec.Category
			fmt.Printf("\n%s\n", category)
		}
		fmt.Printf("  %-28s %s\n", spec.Syntax, spec.Description)
		fmt.Printf("  %-28s e.g. %s\n", "", spec.Example)
	}
	return nil
}
