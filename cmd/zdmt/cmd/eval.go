package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zestra/zdmt/eval"
)

var evalCmd = &cobra.Command{
	Use:   "eval <slug>",
	Short: "Evaluate a stored calculation or indicator and print the result",
	Long: `Evaluate a stored calculation, or resolve an indicator slug to its
series, computing it when the indicator is calculation-backed.

Examples:
  zdmt eval gdp-12m-ma
  zdmt eval gdp-us`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	engine, _, reg, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	// A stored calculation evaluates under its declared output type; any
	// other slug resolves through the store as a series.
	if c, err := reg.GetBySlug(args[0]); err == nil {
		v, err := engine.Evaluate(c)
		if err != nil {
			return err
		}
		fprintValue(cmd.OutOrStdout(), v)
		return nil
	}

	out, err := engine.EvaluateSlug(args[0])
	if err != nil {
		return err
	}
	fprintValue(cmd.OutOrStdout(), eval.SeriesValue{Series: out})
	return nil
}
