package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zestra/zdmt/eval"
	"github.com/zestra/zdmt/registry"
	"github.com/zestra/zdmt/series"
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Manage stored calculations",
	Long: `Create, list, test, and delete calculation definitions.

Examples:
  zdmt calc create "GDP 12M MA" "MA(GDP_US, 12)" --output indicator
  zdmt calc test "ROC(GDP_US, 4)"
  zdmt calc list
  zdmt calc delete gdp-12m-ma`,
}

var calcCreateCmd = &cobra.Command{
	Use:   "create <name> <formula>",
	Short: "Create a calculation",
	Args:  cobra.ExactArgs(2),
	RunE:  runCalcCreate,
}

var calcListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calculations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runCalcList,
}

var calcTestCmd = &cobra.Command{
	Use:   "test <formula>",
	Short: "Evaluate a formula without saving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalcTest,
}

var calcDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a calculation and its companion indicator",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalcDelete,
}

var (
	calcOutputType string
	calcListLimit  int
)

func init() {
	rootCmd.AddCommand(calcCmd)
	calcCmd.AddCommand(calcCreateCmd)
	calcCmd.AddCommand(calcListCmd)
	calcCmd.AddCommand(calcTestCmd)
	calcCmd.AddCommand(calcDeleteCmd)

	calcCreateCmd.Flags().StringVarP(&calcOutputType, "output", "o", "series", "output type: series, value, or indicator")
	calcListCmd.Flags().IntVarP(&calcListLimit, "limit", "n", 50, "maximum calculations to list")
}

func runCalcCreate(cmd *cobra.Command, args []string) error {
	ot, err := registry.ParseOutputType(calcOutputType)
	if err != nil {
		return err
	}

	engine, _, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	c, err := engine.CreateCalculation(args[0], args[1], nil, ot)
	if err != nil {
		return fmt.Errorf("create calculation: %w", err)
	}

	fmt.Printf("created %s (%s) = %s\n", c.Slug, c.OutputType, c.Formula)
	if c.OutputType == registry.OutputIndicator {
		fmt.Printf("companion indicator registered under slug %s\n", c.Slug)
	}
	return nil
}

func runCalcList(cmd *cobra.Command, args []string) error {
	_, _, reg, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	calcs, err := reg.List(calcListLimit)
	if err != nil {
		return fmt.Errorf("list calculations: %w", err)
	}
	if len(calcs) == 0 {
		fmt.Println("no calculations")
		return nil
	}

	for _, c := range calcs {
		fmt.Printf("%-24s %-9s %s\n", c.Slug, c.OutputType, c.Formula)
	}
	return nil
}

func runCalcTest(cmd *cobra.Command, args []string) error {
	engine, _, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	v, err := engine.TestFormula(args[0])
	if err != nil {
		return err
	}
	printValue(v)
	return nil
}

func runCalcDelete(cmd *cobra.Command, args []string) error {
	engine, _, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := engine.DeleteCalculation(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func printValue(v eval.Value) {
	fprintValue(os.Stdout, v)
}

func fprintValue(w io.Writer, v eval.Value) {
	switch t := v.(type) {
	case eval.ScalarValue:
		if t.Scalar == nil {
			fmt.Fprintln(w, "value: no data")
		} else {
			fmt.Fprintf(w, "value: %g\n", *t.Scalar)
		}
	case eval.SeriesValue:
		for _, p := range t.Series {
			if p.Value == nil {
				fmt.Fprintf(w, "%s\t-\n", p.Date.Format(series.DateFormat))
			} else {
				fmt.Fprintf(w, "%s\t%g\n", p.Date.Format(series.DateFormat), *p.Value)
			}
		}
	}
}
