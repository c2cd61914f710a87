package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zestra/zdmt/formula"
	"github.com/zestra/zdmt/store"
)

var indicatorCmd = &cobra.Command{
	Use:   "indicator",
	Short: "Manage indicators and their data points",
}

var indicatorAddCmd = &cobra.Command{
	Use:   "add <name> <slug>",
	Short: "Register an indicator",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndicatorAdd,
}

var indicatorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indicators, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runIndicatorList,
}

var importCmd = &cobra.Command{
	Use:   "import <slug> <file.csv>",
	Short: "Import date,value rows into an indicator",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <slug> <file.csv>",
	Short: "Export an indicator's series (computing it if calculation-backed)",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var (
	indicatorSourceType string
	indicatorListLimit  int
)

func init() {
	rootCmd.AddCommand(indicatorCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	indicatorCmd.AddCommand(indicatorAddCmd)
	indicatorCmd.AddCommand(indicatorListCmd)

	indicatorAddCmd.Flags().StringVarP(&indicatorSourceType, "source", "s", "csv", "source type label")
	indicatorListCmd.Flags().IntVarP(&indicatorListLimit, "limit", "n", 50, "maximum indicators to list")
}

func runIndicatorAdd(cmd *cobra.Command, args []string) error {
	_, st, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	ind := &store.Indicator{
		Name:       args[0],
		Slug:       args[1],
		SourceType: indicatorSourceType,
		IsActive:   true,
	}
	if _, err := st.CreateIndicator(ind); err != nil {
		return fmt.Errorf("create indicator: %w", err)
	}
	fmt.Printf("created %s (reference it in formulas as %s)\n", ind.Slug, formula.ToIdent(ind.Slug))
	return nil
}

func runIndicatorList(cmd *cobra.Command, args []string) error {
	_, st, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	inds, err := st.ListIndicators(indicatorListLimit)
	if err != nil {
		return fmt.Errorf("list indicators: %w", err)
	}
	for _, ind := range inds {
		fmt.Printf("%-24s %-12s %s\n", ind.Slug, ind.SourceType, ind.Name)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	_, st, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	ind, err := st.FindIndicatorBySlug(args[0])
	if err != nil {
		return err
	}

	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	pts, err := store.ReadPointsCSV(f)
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	if err := st.UpsertPoints(ind.ID, pts); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	fmt.Printf("imported %d points into %s\n", len(pts), ind.Slug)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	engine, _, _, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()

	s, err := engine.EvaluateSlug(args[0])
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if err := store.WritePointsCSV(f, s); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	fmt.Printf("exported %d points from %s\n", len(s), args[0])
	return nil
}
