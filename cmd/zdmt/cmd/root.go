package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zestra/zdmt/calc"
	"github.com/zestra/zdmt/registry"
	"github.com/zestra/zdmt/store"
)

var rootCmd = &cobra.Command{
	Use:   "zdmt",
	Short: "Economic time-series calculation engine",
	Long: `zdmt stores economic indicator series and derives calculated
indicators from them with a small formula language.

It provides tools for:
  - Importing and exporting indicator data points
  - Creating calculations like ROC(GDP_US, 4) or MA(CPI_US, 12)
  - Testing formulas against stored data before saving them
  - Serving chart data and live series updates over HTTP`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var dbPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./zdmt.sqlite", "path to SQLite database")
}

// openEngine opens the shared database and wires the engine. The returned
// close function closes the single underlying handle.
func openEngine() (*calc.Engine, store.Store, registry.Registry, func() error, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open db: %w", err)
	}
	st, err := store.NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("store schema: %w", err)
	}
	reg, err := registry.NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("registry schema: %w", err)
	}
	return calc.NewEngine(st, reg), st, reg, db.Close, nil
}
