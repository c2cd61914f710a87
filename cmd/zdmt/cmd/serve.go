package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zestra/zdmt/config"
	"github.com/zestra/zdmt/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and live series websocket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var (
	serveAddr       string
	serveConfigFile string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides config)")
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "config file (YAML or JSON); an explicit --db wins over its database path")
}

// resolveServeConfig merges the config file with the command-line flags.
// Explicit flags win: --addr overrides the config's listen address, and the
// config's database path applies only when --db was left at its default.
func resolveServeConfig() (*config.Config, error) {
	cfg := config.Default()
	if serveConfigFile != "" {
		loaded, err := config.LoadFromFile(serveConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
		if !rootCmd.PersistentFlags().Changed("db") {
			dbPath = cfg.Database.Path
		}
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveServeConfig()
	if err != nil {
		return err
	}

	engine, st, reg, closeDB, err := openEngine()
	if err != nil {
		return err
	}
	defer closeDB()
	engine.WithMaxDepth(cfg.Eval.MaxDepth)

	srv := server.New(engine, st, reg, cfg.Eval.ListLimit)
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
