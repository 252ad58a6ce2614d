// Command catalog serves, harvests, queries, and validates the map layer
// catalog.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/layer-catalog-service/internal/config"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd loads configuration from the environment before any subcommand runs.
var rootCmd = &cobra.Command{
	Use:           "catalog",
	Short:         "Browse and maintain the map layer catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		logger = observability.NewLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
