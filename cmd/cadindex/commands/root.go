// Package commands implements the cadindex CLI.
package commands

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/drafthaus/cadindex/cmd/cadindex/ui"
	"github.com/drafthaus/cadindex/internal/app"
	"github.com/drafthaus/cadindex/internal/config"
)

var (
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "cadindex",
	Short: "CAD drawing indexer - ingest, search and describe engineering drawings",
	Long: `cadindex ingests DWG, DXF and PDF engineering drawings, extracts their
geometry and text, generates searchable descriptions and serves
semantic queries over the resulting index.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; environment may be set another way.
		_ = godotenv.Load()
		ui.Init(noColor)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp loads configuration and assembles the pipeline.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}
