package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"polizas-dashboard/config"
	"polizas-dashboard/utils"
)

var (
	// Global flags
	verbose  bool
	source   string
	csvInput string

	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "polizas",
	Short: "Policy dashboard: charts of processed insurance policies",
	Long: `polizas serves the policy dashboard and renders its charts offline.

Policies are read from PostgreSQL or from a CSV export, tallied per month and
operator, and drawn as a line or pie chart filtered by client registration type.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if source != "" {
			cfg.RecordSource = source
		}
		if csvInput != "" {
			cfg.CSVInputPath = csvInput
		}
		cfg.Debug = cfg.Debug || verbose
		if err := cfg.Validate(); err != nil {
			return err
		}

		var err error
		logger, err = utils.NewLoggerWithLevel(cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "record source: postgres or csv (default from RECORD_SOURCE)")
	rootCmd.PersistentFlags().StringVar(&csvInput, "csv-input", "", "CSV export to read with --source csv")

	rootCmd.AddCommand(serveCmd, renderCmd, exportCmd, snapshotCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
