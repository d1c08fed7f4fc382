// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conectividadeproj/conectividade-mcp/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "conectividade",
	Short: "School connectivity device coverage per enrolled municipality",
	Long: `conectividade reconciles per-school measurement telemetry with the list of
municipalities enrolled in the program and reports, per municipality, the
share of municipal schools with internet whose measurement device is active.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zcfg := zap.NewProductionConfig()
		if cfg.Log.Development {
			zcfg = zap.NewDevelopmentConfig()
		}
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = zcfg.Build()
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
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "conectividade.yaml", "Configuration file (defaults apply when absent)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().BoolVar(&refreshFirst, "refresh", false, "Fetch the dataset before computing")
	runCmd.Flags().StringVar(&subsetFlag, "subset", "all", "Subset to print: all, 50, 70, 80 or 100")
	runCmd.Flags().StringVar(&stateFlag, "uf", "", "Only print rows of this state")

	exportCmd.Flags().BoolVar(&refreshFirst, "refresh", false, "Fetch the dataset before computing")
	exportCmd.Flags().StringVar(&formatFlag, "format", "xlsx", "Subset file format: csv, xlsx or json")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (default from config)")

	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
