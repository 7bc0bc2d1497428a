package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/config"
	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/covtree"
	"github.com/jupierce/coverage-viewer/pkg/log"
	"github.com/jupierce/coverage-viewer/pkg/store"
)

var (
	// Global flags
	configPath   string
	verbosity    string
	logDir       string
	reportPath   string
	reportFormat string
	mergeInputs  bool

	// Loaded by the root command before any subcommand runs
	cfg *config.Config

	// Root command
	rootCmd = &cobra.Command{
		Use:   "coverage-viewer",
		Short: "Browse functional coverage reports",
		Long: `coverage-viewer loads functional coverage readings from JSON or SQLite
reports, assembles them into a tree of covergroups and coverpoints, and
presents summaries, per-bucket grids and pivots on the console, as static
HTML, over HTTP or in BigQuery.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.ConfigFileName, "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", "", "Log verbosity (error, info, debug, trace)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for log files (no log file when empty)")
	rootCmd.PersistentFlags().StringVarP(&reportPath, "report", "r", "", "Coverage report to load (JSON or SQLite)")
	rootCmd.PersistentFlags().StringVar(&reportFormat, "format", "", "Report format (json, sqlite); guessed from the extension when empty")
	rootCmd.PersistentFlags().BoolVar(&mergeInputs, "merge", false, "Merge readings that share definition and record hashes before building the tree")
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		loaded.Log.Level = verbosity
	}
	if flags.Changed("log-dir") {
		loaded.Log.Dir = logDir
	}
	if flags.Changed("report") {
		loaded.Report.Path = reportPath
	}
	if flags.Changed("format") {
		loaded.Report.Format = reportFormat
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}

	cfg = loaded
	return nil
}

// createLogger creates a logger from the loaded config
func createLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	logger, err := log.New(level, cfg.Log.Dir, "coverage-viewer")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// loadTree reads the configured report and builds the coverage tree
func loadTree(logger *log.Logger) (*covtree.CoverageTree, error) {
	if cfg.Report.Path == "" {
		return nil, fmt.Errorf("no report given: pass --report or set report.path in %s", configPath)
	}

	logger.Debug("Loading %s", cfg.Report.Path)
	readings, err := store.Load(cfg.Report.Path, cfg.Report.Format)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	if mergeInputs {
		merged, err := coverage.MergeBySHA(readings)
		if err != nil {
			return nil, fmt.Errorf("merge readings: %w", err)
		}
		logger.Debug("Merged %d readings into %d", len(readings), len(merged))
		readings = readings[:0]
		for _, m := range merged {
			readings = append(readings, m)
		}
	}

	ct, err := covtree.FromReadings(readings)
	if err != nil {
		return nil, fmt.Errorf("build coverage tree: %w", err)
	}
	logger.Info("Loaded %d readings, %d points", len(readings), ct.Len())
	return ct, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
