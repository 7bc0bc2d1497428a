package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/store"
)

var (
	// Merge and convert command flags
	outputPath   string
	outputFormat string

	mergeCmd = &cobra.Command{
		Use:   "merge <report>...",
		Short: "Merge readings that share definition and record hashes",
		Long: `Read every reading from the given reports, sum the bucket hits of readings
with equal definition and record hashes, and append one reading per hash pair
to the output report. Point statistics are recomputed from the merged bucket
hits.`,
		Example: `  # Merge nightly SQLite results into one JSON report
  coverage-viewer merge nightly-*.db --output merged.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMerge,
	}

	convertCmd = &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Copy readings between JSON and SQLite reports",
		Example: `  coverage-viewer convert results.json results.db
  coverage-viewer convert results.db results.json --output-format json`,
		Args: cobra.ExactArgs(2),
		RunE: runConvert,
	}
)

func init() {
	mergeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output report (required)")
	mergeCmd.Flags().StringVar(&outputFormat, "output-format", "", "Output format (json, sqlite); guessed from the extension when empty")
	mergeCmd.MarkFlagRequired("output")

	convertCmd.Flags().StringVar(&outputFormat, "output-format", "", "Output format (json, sqlite); guessed from the extension when empty")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(convertCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	merged, err := store.MergeAll(args, reportFormat)
	if err != nil {
		return fmt.Errorf("merge reports: %w", err)
	}

	out := make([]coverage.Reading, len(merged))
	for i, m := range merged {
		out[i] = m
		logger.Debug("  def %s rec %s", m.DefSHA(), m.RecSHA())
	}
	if err := store.Save(outputPath, outputFormat, out); err != nil {
		return fmt.Errorf("save %s: %w", outputPath, err)
	}

	logger.Success("Merged %d reports into %d readings in %s", len(args), len(out), outputPath)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	in, out := args[0], args[1]
	readings, err := store.Load(in, reportFormat)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}
	if err := store.Save(out, outputFormat, readings); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}

	logger.Success("Copied %d readings from %s to %s", len(readings), in, out)
	return nil
}
