package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/bqexport"
)

// BigQuery command flags
var (
	bqProject    string
	bqDataset    string
	bqCollection string
)

var bigqueryCmd = &cobra.Command{
	Use:   "bigquery",
	Short: "BigQuery operations",
	Long:  `Export coverage trees to Google BigQuery for cross-run analysis.`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a coverage report into BigQuery",
	Long: `Ingest the coverage tree of a report into BigQuery.

Creates two tables in the specified dataset:
  - coverage_points:  One row per covergroup and coverpoint with summary counts
  - coverage_buckets: One row per coverpoint bucket with axis labels and goal

The dataset and tables are created if they don't exist.`,
	Example: `  coverage-viewer bigquery --project my-project --dataset my_dataset \
    ingest --report results.db --collection nightly-2026-03-01`,
	RunE: runIngest,
}

func init() {
	bigqueryCmd.PersistentFlags().StringVar(&bqProject, "project", "", "GCP project ID (overrides bigquery.project)")
	bigqueryCmd.PersistentFlags().StringVar(&bqDataset, "dataset", "", "BigQuery dataset name (overrides bigquery.dataset)")

	ingestCmd.Flags().StringVar(&bqCollection, "collection", "", "Collection ID stored with every row (overrides bigquery.collection)")

	bigqueryCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(bigqueryCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	bq := cfg.BigQuery
	if bqProject != "" {
		bq.Project = bqProject
	}
	if bqDataset != "" {
		bq.Dataset = bqDataset
	}
	if bqCollection != "" {
		bq.Collection = bqCollection
	}
	if bq.Project == "" || bq.Dataset == "" {
		return fmt.Errorf("--project and --dataset are required (or bigquery.project and bigquery.dataset in config)")
	}
	if bq.Collection == "" {
		bq.Collection = cfg.Report.Path
	}

	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx := context.Background()
	ingestionTime := time.Now().UTC()

	logger.Info("Ingesting coverage report: %s", cfg.Report.Path)
	logger.Info("BigQuery target: %s.%s", bq.Project, bq.Dataset)
	logger.Info("Ingestion time: %s", ingestionTime.Format(time.RFC3339))

	ct, err := loadTree(logger)
	if err != nil {
		return err
	}

	client, err := bigquery.NewClient(ctx, bq.Project)
	if err != nil {
		return fmt.Errorf("create BigQuery client: %w", err)
	}
	defer client.Close()

	exporter := &bqexport.Exporter{Client: client, Dataset: bq.Dataset, Log: logger}
	if err := exporter.EnsureDatasetAndTables(ctx); err != nil {
		return fmt.Errorf("setup BigQuery: %w", err)
	}

	stats, err := exporter.Export(ctx, ct, bq.Collection, ingestionTime)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	logger.Success("Ingestion complete")
	logger.Info("  %s rows: %d", bqexport.PointsTable, stats.PointRows)
	logger.Info("  %s rows: %d", bqexport.BucketsTable, stats.BucketRows)
	if stats.FailedBatch > 0 {
		logger.Warning("%d batches failed to insert", stats.FailedBatch)
	}
	return nil
}
