package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
	"github.com/jupierce/coverage-viewer/pkg/goprofile"
	"github.com/jupierce/coverage-viewer/pkg/store"
)

var (
	// Import command flags
	importName   string
	importRecord string

	importGoCmd = &cobra.Command{
		Use:   "import-go <coverprofile>...",
		Short: "Convert Go coverage profiles into readings",
		Long: `Convert profiles written by "go test -coverprofile" into coverage readings.

Each profile becomes one reading with a group per package directory and a
coverpoint per file. Every code block is a bucket on the file's "block" axis
with a target of one hit.`,
		Example: `  # Import a profile into a JSON report
  go test -coverprofile=cover.out ./...
  coverage-viewer import-go cover.out --name example.com/m --output results.json

  # Import several runs of the same source, tagged for merging
  coverage-viewer import-go run1.out run2.out --record nightly --output results.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportGo,
	}
)

func init() {
	importGoCmd.Flags().StringVar(&importName, "name", "", "Title of the top-level group (defaults to \"coverage\")")
	importGoCmd.Flags().StringVar(&importRecord, "record", "", "Record hash shared by runs that should merge")
	importGoCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output report (required)")
	importGoCmd.Flags().StringVar(&outputFormat, "output-format", "", "Output format (json, sqlite); guessed from the extension when empty")
	importGoCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(importGoCmd)
}

func runImportGo(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	opts := goprofile.Options{Name: importName, RecordSHA: importRecord}
	readings := make([]coverage.Reading, 0, len(args))
	for _, path := range args {
		r, err := goprofile.ParseFile(path, opts)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		logger.Info("%s: %d points, definition %s", path, len(r.PointRows), r.DefSHA())
		readings = append(readings, r)
	}

	if err := store.Save(outputPath, outputFormat, readings); err != nil {
		return fmt.Errorf("save %s: %w", outputPath, err)
	}
	logger.Success("Imported %d profiles into %s", len(readings), outputPath)
	return nil
}
