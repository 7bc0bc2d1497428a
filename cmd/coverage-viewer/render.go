package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/report"
)

var (
	// Render command flags
	renderOutput string
	renderTitle  string

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Generate a static HTML report",
		Long: `Render a self-contained HTML page with the coverage tree, a shaded
summary of every node and the bucket grid of every coverpoint.`,
		Example: `  coverage-viewer render --report results.json --output report/index.html`,
		RunE:    runRender,
	}
)

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "coverage.html", "Output HTML file")
	renderCmd.Flags().StringVar(&renderTitle, "title", "Coverage Report", "Page title")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	ct, err := loadTree(logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(renderOutput), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger.Progress("Rendering %d points", ct.Len())
	err = report.WriteHTMLFile(renderOutput, ct, report.Options{
		Title:     renderTitle,
		Palette:   cfg.Palette,
		Generated: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	abs, err := filepath.Abs(renderOutput)
	if err != nil {
		abs = renderOutput
	}
	logger.Success("Open HTML report: file://%s", abs)
	return nil
}
