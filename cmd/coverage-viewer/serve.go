package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/server"
)

var (
	// Serve command flags
	serveAddr  string
	serveTitle string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve a coverage report over HTTP",
		Long: `Load a coverage report and serve the tree, node summaries, point grids
and pivots as JSON, with an HTML report at / and Prometheus metrics at /metrics.`,
		Example: `  # Serve a JSON report on the default address
  coverage-viewer serve --report results.json

  # Serve a SQLite report, merging equal runs
  coverage-viewer serve --report results.db --merge --addr 127.0.0.1:9000`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveTitle, "title", "Coverage Report", "Title of the HTML report")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	ct, err := loadTree(logger)
	if err != nil {
		return err
	}

	serverCfg := cfg.Server
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := server.NewServer(ct, logger, reg, server.Options{Title: serveTitle, Palette: cfg.Palette})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, serverCfg); err != nil {
		return err
	}
	logger.Success("Server stopped")
	return nil
}
