package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jupierce/coverage-viewer/pkg/config"
)

var (
	// Config command flags
	configForce bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the coverage-viewer config file",
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: `Write the configuration in effect (defaults, then the existing file, then
global flags) to the path given by --config.`,
		Example: `  # Start a config file pointing at a report
  coverage-viewer config init --report results.db --verbosity debug`,
		Args: cobra.NoArgs,
		RunE: runConfigInit,
	}
)

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
