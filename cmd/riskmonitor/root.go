package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/riskmonitor/internal/config"
)

// app carries the global flags and the configuration loaded from them
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "riskmonitor",
		Short: "RiskMonitor - options portfolio risk monitoring",
		Long: `RiskMonitor watches market conditions for an options portfolio, detects risk
signals, recommends mitigating actions and learns which actions worked.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file path (default ./configs/riskmonitor.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override app.log_level")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newLearnCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newImportCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load reads the env file and configuration and initialises logging
func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.App.LogLevel = a.logLevel
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	a.cfg = cfg
	return nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetBuildInfo().String())
		},
	}
}
