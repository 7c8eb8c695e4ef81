package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dsbench/internal/config"
	"dsbench/internal/logging"
)

var (
	version  = "0.1.0"
	cfgFile  string
	logLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "dsbench",
		Short: "Sandboxed research agent for data science experiments",
		Long: `dsbench runs data science experiments inside a sandboxed workspace.
A language model plans an experiment, writes the script, and fixes it
until it runs; every file action is checked and recorded.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dsbench/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newActionsCmd(),
		newTraceCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("dsbench version %s\n", version)
			},
		},
	)

	err := rootCmd.ExecuteContext(ctx)
	logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// setupLogging writes JSON logs under cfg.Logging.Dir and mirrors them to stderr.
func setupLogging(cfg *config.Config) error {
	level := logging.ParseLevel(cfg.Logging.Level)
	if err := logging.EnableFileLogging(cfg.Logging.Dir, level, os.Stderr); err != nil {
		return fmt.Errorf("failed to enable logging: %w", err)
	}
	return nil
}
