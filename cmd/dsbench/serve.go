package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dsbench/internal/llm"
	"dsbench/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the experiment API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setupLogging(cfg); err != nil {
				return err
			}

			gen, err := llm.New(cmd.Context(), cfg, cfg.Logging.Dir)
			if err != nil {
				return fmt.Errorf("failed to create generator: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", cfg.Server.Addr)
			return server.New(cfg, gen).ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
