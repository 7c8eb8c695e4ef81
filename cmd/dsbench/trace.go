package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dsbench/internal/trace"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect saved action traces",
	}

	var (
		action string
		failed bool
		since  time.Duration
		limit  int
		format string
	)

	show := &cobra.Command{
		Use:   "show <trace.json>",
		Short: "Print the steps of a saved trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := trace.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load trace: %w", err)
			}

			f := trace.Filter{Action: action, Limit: limit}
			if cmd.Flags().Changed("failed") {
				f.Failed = &failed
			}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}

			data, err := trace.Export(trace.Query(steps, f), format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	fl := show.Flags()
	fl.StringVar(&action, "action", "", "only steps of this action")
	fl.BoolVar(&failed, "failed", false, "only failed steps (--failed=false for successful ones)")
	fl.DurationVar(&since, "since", 0, "only steps newer than this")
	fl.IntVar(&limit, "limit", 0, "stop after this many steps")
	fl.StringVar(&format, "format", "json", "output format: json or jsonl")

	cmd.AddCommand(show)
	return cmd
}
