package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"dsbench/internal/llm"
	"dsbench/internal/runner"
)

func newRunCmd() *cobra.Command {
	var (
		problem     string
		input       string
		workDir     string
		logDir      string
		python      string
		model       string
		provider    string
		pretty      bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and execute one experiment for a research problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if workDir != "" {
				cfg.Workspace.Root = workDir
			}
			if logDir != "" {
				cfg.Logging.Dir = logDir
			}
			if python != "" {
				cfg.Workspace.Interpreter = python
			}
			if model != "" {
				cfg.Model.Name = model
				cfg.Model.FastName = model
			}
			if provider != "" {
				cfg.Model.Provider = provider
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

			req := runner.Request{Problem: problem, Input: input}
			if interactive {
				req.HelpIn = os.Stdin
				req.HelpOut = os.Stdout
			}

			report, err := runner.Run(cmd.Context(), cfg, gen, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run: %s\n", report.RunID)
			fmt.Fprintf(out, "Status: %s\n", report.Status)
			fmt.Fprintf(out, "Snapshots: %s\n\n", report.SnapshotDir)
			if pretty {
				fmt.Fprint(out, renderMarkdown(researchLogMarkdown(report)))
			} else {
				fmt.Fprint(out, report.ResearchLog)
			}
			fmt.Fprintln(out, "Experiment completed. Check the research log for details.")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&problem, "problem", "", "description of the research problem")
	f.StringVar(&input, "input", "", "path to the input data file")
	f.StringVar(&workDir, "work-dir", "", "workspace directory (overrides workspace.root)")
	f.StringVar(&logDir, "log-dir", "", "log directory (overrides logging.dir)")
	f.StringVar(&python, "python", "", "interpreter used to run scripts")
	f.StringVar(&model, "model", "", "model used for generation")
	f.StringVar(&provider, "provider", "", "model provider: gemini or ollama")
	f.BoolVar(&pretty, "pretty", false, "render the research log as markdown")
	f.BoolVar(&interactive, "interactive", false, "answer Request Help actions from stdin")
	_ = cmd.MarkFlagRequired("problem")

	return cmd
}

// researchLogMarkdown frames the research log and diff for rendering.
func researchLogMarkdown(r runner.Report) string {
	md := "# Research log\n\n```text\n" + r.ResearchLog + "```\n"
	if r.Diff != "" {
		md += "\n## Changes to the experiment script\n\n```diff\n" + r.Diff + "```\n"
	}
	return md
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
