// Package runner drives one research run end to end: it seeds the research
// log, plans an experiment, executes it through the loop and records the
// result. Both the CLI and the HTTP server start runs through Run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"dsbench/internal/actions"
	"dsbench/internal/config"
	"dsbench/internal/env"
	"dsbench/internal/experiment"
	"dsbench/internal/fileutil"
	"dsbench/internal/llm"
	"dsbench/internal/logging"
	"dsbench/internal/workspace"
)

// ScriptName is the script every run edits and executes.
const ScriptName = "experiment.py"

// Request describes one research run.
type Request struct {
	Problem string
	Input   string // Optional host path of the input data file

	// HelpIn answers Request Help; nil leaves it unanswerable.
	HelpIn  io.Reader
	HelpOut io.Writer
}

// Report summarises a finished run.
type Report struct {
	RunID       string
	Plan        string
	Status      experiment.Status
	Observation string
	Diff        string
	ResearchLog string
	SnapshotDir string
}

// Succeeded reports whether the experiment script ran cleanly.
func (r Report) Succeeded() bool {
	return r.Status == experiment.StatusSucceeded
}

// Run executes one research run in cfg.Workspace.Root.
func Run(ctx context.Context, cfg *config.Config, gen llm.Generator, req Request) (Report, error) {
	if req.Problem == "" {
		return Report{}, errors.New("research problem is required")
	}

	root := cfg.Workspace.Root
	if err := os.MkdirAll(root, 0755); err != nil {
		return Report{}, fmt.Errorf("failed to create workspace: %w", err)
	}

	loop := experiment.ConfigFrom(cfg)
	loop.ResearchProblem = req.Problem

	readOnly := append([]string(nil), cfg.Workspace.ReadOnly...)
	if req.Input != "" {
		name, err := stageInput(root, req.Input)
		if err != nil {
			return Report{}, err
		}
		if name != "" {
			loop.Inputs = append(loop.Inputs, name)
			readOnly = append(readOnly, name, path.Join(experiment.OutputDir, "*", name))
		}
	}

	opts := env.Options{
		Root:     root,
		ReadOnly: readOnly,
		Workspace: workspace.Options{
			Interpreter:     cfg.Workspace.Interpreter,
			InterpreterArgs: cfg.Workspace.InterpreterArgs,
			ExecTimeout:     cfg.Workspace.ExecTimeout,
			PassEnv:         cfg.Workspace.PassEnv,
		},
		Loop:        loop,
		Generator:   gen,
		HelpIn:      req.HelpIn,
		HelpOut:     req.HelpOut,
		SnapshotDir: cfg.SnapshotDir(),
	}

	var report Report
	err := env.Run(ctx, opts, func(ctx context.Context, e *env.Environment) error {
		report.RunID = e.ID()
		report.SnapshotDir = filepath.Join(e.SnapshotDir(), e.ID())
		log := logging.With("run", e.ID())
		log.Info("research run started", "problem", req.Problem, "root", e.Workspace().Root())

		if _, err := e.Execute(ctx, actions.WriteFile.String(), actions.Args{
			"file_name": experiment.ResearchLogName,
			"content":   "Research Problem: " + req.Problem + "\n",
		}); err != nil {
			return fmt.Errorf("failed to write research log: %w", err)
		}

		researchLog, err := e.Execute(ctx, actions.ReadFile.String(), actions.Args{"file_name": experiment.ResearchLogName})
		if err != nil {
			return fmt.Errorf("failed to read research log: %w", err)
		}

		plan, err := e.Execute(ctx, actions.PlanExperiment.String(), actions.Args{"experiment_log": researchLog.Observation})
		if err != nil {
			return fmt.Errorf("failed to plan experiment: %w", err)
		}
		report.Plan = plan.Observation
		log.Info("experiment planned", "plan", plan.Observation)

		res, err := e.Execute(ctx, actions.ExecuteExperiment.String(), actions.Args{
			"script_name": ScriptName,
			"plan":        plan.Observation,
			"save_name":   ScriptName,
		})
		if err != nil {
			return fmt.Errorf("failed to execute experiment: %w", err)
		}
		report.Status = experiment.Status(res.Status)
		report.Observation = res.Observation
		report.Diff = res.Diff
		log.Info("experiment finished", "status", res.Status)

		if _, err := e.Execute(ctx, actions.AppendResearchLog.String(), actions.Args{"content": res.Observation}); err != nil {
			return fmt.Errorf("failed to append to research log: %w", err)
		}

		final, err := e.Execute(ctx, actions.ReadFile.String(), actions.Args{"file_name": experiment.ResearchLogName})
		if err != nil {
			return fmt.Errorf("failed to read research log: %w", err)
		}
		report.ResearchLog = final.Observation
		return nil
	})
	return report, err
}

// stageInput copies the host file src into {root}/data and returns its
// workspace name. A missing file is logged and skipped.
func stageInput(root, src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("input data not found, continuing without it", "input", src)
			return "", nil
		}
		return "", fmt.Errorf("failed to stat input: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("input %s is not a regular file", src)
	}

	name := path.Join("data", filepath.Base(src))
	dst := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to copy input: %w", err)
	}
	logging.Info("input data staged", "input", src, "name", name)
	return name, nil
}
