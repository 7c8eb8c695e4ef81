package experiment

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"dsbench/internal/actions"
	"dsbench/internal/config"
	"dsbench/internal/diff"
	"dsbench/internal/llm"
	"dsbench/internal/logging"
	"dsbench/internal/tokens"
	"dsbench/internal/watcher"
	"dsbench/internal/workspace"
)

// Status is the terminal state of one loop invocation.
type Status string

const (
	StatusSucceeded           Status = "succeeded"
	StatusGenerationExhausted Status = "generation_exhausted"
	StatusRetryExhausted      Status = "retry_exhausted"
)

// SuccessPrefix starts the observation of a successful run.
const SuccessPrefix = "The instructions have been performed. Here is the result log:\n"

// fatalMarkers in an execution observation mean the round failed.
var fatalMarkers = []string{
	"Traceback (most recent call last):",
	"SyntaxError: invalid syntax",
	workspace.TimeoutMarker,
	workspace.ScriptNotFoundPrefix,
	workspace.ScriptStartPrefix,
}

// IsFatal reports whether observation carries a fatal-error marker.
func IsFatal(observation string) bool {
	for _, m := range fatalMarkers {
		if strings.Contains(observation, m) {
			return true
		}
	}
	return false
}

func noCodeMessage(n int) string {
	return fmt.Sprintf("No usable code was generated for the instruction in %d attempts. Please rephrase the instruction so it asks for a single Python script and retry.", n)
}

func exhaustedMessage(n int) string {
	return fmt.Sprintf("The instruction cannot be perfectly performed by another Python programming Agent in %d times. Please give a more simplified and feasible instruction and retry.", n)
}

// Config bounds and parameterizes the loop and the AI-assisted actions.
type Config struct {
	MaxIterations         int
	MaxGenerationAttempts int
	ObservationTokens     int
	EditModel             string
	FastModel             string
	MaxTokens             int32
	InspectMaxLines       int
	BlockChars            int
	ResearchProblem       string

	// Inputs are workspace files copied into the data folder of every run.
	Inputs []string
}

// DefaultConfig returns the built-in loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:         config.DefaultMaxIterations,
		MaxGenerationAttempts: config.DefaultMaxGenerationAttempts,
		ObservationTokens:     config.DefaultObservationTokens,
		EditModel:             config.DefaultModel,
		FastModel:             config.DefaultModel,
		MaxTokens:             config.DefaultMaxOutputTokens,
		InspectMaxLines:       config.DefaultInspectMaxLines,
		BlockChars:            config.DefaultUnderstandBlockChars,
	}
}

// ConfigFrom derives the loop configuration from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		MaxIterations:         cfg.Loop.MaxIterations,
		MaxGenerationAttempts: cfg.Loop.MaxGenerationAttempts,
		ObservationTokens:     cfg.Loop.ObservationTokens,
		EditModel:             cfg.Model.Name,
		FastModel:             cfg.Model.FastName,
		MaxTokens:             cfg.Model.MaxOutputTokens,
		InspectMaxLines:       cfg.Loop.InspectMaxLines,
		BlockChars:            cfg.Loop.UnderstandBlockChars,
	}
	if c.FastModel == "" {
		c.FastModel = c.EditModel
	}
	return c
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.MaxGenerationAttempts <= 0 {
		c.MaxGenerationAttempts = def.MaxGenerationAttempts
	}
	if c.InspectMaxLines <= 0 {
		c.InspectMaxLines = def.InspectMaxLines
	}
	if c.BlockChars <= 0 {
		c.BlockChars = def.BlockChars
	}
	return c
}

// Outcome is the result of one loop invocation.
type Outcome struct {
	Status      Status
	Observation string
	Diff        string // Set only on success
	Rounds      int
	Dir         string // Workspace name of the experiment directory
	Script      string // Workspace name of the executed script
	Artifacts   []watcher.Event
}

// Succeeded reports whether the run ended with a clean execution.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Runner drives the Edit-Execute-Diagnose loop and the other AI-assisted
// actions. It performs all file access through an actions.Invoker.
type Runner struct {
	cfg   Config
	gen   llm.Generator
	ws    *workspace.FS
	cases CaseRetriever
	now   func() time.Time
}

// NewRunner creates a runner for ws.
func NewRunner(ws *workspace.FS, gen llm.Generator, cfg Config) *Runner {
	return &Runner{
		cfg:   cfg.withDefaults(),
		gen:   gen,
		ws:    ws,
		cases: NoCases{},
		now:   time.Now,
	}
}

// SetCaseRetriever replaces the case base used for experiment planning.
func (r *Runner) SetCaseRetriever(c CaseRetriever) {
	if c == nil {
		c = NoCases{}
	}
	r.cases = c
}

// Config returns the effective configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// run is the transient state of one loop invocation.
type run struct {
	layout   *Layout
	script   string
	plan     string
	mainRel  string // Main script, relative to the experiment directory
	original string
	last     string
	observed string
}

// Execute edits script according to plan inside a fresh experiment
// directory, executes it, and lets the model fix failures for at most
// cfg.MaxIterations rounds. On success the final code is also written to
// saveName. When all rounds fail the run's copy of the script is restored to
// its original content.
//
// Script failures are part of the Outcome; the error is reserved for
// violations, I/O failures and cancellation.
func (r *Runner) Execute(ctx context.Context, inv actions.Invoker, script, plan, saveName string) (Outcome, error) {
	layout, err := NewLayout(r.ws, r.now())
	if err != nil {
		return Outcome{}, err
	}
	if err := layout.Stage(r.ws, r.cfg.Inputs); err != nil {
		return Outcome{}, err
	}

	original, err := readOrCreate(ctx, inv, script)
	if err != nil {
		return Outcome{}, err
	}

	st := &run{
		layout:   layout,
		script:   script,
		plan:     plan,
		mainRel:  path.Join("src", path.Base(saveName)),
		original: original,
	}
	out := Outcome{Dir: layout.Rel, Script: layout.Name(st.mainRel)}
	logger := logging.With("dir", layout.Rel, "script", out.Script)

	for i := 0; i < r.cfg.MaxIterations; i++ {
		out.Rounds = i + 1

		prompt := programmerPrompt(st.original, plan)
		if i > 0 {
			prompt = debuggerPrompt(st.original, plan, st.last, st.observed)
		}

		blocks, attempts, err := r.generateCode(ctx, prompt, st.mainRel)
		if err != nil {
			return out, err
		}
		if blocks == nil {
			logger.Warn("no usable code generated", "iteration", out.Rounds, "attempts", attempts)
			if err := r.restore(ctx, inv, st, i > 0); err != nil {
				return out, err
			}
			out.Status = StatusGenerationExhausted
			out.Observation = noCodeMessage(attempts)
			return out, nil
		}

		main, err := r.writeBlocks(ctx, inv, st, blocks)
		if err != nil {
			return out, err
		}

		observation, artifacts, err := r.executeWatched(ctx, inv, st)
		if err != nil {
			return out, err
		}

		if !IsFatal(observation) {
			logger.Info("experiment round", "iteration", out.Rounds, "outcome", "succeeded", "artifacts", len(artifacts))
			if _, err := inv.InvokeKind(ctx, actions.WriteFile, actions.Args{"file_name": saveName, "content": main}); err != nil {
				return out, err
			}
			out.Status = StatusSucceeded
			out.Observation = SuccessPrefix + observation
			out.Diff = diff.Unified("", "", st.original, main, diff.DefaultContext)
			out.Artifacts = artifacts
			return out, nil
		}

		logger.Info("experiment round", "iteration", out.Rounds, "outcome", "failed")
		st.last = main
		st.observed = observation
	}

	if err := r.restore(ctx, inv, st, true); err != nil {
		return out, err
	}
	out.Status = StatusRetryExhausted
	out.Observation = exhaustedMessage(r.cfg.MaxIterations)
	return out, nil
}

// generateCode asks for code until a reply holds a block for mainRel. It
// returns nil blocks after cfg.MaxGenerationAttempts unusable replies.
func (r *Runner) generateCode(ctx context.Context, prompt, mainRel string) ([]CodeBlock, int, error) {
	for attempt := 1; attempt <= r.cfg.MaxGenerationAttempts; attempt++ {
		reply, err := r.gen.Generate(ctx, llm.Request{Prompt: prompt, Model: r.cfg.EditModel, MaxTokens: r.cfg.MaxTokens})
		if err != nil {
			if ctx.Err() != nil {
				return nil, attempt, ctx.Err()
			}
			logging.Warn("code generation failed", "attempt", attempt, "error", err)
			continue
		}

		var blocks []CodeBlock
		hasMain := false
		for _, b := range ParseCodeBlocks(reply, mainRel) {
			if !local(b.Path) {
				logging.Warn("generated file outside the experiment directory ignored", "path", b.Path)
				continue
			}
			hasMain = hasMain || b.Path == mainRel
			blocks = append(blocks, b)
		}
		if hasMain {
			return blocks, attempt, nil
		}
		logging.Warn("reply has no code for the main script", "attempt", attempt, "script", mainRel)
	}
	return nil, r.cfg.MaxGenerationAttempts, nil
}

// writeBlocks writes every block into the experiment directory and returns
// the main script content. Extra files that cannot be written are skipped.
func (r *Runner) writeBlocks(ctx context.Context, inv actions.Invoker, st *run, blocks []CodeBlock) (string, error) {
	var main string
	for _, b := range blocks {
		st.layout.Backup(b.Path)
		_, err := inv.InvokeKind(ctx, actions.WriteFile, actions.Args{
			"file_name": st.layout.Name(b.Path),
			"content":   b.Content,
		})
		if b.Path == st.mainRel {
			if err != nil {
				return "", err
			}
			main = b.Content
			continue
		}
		if err != nil {
			logging.Warn("generated file not written", "path", b.Path, "error", err)
		}
	}
	return main, nil
}

// executeWatched runs the main script and reports the files it produced.
func (r *Runner) executeWatched(ctx context.Context, inv actions.Invoker, st *run) (string, []watcher.Event, error) {
	w, err := watcher.New(st.layout.Abs, watcher.DefaultConfig())
	if err == nil {
		if err = w.Start(); err != nil {
			_ = w.Stop()
		}
	}
	if err != nil {
		logging.Debug("artifact watcher unavailable", "error", err)
		w = nil
	}

	res, err := inv.InvokeKind(ctx, actions.ExecuteScript, actions.Args{"script_name": st.layout.Name(st.mainRel)})

	var artifacts []watcher.Event
	if w != nil {
		_ = w.Stop()
		artifacts = w.Changes()
	}
	if err != nil {
		return "", nil, err
	}
	return tokens.KeepTail(res.Observation, r.cfg.ObservationTokens), artifacts, nil
}

// restore writes the original content back to the run's main script.
func (r *Runner) restore(ctx context.Context, inv actions.Invoker, st *run, written bool) error {
	if !written {
		return nil
	}
	_, err := inv.InvokeKind(ctx, actions.WriteFile, actions.Args{
		"file_name": st.layout.Name(st.mainRel),
		"content":   st.original,
	})
	return err
}

// readOrCreate returns the content of name, creating it empty when missing.
func readOrCreate(ctx context.Context, inv actions.Invoker, name string) (string, error) {
	res, err := inv.InvokeKind(ctx, actions.ReadFile, actions.Args{"file_name": name})
	if err == nil {
		return res.Observation, nil
	}
	if !errors.Is(err, workspace.ErrNotFound) {
		return "", err
	}
	if _, err := inv.InvokeKind(ctx, actions.WriteFile, actions.Args{"file_name": name, "content": ""}); err != nil {
		return "", err
	}
	return "", nil
}
