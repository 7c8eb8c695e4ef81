package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dsbench/internal/actions"
	"dsbench/internal/diff"
	"dsbench/internal/llm"
	"dsbench/internal/workspace"
)

// ErrNoCode is returned when the model reply holds no code block.
var ErrNoCode = errors.New("the model reply contains no code block")

const editedFormat = "The edited file is saved to %s. Here is the diff, please check if the edit is correct and desirable:\n\n"

// EditScript rewrites script with one model call and saves the result as saveName.
func (r *Runner) EditScript(ctx context.Context, inv actions.Invoker, script, instruction, saveName string) (actions.Result, error) {
	content, err := readOrCreate(ctx, inv, script)
	if err != nil {
		return actions.Result{}, err
	}

	edited, err := r.generateEdit(ctx, editPrompt(content, instruction))
	if err != nil {
		return actions.Result{}, err
	}
	return r.saveEdit(ctx, inv, saveName, content, edited)
}

// EditScriptSegment rewrites lines start..end (1-based, inclusive) of script
// and saves the whole file as saveName.
func (r *Runner) EditScriptSegment(ctx context.Context, inv actions.Invoker, script string, start, end int, instruction, saveName string) (actions.Result, error) {
	content, err := readOrCreate(ctx, inv, script)
	if err != nil {
		return actions.Result{}, err
	}

	lines := strings.Split(content, "\n")
	lo, hi := lineSpan(start, end, len(lines))
	segment := strings.Join(lines[lo:hi], "\n")

	code, err := r.generateEdit(ctx, segmentPrompt(segment, instruction))
	if err != nil {
		return actions.Result{}, err
	}

	merged := make([]string, 0, len(lines))
	merged = append(merged, lines[:lo]...)
	merged = append(merged, strings.Split(strings.TrimRight(code, "\n"), "\n")...)
	merged = append(merged, lines[hi:]...)
	return r.saveEdit(ctx, inv, saveName, content, strings.Join(merged, "\n"))
}

func (r *Runner) generateEdit(ctx context.Context, prompt string) (string, error) {
	reply, err := r.gen.Generate(ctx, llm.Request{Prompt: prompt, Model: r.cfg.EditModel, MaxTokens: r.cfg.MaxTokens})
	if err != nil {
		return "", fmt.Errorf("edit generation failed: %w", err)
	}
	code, ok := firstBlock(reply, "edit")
	if !ok {
		return "", ErrNoCode
	}
	return code, nil
}

func (r *Runner) saveEdit(ctx context.Context, inv actions.Invoker, saveName, before, after string) (actions.Result, error) {
	if _, err := inv.InvokeKind(ctx, actions.WriteFile, actions.Args{"file_name": saveName, "content": after}); err != nil {
		return actions.Result{}, err
	}
	d := diff.Unified("", "", before, after, diff.DefaultContext)
	return actions.Result{
		Observation: fmt.Sprintf(editedFormat, saveName) + d,
		Diff:        d,
		HasDiff:     true,
	}, nil
}

// InspectScriptLines returns lines start..end (1-based, inclusive) of script.
// The span is validated before the file is read. A trailing newline does not
// count as an extra line.
func (r *Runner) InspectScriptLines(ctx context.Context, inv actions.Invoker, script string, start, end int) (string, error) {
	if end-start > r.cfg.InspectMaxLines {
		return "", workspace.NewError(workspace.ErrArgument,
			fmt.Sprintf("the number of lines to display is limited to %d lines", r.cfg.InspectMaxLines), nil)
	}

	res, err := inv.InvokeKind(ctx, actions.ReadFile, actions.Args{"file_name": script})
	if err != nil {
		if workspace.IsViolation(err) {
			return "", err
		}
		return "", workspace.NewError(workspace.ErrNotFound, fmt.Sprintf("cannot find script %s", script), err)
	}

	lines := strings.Split(strings.TrimSuffix(res.Observation, "\n"), "\n")
	lo, hi := lineSpan(start, end, len(lines))
	return fmt.Sprintf("Here are the lines (the file ends at line %d):\n\n", len(lines)) +
		strings.Join(lines[lo:hi], "\n"), nil
}

// lineSpan converts a 1-based inclusive range into clamped slice bounds.
func lineSpan(start, end, n int) (lo, hi int) {
	lo = min(max(start-1, 0), n)
	hi = min(max(end, lo), n)
	return lo, hi
}
