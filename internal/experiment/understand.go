package experiment

import (
	"context"
	"fmt"
	"strings"

	"dsbench/internal/actions"
	"dsbench/internal/llm"
	"dsbench/internal/logging"
)

// block is a run of whole lines, or a slice of one over-long line.
type block struct {
	text               string
	startLine, endLine int
	startChar, endChar int
}

// splitBlocks groups the lines of text into blocks shorter than limit
// characters. A line that alone reaches the limit is cut into limit-sized
// pieces.
func splitBlocks(text string, limit int) []block {
	lines := strings.Split(text, "\n")
	var (
		blocks []block
		chars  int
	)
	add := func(s string, start, end int) {
		n := len([]rune(s))
		blocks = append(blocks, block{text: s, startLine: start, endLine: end, startChar: chars, endChar: chars + n})
		chars += n
	}

	for i := 0; i < len(lines); {
		start := i + 1
		var cur []string
		size := 0
		for i < len(lines) {
			n := len([]rune(lines[i]))
			joined := size
			if len(cur) > 0 {
				joined += len(cur) - 1
			}
			if joined+n >= limit {
				break
			}
			cur = append(cur, lines[i])
			size += n
			i++
		}
		if len(cur) > 0 {
			add(strings.Join(cur, "\n"), start, i)
			continue
		}

		long := []rune(lines[i])
		for off := 0; off < len(long); off += limit {
			add(string(long[off:min(off+limit, len(long))]), start, start)
		}
		i++
	}
	return blocks
}

// describe runs perBlock on every block of file with the fast model and, when
// the file spans several blocks, merges the answers with one more call.
func (r *Runner) describe(ctx context.Context, inv actions.Invoker, file string,
	perBlock func(block) string, merge func([]string) string) (string, error) {
	res, err := inv.InvokeKind(ctx, actions.ReadFile, actions.Args{"file_name": file})
	if err != nil {
		return "", err
	}

	blocks := splitBlocks(res.Observation, r.cfg.BlockChars)
	descriptions := make([]string, 0, len(blocks))
	for i, b := range blocks {
		text, err := r.fast(ctx, perBlock(b))
		if err != nil {
			return "", fmt.Errorf("failed to describe segment %d of %s: %w", i+1, file, err)
		}
		descriptions = append(descriptions, text)
	}
	logging.Debug("file described", "file", file, "segments", len(descriptions))

	switch len(descriptions) {
	case 0:
		return "", nil
	case 1:
		return descriptions[0], nil
	}
	return r.fast(ctx, merge(descriptions))
}

// UnderstandFile answers lookFor about file.
func (r *Runner) UnderstandFile(ctx context.Context, inv actions.Invoker, file, lookFor string) (string, error) {
	return r.describe(ctx, inv, file,
		func(b block) string { return understandBlockPrompt(b, lookFor) },
		func(d []string) string { return understandMergePrompt(d, lookFor) })
}

// SummaryProgress summarizes the research progress recorded in file.
func (r *Runner) SummaryProgress(ctx context.Context, inv actions.Invoker, file string) (string, error) {
	problem := r.cfg.ResearchProblem
	return r.describe(ctx, inv, file,
		func(b block) string { return summaryBlockPrompt(b, problem) },
		func(d []string) string { return summaryMergePrompt(d, problem) })
}

func (r *Runner) fast(ctx context.Context, prompt string) (string, error) {
	return r.gen.Generate(ctx, llm.Request{Prompt: prompt, Model: r.cfg.FastModel})
}
