package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsbench/internal/actions"
	"dsbench/internal/llm"
	"dsbench/internal/trace"
	"dsbench/internal/workspace"
)

func numberedLines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func TestInspectScriptLines(t *testing.T) {
	h := newHarness(t, llm.NewScripted(), DefaultConfig())
	h.write(t, "train.py", numberedLines(200))
	ctx := context.Background()

	t.Run("returns the requested range", func(t *testing.T) {
		res, err := h.reg.Invoke(ctx, "Inspect Script Lines", actions.Args{
			"script_name":       "train.py",
			"start_line_number": "10",
			"end_line_number":   "50",
		})
		require.NoError(t, err)

		header := "Here are the lines (the file ends at line 200):\n\n"
		require.True(t, strings.HasPrefix(res.Observation, header))
		lines := strings.Split(strings.TrimPrefix(res.Observation, header), "\n")
		require.Len(t, lines, 41)
		assert.Equal(t, "line 10", lines[0])
		assert.Equal(t, "line 50", lines[40])
	})

	t.Run("span over the limit fails before reading", func(t *testing.T) {
		before := len(h.steps("Read File"))
		_, err := h.reg.Invoke(ctx, "Inspect Script Lines", actions.Args{
			"script_name":       "missing.py",
			"start_line_number": "1",
			"end_line_number":   "150",
		})
		require.ErrorIs(t, err, workspace.ErrArgument)
		assert.Equal(t, "the number of lines to display is limited to 100 lines", err.Error())
		assert.Len(t, h.steps("Read File"), before)
	})

	t.Run("non-integer line numbers", func(t *testing.T) {
		_, err := h.reg.Invoke(ctx, "Inspect Script Lines", actions.Args{
			"script_name":       "train.py",
			"start_line_number": "ten",
			"end_line_number":   "20",
		})
		require.ErrorIs(t, err, workspace.ErrArgument)
	})

	t.Run("missing script", func(t *testing.T) {
		_, err := h.reg.Invoke(ctx, "Inspect Script Lines", actions.Args{
			"script_name":       "missing.py",
			"start_line_number": "1",
			"end_line_number":   "5",
		})
		require.ErrorIs(t, err, workspace.ErrNotFound)
		assert.Equal(t, "cannot find script missing.py", err.Error())
	})

	t.Run("range past the end is clamped", func(t *testing.T) {
		res, err := h.reg.Invoke(ctx, "Inspect Script Lines", actions.Args{
			"script_name":       "train.py",
			"start_line_number": "195",
			"end_line_number":   "260",
		})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(res.Observation, "line 199\nline 200"))
	})
}

func TestEditScript(t *testing.T) {
	gen := llm.NewScripted("Here you go:\n" + fenced("print('b')"))
	h := newHarness(t, gen, DefaultConfig())
	h.write(t, "a.py", "print('a')\n")
	ctx := context.Background()

	res, err := h.reg.Invoke(ctx, "Edit Script (AI)", actions.Args{
		"script_name":      "a.py",
		"edit_instruction": "print b instead",
		"save_name":        "a.py",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Observation,
		"The edited file is saved to a.py. Here is the diff, please check if the edit is correct and desirable:\n\n"))
	assert.Contains(t, res.Diff, "-print('a')\n")
	assert.Contains(t, res.Diff, "+print('b')\n")
	assert.Equal(t, "print('b')\n", h.read(t, "a.py"))
	assert.Contains(t, gen.Requests()[0].Prompt, "print b instead")

	// The overwrite is undoable.
	res, err = h.reg.Invoke(ctx, "Undo Edit Script", actions.Args{"script_name": "a.py"})
	require.NoError(t, err)
	assert.Equal(t, "print('a')\n", h.read(t, "a.py"))
}

func TestEditScript_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no code in reply", func(t *testing.T) {
		h := newHarness(t, llm.NewScripted("I refuse."), DefaultConfig())
		_, err := h.reg.Invoke(ctx, "Edit Script (AI)", actions.Args{
			"script_name": "a.py", "edit_instruction": "x", "save_name": "b.py",
		})
		require.ErrorIs(t, err, ErrNoCode)
	})

	t.Run("generation failure", func(t *testing.T) {
		h := newHarness(t, llm.NewScriptedReplies(llm.Reply{Err: errors.New("down")}), DefaultConfig())
		_, err := h.reg.Invoke(ctx, "Edit Script (AI)", actions.Args{
			"script_name": "a.py", "edit_instruction": "x", "save_name": "b.py",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "down")
	})

	t.Run("read-only destination", func(t *testing.T) {
		root := t.TempDir()
		ws, err := workspace.New(root, []string{"locked.py"}, workspace.Options{})
		require.NoError(t, err)
		gen := llm.NewScripted(fenced("x = 1"))
		r := NewRunner(ws, gen, DefaultConfig())
		reg := actions.Build(ws, trace.New(), append(actions.Primitives(ws, nil), r.Bindings()...)...)

		_, err = reg.Invoke(ctx, "Edit Script (AI)", actions.Args{
			"script_name": "a.py", "edit_instruction": "x", "save_name": "locked.py",
		})
		require.ErrorIs(t, err, workspace.ErrReadOnly)
		assert.Zero(t, gen.Calls())
	})
}

func TestEditScriptSegment(t *testing.T) {
	gen := llm.NewScripted(fenced("X = 2"))
	h := newHarness(t, gen, DefaultConfig())
	h.write(t, "s.py", "l1\nl2\nl3\nl4\nl5\n")

	res, err := h.reg.Invoke(context.Background(), "Edit Script Segment (AI)", actions.Args{
		"script_name":       "s.py",
		"start_line_number": "2",
		"end_line_number":   "3",
		"edit_instruction":  "replace",
		"save_name":         "s2.py",
	})
	require.NoError(t, err)
	assert.Equal(t, "l1\nX = 2\nl4\nl5\n", h.read(t, "s2.py"))
	assert.Equal(t, "l1\nl2\nl3\nl4\nl5\n", h.read(t, "s.py"))
	assert.Contains(t, res.Diff, "-l2\n-l3\n+X = 2\n")
	assert.Contains(t, gen.Requests()[0].Prompt, "l2\nl3")
	assert.NotContains(t, gen.Requests()[0].Prompt, "l4")
}

func TestSplitBlocks(t *testing.T) {
	t.Run("whole lines", func(t *testing.T) {
		blocks := splitBlocks("aaaa\nbbbb\ncccc", 10)
		require.Len(t, blocks, 2)
		assert.Equal(t, "aaaa\nbbbb", blocks[0].text)
		assert.Equal(t, 1, blocks[0].startLine)
		assert.Equal(t, 2, blocks[0].endLine)
		assert.Equal(t, "cccc", blocks[1].text)
		assert.Equal(t, 3, blocks[1].startLine)
		assert.Equal(t, 9, blocks[1].startChar)
		assert.Equal(t, 13, blocks[1].endChar)
	})

	t.Run("over-long line", func(t *testing.T) {
		blocks := splitBlocks(strings.Repeat("x", 25), 10)
		require.Len(t, blocks, 3)
		assert.Len(t, blocks[2].text, 5)
		for _, b := range blocks {
			assert.Equal(t, 1, b.startLine)
			assert.Equal(t, 1, b.endLine)
		}
	})
}

func TestUnderstandFile(t *testing.T) {
	ctx := context.Background()

	t.Run("single block", func(t *testing.T) {
		gen := llm.NewScripted("it trains a model")
		h := newHarness(t, gen, DefaultConfig())
		h.write(t, "train.py", "model.fit(x, y)\n")

		res, err := h.reg.Invoke(ctx, "Understand File", actions.Args{"file_name": "train.py", "things_to_look_for": "what it does"})
		require.NoError(t, err)
		assert.Equal(t, "it trains a model", res.Observation)
		assert.Equal(t, 1, gen.Calls())
		assert.Contains(t, gen.Requests()[0].Prompt, "model.fit(x, y)")
	})

	t.Run("segments are merged", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BlockChars = 10
		cfg.FastModel = "fast"
		gen := llm.NewScripted("first", "second", "merged")
		h := newHarness(t, gen, cfg)
		h.write(t, "notes.txt", "aaaa\nbbbb\ncccc")

		res, err := h.reg.Invoke(ctx, "Understand File", actions.Args{"file_name": "notes.txt", "things_to_look_for": "letters"})
		require.NoError(t, err)
		assert.Equal(t, "merged", res.Observation)
		reqs := gen.Requests()
		require.Len(t, reqs, 3)
		assert.Contains(t, reqs[2].Prompt, "Segment 1:\n\nfirst")
		assert.Contains(t, reqs[2].Prompt, "Segment 2:\n\nsecond")
		assert.Equal(t, "fast", reqs[2].Model)
	})

	t.Run("missing file", func(t *testing.T) {
		h := newHarness(t, llm.NewScripted("x"), DefaultConfig())
		_, err := h.reg.Invoke(ctx, "Understand File", actions.Args{"file_name": "nope.txt", "things_to_look_for": "x"})
		require.ErrorIs(t, err, workspace.ErrNotFound)
	})
}

func TestSummaryProgress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResearchProblem = "predict house prices"
	gen := llm.NewScripted("baseline done")
	h := newHarness(t, gen, cfg)
	h.write(t, ResearchLogName, "Step 1: baseline RMSE 0.3\n")

	res, err := h.reg.Invoke(context.Background(), "Summary Progress", actions.Args{"file_name": ResearchLogName})
	require.NoError(t, err)
	assert.Equal(t, "baseline done", res.Observation)
	assert.Contains(t, gen.Requests()[0].Prompt, "predict house prices")
}

func TestResearchLog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResearchProblem = "classify reviews"
	gen := llm.NewScripted("try tf-idf", "log says baseline")
	h := newHarness(t, gen, cfg)
	ctx := context.Background()

	res, err := h.reg.Invoke(ctx, "Reflection", actions.Args{"things_to_reflect_on": "next step"})
	require.NoError(t, err)
	assert.Equal(t, "Reflection: try tf-idf\n", res.Observation)

	for _, entry := range []string{"baseline acc 0.71", "tf-idf acc 0.80"} {
		res, err = h.reg.Invoke(ctx, "Append Summary to Research Log", actions.Args{"content": entry})
		require.NoError(t, err)
		assert.Equal(t, "Successfully appended to research log", res.Observation)
	}
	assert.Equal(t, "baseline acc 0.71\ntf-idf acc 0.80\n", h.read(t, ResearchLogName))

	res, err = h.reg.Invoke(ctx, "Retrieval from Research Log", actions.Args{"current_plan": "tune"})
	require.NoError(t, err)
	assert.Equal(t, "log says baseline", res.Observation)
	prompt := gen.Requests()[1].Prompt
	assert.Contains(t, prompt, "classify reviews")
	assert.Contains(t, prompt, "tf-idf acc 0.80")
}

type fakeCases struct {
	cases []string
	err   error
}

func (f fakeCases) Retrieve(context.Context, string, string, int) ([]string, error) {
	return f.cases, f.err
}

func TestPlanExperiment(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ResearchProblem = "forecast sales"

	t.Run("decision is extracted", func(t *testing.T) {
		gen := llm.NewScripted("[Reflection]: nothing yet\n[Decision]: Train a gradient boosting baseline.\n")
		h := newHarness(t, gen, cfg)
		h.runner.SetCaseRetriever(fakeCases{cases: []string{"CASE: use lag features"}})

		res, err := h.reg.Invoke(ctx, "Develop An Experiment Plan via CBR", actions.Args{"experiment_log": "Research Problem: forecast sales\n"})
		require.NoError(t, err)
		assert.Equal(t, "Train a gradient boosting baseline.\n", res.Observation)
		assert.Contains(t, gen.Requests()[0].Prompt, "CASE: use lag features")
	})

	t.Run("retrieval failure still plans", func(t *testing.T) {
		gen := llm.NewScripted("[Decision]: Start simple.")
		h := newHarness(t, gen, cfg)
		h.runner.SetCaseRetriever(fakeCases{err: errors.New("index offline")})

		plan := h.runner.PlanExperiment(ctx, "")
		assert.Equal(t, "Start simple.\n", plan)
		assert.Contains(t, gen.Requests()[0].Prompt, noCasesText)
	})

	t.Run("fallbacks", func(t *testing.T) {
		for _, gen := range []*llm.ScriptedGenerator{
			llm.NewScripted("no decision here"),
			llm.NewScriptedReplies(llm.Reply{Err: errors.New("boom")}),
		} {
			r := NewRunner(nil, gen, cfg)
			assert.Equal(t, baselinePlan, r.PlanExperiment(ctx, ""))
		}
	})
}

func TestParseCodeBlocks(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []CodeBlock
	}{
		{
			name:  "plain python",
			reply: "```python\nprint(1)\n```",
			want:  []CodeBlock{{Path: "src/main.py", Lang: "python", Content: "print(1)\n"}},
		},
		{
			name:  "bare fence",
			reply: "text\n```\nx = 1\n```\nmore text",
			want:  []CodeBlock{{Path: "src/main.py", Content: "x = 1\n"}},
		},
		{
			name:  "tagged files",
			reply: "```python\nimport util\n```\n```python:src/util.py\ndef f(): pass\n```\n```yaml:config.yaml\nlr: 0.1\n```",
			want: []CodeBlock{
				{Path: "src/main.py", Lang: "python", Content: "import util\n"},
				{Path: "src/util.py", Lang: "python", Content: "def f(): pass\n"},
				{Path: "config.yaml", Lang: "yaml", Content: "lr: 0.1\n"},
			},
		},
		{
			name:  "untagged non-python ignored",
			reply: "```bash\npip install x\n```\n```python\nprint(2)\n```",
			want:  []CodeBlock{{Path: "src/main.py", Lang: "python", Content: "print(2)\n"}},
		},
		{
			name:  "later duplicate wins",
			reply: "```python\nv1\n```\n```python:src/main.py\nv2\n```",
			want:  []CodeBlock{{Path: "src/main.py", Lang: "python", Content: "v2\n"}},
		},
		{
			name:  "header opens the next block",
			reply: "```python\na\n```python:src/b.py\nb\n```",
			want: []CodeBlock{
				{Path: "src/main.py", Lang: "python", Content: "a\n"},
				{Path: "src/b.py", Lang: "python", Content: "b\n"},
			},
		},
		{
			name:  "unclosed and empty blocks dropped",
			reply: "```python\n\n```\n```python:src/c.py\nc = 1",
			want:  nil,
		},
		{
			name:  "no code",
			reply: "Sorry, I cannot help with that.",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCodeBlocks(tt.reply, "src/main.py"))
		})
	}
}

func TestExtractDecision(t *testing.T) {
	d, ok := extractDecision("[Thought]: a\n[Decision]:  Do X. \n[Decision]: Do Y.")
	require.True(t, ok)
	assert.Equal(t, "Do X.", d)

	_, ok = extractDecision("[Decision]:   ")
	assert.False(t, ok)
}
