package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsbench/internal/actions"
	"dsbench/internal/runner"
	"dsbench/internal/trace"
)

func TestActionsCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newActionsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.GreaterOrEqual(t, len(lines), len(actions.Catalog()))
	assert.Contains(t, out.String(), "Execute the Experiment Plan")
}

func TestActionsCmd_JSON(t *testing.T) {
	var out bytes.Buffer
	cmd := newActionsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	require.NoError(t, cmd.Execute())

	var decls []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decls))
	assert.Len(t, decls, len(actions.Catalog()))
}

func TestTraceShow(t *testing.T) {
	tr := trace.New()
	tr.Append(trace.NewStep("Read File", map[string]string{"file_name": "a.txt"}, "hi", false, time.Millisecond))
	tr.Append(trace.NewStep("Write File", map[string]string{"file_name": "b.txt"}, "denied", true, time.Millisecond))
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, tr.Save(path))

	var out bytes.Buffer
	cmd := newTraceCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show", path, "--failed", "--format", "jsonl"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Write File")
}

func TestResearchLogMarkdown(t *testing.T) {
	md := researchLogMarkdown(runner.Report{ResearchLog: "Research Problem: p\n", Diff: "+x\n"})
	assert.Contains(t, md, "Research Problem: p")
	assert.Contains(t, md, "```diff\n+x\n```")

	md = researchLogMarkdown(runner.Report{ResearchLog: "log\n"})
	assert.NotContains(t, md, "diff")
	assert.NotEmpty(t, renderMarkdown(md))
}
