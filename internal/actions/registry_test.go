package actions

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsbench/internal/trace"
	"dsbench/internal/workspace"
)

// stubComposites binds every composite Kind to a handler that echoes its args.
func stubComposites() []Binding {
	var out []Binding
	for _, k := range Kinds() {
		d := Describe(k)
		if d.Primitive {
			continue
		}
		name := d.Name
		out = append(out, Bind(k, d.ParamNames(), func(_ context.Context, _ Invoker, a Args) (Result, error) {
			return Observe(name + ":" + summarize(a)), nil
		}))
	}
	return out
}

func newTestRegistry(t *testing.T, readOnly []string, extra ...Binding) (*Registry, *workspace.FS) {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), readOnly, workspace.Options{Interpreter: "/bin/sh"})
	require.NoError(t, err)
	help := &HelpDesk{In: strings.NewReader("use pandas\n"), Out: &bytes.Buffer{}}
	bindings := append(Primitives(ws, help), extra...)
	return Build(ws, trace.New(), bindings...), ws
}

func TestCatalog(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Catalog() {
		assert.False(t, seen[d.Name], d.Name)
		seen[d.Name] = true

		k, ok := Lookup(d.Name)
		require.True(t, ok)
		assert.Equal(t, d.Kind, k)
		assert.Equal(t, d.Name, k.String())
		assert.NotEmpty(t, d.Usage())
	}
	assert.Len(t, seen, int(kindCount))

	assert.Equal(t, "edit_script_ai", Describe(EditScript).Declaration().Name)
	assert.Equal(t, "develop_an_experiment_plan_via_cbr", Describe(PlanExperiment).Declaration().Name)
	assert.Empty(t, Describe(ListFiles).Declaration().Parameters.Required)

	_, ok := Lookup("Python REPL")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", Kind(-1).String())
}

func TestBuild_Contract(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), nil, workspace.Options{})
	require.NoError(t, err)
	prims := Primitives(ws, nil)

	t.Run("complete binding set", func(t *testing.T) {
		assert.NotPanics(t, func() { Build(ws, trace.New(), append(prims, stubComposites()...)...) })
	})

	t.Run("missing composite", func(t *testing.T) {
		assert.PanicsWithValue(t, "actions: no handler bound for Execute the Experiment Plan", func() {
			var partial []Binding
			for _, b := range stubComposites() {
				if b.Kind != ExecuteExperiment {
					partial = append(partial, b)
				}
			}
			Build(ws, trace.New(), append(prims, partial...)...)
		})
	})

	t.Run("composite parameter mismatch", func(t *testing.T) {
		bindings := append([]Binding{}, prims...)
		for _, b := range stubComposites() {
			if b.Kind == InspectScriptLines {
				b.Reads = []string{"script_name", "start_line_number"}
			}
			bindings = append(bindings, b)
		}
		assert.Panics(t, func() { Build(ws, trace.New(), bindings...) })
	})

	t.Run("duplicate", func(t *testing.T) {
		bindings := append(append(append([]Binding{}, prims...), stubComposites()...), prims[0])
		assert.Panics(t, func() { Build(ws, trace.New(), bindings...) })
	})
}

func TestRegistry_RecordsPrimitives(t *testing.T) {
	r, _ := newTestRegistry(t, []string{"data.csv"}, stubComposites()...)
	ctx := context.Background()

	res, err := r.Invoke(ctx, "Write File", Args{"file_name": "a.py", "content": "print(1)", "work_dir": "/tmp", "python": "python3"})
	require.NoError(t, err)
	assert.Equal(t, "File a.py written successfully.", res.Observation)

	_, err = r.Invoke(ctx, "Read File", Args{"file_name": "../escape.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, workspace.ErrContainment)

	_, err = r.Invoke(ctx, "Write File", Args{"file_name": "data.csv", "content": "x"})
	assert.ErrorIs(t, err, workspace.ErrReadOnly)

	_, err = r.Invoke(ctx, "Read File", Args{})
	assert.ErrorIs(t, err, workspace.ErrArgument)

	steps := r.Trace().Steps()
	require.Len(t, steps, 4)

	assert.Equal(t, "Write File", steps[0].Action)
	assert.Equal(t, map[string]string{"file_name": "a.py", "content": "print(1)"}, steps[0].Args)
	assert.False(t, steps[0].Failed)

	assert.Equal(t, "Read File", steps[1].Action)
	assert.True(t, steps[1].Failed)
	assert.Equal(t, "cannot access file ../escape.txt because it is not in the work directory.", steps[1].Observation)

	assert.Equal(t, "cannot write file data.csv because it is a read-only file.", steps[2].Observation)
	assert.True(t, steps[3].Failed)
}

func TestRegistry_CompositesAreNotRecorded(t *testing.T) {
	inspect := Bind(InspectScriptLines, []string{"script_name", "start_line_number", "end_line_number"},
		func(ctx context.Context, inv Invoker, a Args) (Result, error) {
			return inv.InvokeKind(ctx, ReadFile, Args{"file_name": a.Get("script_name")})
		})
	var composites []Binding
	for _, b := range stubComposites() {
		if b.Kind != InspectScriptLines {
			composites = append(composites, b)
		}
	}
	r, ws := newTestRegistry(t, nil, append(composites, inspect)...)
	_, err := ws.Write("s.py", "x = 1\n")
	require.NoError(t, err)

	res, err := r.Invoke(context.Background(), "Inspect Script Lines",
		Args{"script_name": "s.py", "start_line_number": "1", "end_line_number": "1"})
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", res.Observation)

	steps := r.Trace().Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "Read File", steps[0].Action)

	// Composite guards still run before the handler.
	_, err = r.Invoke(context.Background(), "Inspect Script Lines",
		Args{"script_name": "/etc/passwd", "start_line_number": "1", "end_line_number": "1"})
	assert.ErrorIs(t, err, workspace.ErrContainment)
	assert.Equal(t, 1, r.Trace().Len())
}

func TestRegistry_ReplayIsIdempotent(t *testing.T) {
	script := []struct {
		name string
		args Args
	}{
		{"List Files", Args{"dir_path": "."}},
		{"Write File", Args{"file_name": "train.py", "content": "echo hi", "session": "abc"}},
		{"Append File", Args{"file_name": "train.py", "content": "\necho bye"}},
		{"Execute Script", Args{"script_name": "train.py"}},
		{"Read File", Args{"file_name": "../../nope"}},
		{"Copy File", Args{"source": "train.py", "destination": "copy.py"}},
		{"Undo Edit Script", Args{"script_name": "train.py"}},
		{"Final Answer", Args{"final_answer": "done"}},
	}

	run := func() []trace.Step {
		r, _ := newTestRegistry(t, nil, stubComposites()...)
		for _, s := range script {
			_, _ = r.Invoke(context.Background(), s.name, s.args)
		}
		return r.Trace().Steps()
	}

	first, second := run(), run()
	require.Len(t, first, len(script))
	require.Len(t, second, len(script))
	for i := range first {
		assert.Equal(t, first[i].Action, second[i].Action)
		assert.Equal(t, first[i].Args, second[i].Args)
	}
	_, leaked := first[1].Args["session"]
	assert.False(t, leaked)
}

func TestPrimitives_HelpAndFinalAnswer(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), nil, workspace.Options{})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	help := &HelpDesk{In: strings.NewReader("install xgboost\nsecond\n"), Out: out}
	r := Build(ws, trace.New(), append(Primitives(ws, help), stubComposites()...)...)
	ctx := context.Background()

	res, err := r.Invoke(ctx, "Request Help", Args{"request": "which library?"})
	require.NoError(t, err)
	assert.Equal(t, "install xgboost", res.Observation)
	assert.Equal(t, "Research Assistant is requesting help: which library?\n", out.String())

	res, err = r.Invoke(ctx, "Request Help", Args{"request": "again"})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Observation)

	_, err = r.Invoke(ctx, "Request Help", Args{"request": "nobody left"})
	assert.ErrorIs(t, err, workspace.ErrIO)

	res, err = r.Invoke(ctx, "Final Answer", Args{"final_answer": "accuracy 0.91"})
	require.NoError(t, err)
	assert.Empty(t, res.Observation)

	_, err = r.Invoke(ctx, "Python REPL", Args{"command": "1+1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workspace.ErrArgument))
	assert.Equal(t, 4, r.Trace().Len())
}

func TestArgs_Int(t *testing.T) {
	n, err := Args{"n": " 42 "}.Int("n")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Args{"n": "4.5"}.Int("n")
	assert.ErrorIs(t, err, workspace.ErrArgument)
}
