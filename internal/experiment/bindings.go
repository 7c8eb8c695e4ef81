package experiment

import (
	"context"

	"dsbench/internal/actions"
)

// Bindings binds every composite Kind to r.
func (r *Runner) Bindings() []actions.Binding {
	return []actions.Binding{
		actions.Bind(actions.UnderstandFile, []string{"file_name", "things_to_look_for"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				return observe(r.UnderstandFile(ctx, inv, a.Get("file_name"), a.Get("things_to_look_for")))
			}),
		actions.Bind(actions.SummaryProgress, []string{"file_name"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				return observe(r.SummaryProgress(ctx, inv, a.Get("file_name")))
			}),
		actions.Bind(actions.AppendResearchLog, []string{"content"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				return observe(r.AppendResearchLog(ctx, inv, a.Get("content")))
			}),
		actions.Bind(actions.InspectScriptLines, []string{"script_name", "start_line_number", "end_line_number"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				start, end, err := lineArgs(a)
				if err != nil {
					return actions.Result{}, err
				}
				return observe(r.InspectScriptLines(ctx, inv, a.Get("script_name"), start, end))
			}),
		actions.Bind(actions.EditScript, []string{"script_name", "edit_instruction", "save_name"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				return r.EditScript(ctx, inv, a.Get("script_name"), a.Get("edit_instruction"), a.Get("save_name"))
			}),
		actions.Bind(actions.EditScriptSegment, []string{"script_name", "start_line_number", "end_line_number", "edit_instruction", "save_name"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				start, end, err := lineArgs(a)
				if err != nil {
					return actions.Result{}, err
				}
				return r.EditScriptSegment(ctx, inv, a.Get("script_name"), start, end, a.Get("edit_instruction"), a.Get("save_name"))
			}),
		actions.Bind(actions.ExecuteExperiment, []string{"script_name", "plan", "save_name"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				out, err := r.Execute(ctx, inv, a.Get("script_name"), a.Get("plan"), a.Get("save_name"))
				if err != nil {
					return actions.Result{}, err
				}
				return actions.Result{
					Observation: out.Observation,
					Diff:        out.Diff,
					HasDiff:     out.Succeeded(),
					Status:      string(out.Status),
				}, nil
			}),
		actions.Bind(actions.Reflection, []string{"things_to_reflect_on"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				return observe(r.Reflection(ctx, inv, a.Get("things_to_reflect_on")))
			}),
		actions.Bind(actions.RetrieveResearchLog, []string{"current_plan"},
			func(ctx context.Context, inv actions.Invoker, a actions.Args) (actions.Result, error) {
				return observe(r.RetrieveResearchLog(ctx, inv, a.Get("current_plan")))
			}),
		actions.Bind(actions.PlanExperiment, []string{"experiment_log"},
			func(ctx context.Context, _ actions.Invoker, a actions.Args) (actions.Result, error) {
				return actions.Observe(r.PlanExperiment(ctx, a.Get("experiment_log"))), nil
			}),
	}
}

// lineArgs parses both line numbers before any file is touched.
func lineArgs(a actions.Args) (int, int, error) {
	start, err := a.Int("start_line_number")
	if err != nil {
		return 0, 0, err
	}
	end, err := a.Int("end_line_number")
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func observe(obs string, err error) (actions.Result, error) {
	if err != nil {
		return actions.Result{}, err
	}
	return actions.Observe(obs), nil
}
