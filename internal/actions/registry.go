package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"dsbench/internal/logging"
	"dsbench/internal/trace"
	"dsbench/internal/workspace"
)

type call func(ctx context.Context, args Args) (Result, error)

// Registry is the dispatch table of one environment. It is built once and
// never changes afterwards.
type Registry struct {
	ws    *workspace.FS
	trace *trace.Trace
	table [kindCount]call
}

// Build composes every binding with its guard pipeline and, for primitives,
// the trace recorder. It panics when a Kind is unbound, bound twice, or bound
// to a handler whose parameter set differs from the catalog.
func Build(ws *workspace.FS, tr *trace.Trace, bindings ...Binding) *Registry {
	r := &Registry{ws: ws, trace: tr}

	var bound [kindCount]bool
	for _, b := range bindings {
		if !b.Kind.Valid() {
			panic(fmt.Sprintf("actions: binding for unknown kind %d", int(b.Kind)))
		}
		d := catalog[b.Kind]
		if bound[b.Kind] {
			panic("actions: duplicate binding for " + d.Name)
		}
		if b.Handler == nil {
			panic("actions: nil handler for " + d.Name)
		}
		if err := checkReads(d, b.Reads); err != nil {
			panic(err.Error())
		}
		bound[b.Kind] = true
		r.table[b.Kind] = r.compose(d, b.Handler)
	}

	for k, ok := range bound {
		if !ok {
			panic("actions: no handler bound for " + catalog[k].Name)
		}
	}
	return r
}

func checkReads(d Descriptor, reads []string) error {
	declared := d.ParamNames()
	got := append([]string{}, reads...)
	sort.Strings(declared)
	sort.Strings(got)
	if strings.Join(declared, ",") != strings.Join(got, ",") {
		return fmt.Errorf("actions: %s declares parameters [%s] but its handler reads [%s]",
			d.Name, strings.Join(declared, ", "), strings.Join(got, ", "))
	}
	return nil
}

func (r *Registry) compose(d Descriptor, h Handler) call {
	guards := guardsFor(d, r.ws)
	c := func(ctx context.Context, args Args) (Result, error) {
		if err := runGuards(guards, args); err != nil {
			return Result{}, err
		}
		return h(ctx, r, args)
	}
	if d.Primitive {
		c = r.record(d, c)
	}
	return func(ctx context.Context, args Args) (Result, error) {
		return c(ctx, args.restrict(d))
	}
}

// record appends exactly one Step per invocation, whether it succeeded or
// failed, and passes the result through untouched.
func (r *Registry) record(d Descriptor, next call) call {
	return func(ctx context.Context, args Args) (Result, error) {
		start := time.Now()
		res, err := next(ctx, args)
		elapsed := time.Since(start)

		obs := res.Observation
		if err != nil {
			obs = err.Error()
			if workspace.IsViolation(err) {
				logging.Warn("sandbox violation", "action", d.Name, "error", err)
			}
		}
		r.trace.Append(trace.NewStep(d.Name, args, obs, err != nil, elapsed))
		logging.Debug("action", "action", d.Name, "args", summarize(args), "duration", elapsed, "failed", err != nil)
		return res, err
	}
}

// InvokeKind runs an action by kind.
func (r *Registry) InvokeKind(ctx context.Context, kind Kind, args Args) (Result, error) {
	if !kind.Valid() {
		return Result{}, workspace.NewError(workspace.ErrArgument, fmt.Sprintf("unknown action kind %d", int(kind)), nil)
	}
	return r.table[kind](ctx, args)
}

// Invoke runs an action by name.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) (Result, error) {
	kind, ok := Lookup(name)
	if !ok {
		return Result{}, workspace.NewError(workspace.ErrArgument, fmt.Sprintf("Invalid action: %s", name), nil)
	}
	return r.table[kind](ctx, args)
}

// Descriptors returns the catalog this registry serves.
func (r *Registry) Descriptors() []Descriptor {
	return Catalog()
}

// Trace returns the trace primitives are recorded into.
func (r *Registry) Trace() *trace.Trace {
	return r.trace
}

// Workspace returns the guarded file system.
func (r *Registry) Workspace() *workspace.FS {
	return r.ws
}

func summarize(args Args) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := args[k]
		if len(v) > 60 {
			v = v[:60] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	return strings.Join(parts, " ")
}
