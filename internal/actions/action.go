package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"dsbench/internal/workspace"
)

// Args are the named string arguments of one invocation.
type Args map[string]string

// Get returns the argument or "" when absent.
func (a Args) Get(name string) string {
	return a[name]
}

// Int parses an integer argument, failing with workspace.ErrArgument.
func (a Args) Int(name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(a[name]))
	if err != nil {
		return 0, workspace.NewError(workspace.ErrArgument,
			fmt.Sprintf("%s must be an integer, got %q", name, a[name]), err)
	}
	return v, nil
}

// restrict keeps only the parameters declared by d.
func (a Args) restrict(d Descriptor) Args {
	out := make(Args, len(d.Params))
	for _, p := range d.Params {
		if v, ok := a[p.Name]; ok {
			out[p.Name] = v
		}
	}
	return out
}

// Result is what an action returns to its caller.
type Result struct {
	Observation string

	// Diff is set by editing actions; HasDiff distinguishes an empty diff
	// from no diff at all.
	Diff    string
	HasDiff bool

	// Status is set by the experiment loop (see experiment.Status).
	Status string
}

// Observe returns a plain observation result.
func Observe(obs string) Result {
	return Result{Observation: obs}
}

// Invoker runs actions by kind. Composite handlers use it so that the
// primitives they call go through guards and are traced.
type Invoker interface {
	InvokeKind(ctx context.Context, kind Kind, args Args) (Result, error)
}

// Handler implements one action. args holds only declared parameters.
type Handler func(ctx context.Context, inv Invoker, args Args) (Result, error)

// Binding attaches a handler to a Kind. Reads lists the parameters the
// handler consumes and must equal the descriptor's parameter set.
type Binding struct {
	Kind    Kind
	Reads   []string
	Handler Handler
}

// Bind is shorthand for a Binding literal.
func Bind(kind Kind, reads []string, h Handler) Binding {
	return Binding{Kind: kind, Reads: reads, Handler: h}
}
