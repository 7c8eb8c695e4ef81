package actions

import (
	"fmt"

	"dsbench/internal/workspace"
)

// Guard validates an invocation before its handler runs. A non-nil error
// short-circuits the pipeline.
type Guard func(args Args) error

// guardsFor composes the pipeline for d: required arguments, then
// containment of every path parameter, then the read-only check.
func guardsFor(d Descriptor, ws *workspace.FS) []Guard {
	guards := []Guard{requireArgs(d)}
	if len(d.PathParams) > 0 {
		guards = append(guards, containment(ws, d.PathParams))
	}
	if len(d.WriteParams) > 0 {
		guards = append(guards, readOnly(ws, d.WriteParams))
	}
	return guards
}

func requireArgs(d Descriptor) Guard {
	var required []string
	for _, p := range d.Params {
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	return func(args Args) error {
		for _, name := range required {
			if _, ok := args[name]; !ok {
				return workspace.NewError(workspace.ErrArgument,
					fmt.Sprintf("missing argument %s for action %s", name, d.Name), nil)
			}
		}
		return nil
	}
}

func containment(ws *workspace.FS, params []string) Guard {
	return func(args Args) error {
		for _, p := range params {
			if _, err := ws.Resolve(args[p]); err != nil {
				return err
			}
		}
		return nil
	}
}

func readOnly(ws *workspace.FS, params []string) Guard {
	return func(args Args) error {
		for _, p := range params {
			if err := ws.CheckWritable(args[p]); err != nil {
				return err
			}
		}
		return nil
	}
}

func runGuards(guards []Guard, args Args) error {
	for _, g := range guards {
		if err := g(args); err != nil {
			return err
		}
	}
	return nil
}
