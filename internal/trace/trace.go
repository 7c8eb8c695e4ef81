package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dsbench/internal/fileutil"
)

// Trace is the append-only record of primitive actions run by one environment.
// It has a single writer and is not safe for concurrent use.
type Trace struct {
	steps []Step
}

// New returns an empty trace.
func New() *Trace {
	return &Trace{}
}

// Append records a step.
func (t *Trace) Append(s Step) {
	s.Args = copyArgs(s.Args)
	t.steps = append(t.steps, s)
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	return len(t.steps)
}

// Steps returns a copy of the recorded steps in call order.
func (t *Trace) Steps() []Step {
	out := make([]Step, len(t.steps))
	for i, s := range t.steps {
		s.Args = copyArgs(s.Args)
		out[i] = s
	}
	return out
}

// Query returns the steps matching f, in call order.
func (t *Trace) Query(f Filter) []Step {
	return Query(t.steps, f)
}

// Query filters steps, stopping at f.Limit matches when it is positive.
func Query(steps []Step, f Filter) []Step {
	var out []Step
	for _, s := range steps {
		if !s.Matches(f) {
			continue
		}
		out = append(out, s)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Export encodes the steps as "json" or "jsonl".
func (t *Trace) Export(format string) ([]byte, error) {
	return Export(t.steps, format)
}

// Export encodes steps as "json" or "jsonl".
func Export(steps []Step, format string) ([]byte, error) {
	switch format {
	case "json":
		if steps == nil {
			steps = []Step{}
		}
		return json.MarshalIndent(steps, "", "  ")
	case "jsonl":
		var result []byte
		for _, s := range steps {
			line, err := json.Marshal(s)
			if err != nil {
				return nil, err
			}
			result = append(result, line...)
			result = append(result, '\n')
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Save writes the trace as indented JSON.
func (t *Trace) Save(path string) error {
	data, err := t.Export("json")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	return fileutil.AtomicWrite(path, data, 0644)
}

// Load reads steps previously written by Save.
func Load(path string) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse trace %s: %w", path, err)
	}
	return steps, nil
}
