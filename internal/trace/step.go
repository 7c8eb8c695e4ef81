package trace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Step is one recorded primitive action. Steps are immutable once appended.
type Step struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Action      string            `json:"action"`
	Args        map[string]string `json:"args"`
	Observation string            `json:"observation"`
	Failed      bool              `json:"failed,omitempty"` // The action raised; Observation holds the error message
	Duration    time.Duration     `json:"duration_ms"`
}

// NewStep creates a step with a generated ID and the current time.
func NewStep(action string, args map[string]string, observation string, failed bool, duration time.Duration) Step {
	return Step{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Action:      action,
		Args:        copyArgs(args),
		Observation: observation,
		Failed:      failed,
		Duration:    duration,
	}
}

// MarshalJSON writes Duration as whole milliseconds.
func (s Step) MarshalJSON() ([]byte, error) {
	type Alias Step
	return json.Marshal(&struct {
		Alias
		DurationMs int64 `json:"duration_ms"`
	}{
		Alias:      Alias(s),
		DurationMs: s.Duration.Milliseconds(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling.
func (s *Step) UnmarshalJSON(data []byte) error {
	type Alias Step
	aux := &struct {
		*Alias
		DurationMs int64 `json:"duration_ms"`
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	s.Duration = time.Duration(aux.DurationMs) * time.Millisecond
	return nil
}

// Filter selects steps for display.
type Filter struct {
	Action string
	Failed *bool
	Since  time.Time
	Limit  int
}

// Matches checks if the step matches the filter criteria.
func (s Step) Matches(f Filter) bool {
	if f.Action != "" && s.Action != f.Action {
		return false
	}
	if f.Failed != nil && s.Failed != *f.Failed {
		return false
	}
	if !f.Since.IsZero() && s.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

func copyArgs(args map[string]string) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
