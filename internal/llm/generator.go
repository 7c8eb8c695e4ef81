package llm

import "context"

// Request is one prompt for the generation collaborator.
type Request struct {
	Prompt    string
	Model     string // Empty selects the generator's default model
	MaxTokens int32  // 0 selects the generator's default limit
}

// Generator turns a prompt into free-form text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
