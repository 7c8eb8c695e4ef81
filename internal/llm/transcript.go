package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dsbench/internal/security"
	"dsbench/internal/tokens"
)

// TranscriptFileName is the prompt/completion log written under the log directory.
const TranscriptFileName = "llm_transcript.log"

// Transcript appends every prompt and completion of the wrapped generator
// to a log file. Secrets are masked before anything is written.
type Transcript struct {
	next     Generator
	path     string
	redactor *security.SecretRedactor
	mu       sync.Mutex
}

// WithTranscript wraps g so calls are logged to {logDir}/llm_transcript.log.
// Each secret is masked verbatim in addition to the default patterns.
func WithTranscript(g Generator, logDir string, secrets ...string) (*Transcript, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Transcript{
		next:     g,
		path:     filepath.Join(logDir, TranscriptFileName),
		redactor: security.NewSecretRedactor(secrets...),
	}, nil
}

// Path returns the transcript file path.
func (t *Transcript) Path() string {
	return t.path
}

// Generate implements Generator.
func (t *Transcript) Generate(ctx context.Context, req Request) (string, error) {
	text, err := t.next.Generate(ctx, req)

	completion := text
	if err != nil {
		completion = "ERROR: " + err.Error()
	}
	entry := fmt.Sprintf("\n===================prompt=====================\n%s\n"+
		"===================%s response (%d)=====================\n%s\n"+
		"===================tokens=====================\n"+
		"Number of prompt tokens: %d\nNumber of sampled tokens: %d\n\n",
		req.Prompt, modelLabel(req.Model), req.MaxTokens, completion,
		tokens.Count(req.Prompt), tokens.Count(text))
	entry = t.redactor.Redact(entry)

	t.mu.Lock()
	defer t.mu.Unlock()
	f, ferr := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if ferr == nil {
		_, _ = f.WriteString(entry)
		f.Close()
	}

	return text, err
}

func modelLabel(model string) string {
	if model == "" {
		return "default"
	}
	return model
}
