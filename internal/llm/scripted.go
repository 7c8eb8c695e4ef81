package llm

import (
	"context"
	"sync"
)

// ScriptedGenerator replays canned replies in order and repeats the last one once
// the script runs out. It records every request it receives.
type ScriptedGenerator struct {
	mu       sync.Mutex
	replies  []Reply
	requests []Request
}

// Reply is one canned answer.
type Reply struct {
	Text string
	Err  error
}

// NewScripted creates a generator that answers with texts in order.
func NewScripted(texts ...string) *ScriptedGenerator {
	s := &ScriptedGenerator{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// NewScriptedReplies creates a generator from replies, which may carry errors.
func NewScriptedReplies(replies ...Reply) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

// Generate implements Generator.
func (s *ScriptedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.requests)
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", ErrEmptyResponse
	}
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	r := s.replies[i]
	return r.Text, r.Err
}

// Requests returns the requests received so far.
func (s *ScriptedGenerator) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns how many requests were received.
func (s *ScriptedGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
