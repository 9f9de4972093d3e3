package llm

import (
	"context"
	"strings"
	"sync"
)

// Static answers from a fixed table. It backs offline mode and tests.
type Static struct {
	mu      sync.Mutex
	answers map[string]string
	prompts []string
	// Fallback is returned when no registered fragment matches
	Fallback string
}

// NewStatic creates a static backend with a generic fallback answer
func NewStatic() *Static {
	return &Static{
		answers:  make(map[string]string),
		Fallback: "Explanations are unavailable in offline mode.",
	}
}

// Answer registers the reply for prompts containing fragment
func (s *Static) Answer(fragment, reply string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[fragment] = reply
	return s
}

// Prompts returns every prompt received so far
func (s *Static) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Name identifies the backend in logs and metrics
func (s *Static) Name() string { return "static" }

// Complete returns the first registered reply whose fragment occurs in prompt
func (s *Static) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)

	best := ""
	reply := s.Fallback
	for fragment, answer := range s.answers {
		// longest match wins so lookups are deterministic
		if strings.Contains(prompt, fragment) && len(fragment) > len(best) {
			best, reply = fragment, answer
		}
	}
	return reply, nil
}
